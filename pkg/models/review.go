package models

// Platform identifies where a caption will be published.
type Platform string

const (
	// PlatformInstagram is the Instagram carousel caption.
	PlatformInstagram Platform = "instagram"
	// PlatformThreads is the Threads post caption.
	PlatformThreads Platform = "threads"
	// PlatformBlog is the long-form blog body.
	PlatformBlog Platform = "blog"
)

// Valid returns true if the platform is a known value.
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformThreads, PlatformBlog:
		return true
	default:
		return false
	}
}

// TextBox is the vertical extent of the overlay text on a slide, expressed as
// ratios of the slide height. The renderer declares it so the text position
// can be checked without re-analysing pixels.
type TextBox struct {
	Top    float64 `json:"top" yaml:"top"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// Slide is one rendered image in a carousel.
type Slide struct {
	// Index is the zero-based position of the slide in the carousel.
	Index int `json:"index"`
	// Path is the absolute path of the rendered image.
	Path string `json:"path"`
	// Category is the slide role (cover, content, cta, ...).
	Category string `json:"category"`
	// TextBox is the renderer-declared text placement, if any.
	TextBox *TextBox `json:"text_box,omitempty"`
}

// ReviewItem is one topic's generated slide set and captions under review.
// The validation core only reads it.
type ReviewItem struct {
	// Topic is the food topic identifier (e.g. "blueberry").
	Topic string `json:"topic"`
	// Tier is the safety tier assigned upstream.
	Tier SafetyTier `json:"tier"`
	// ImagesDir is the directory the slides were rendered into.
	ImagesDir string `json:"images_dir"`
	// Slides are the rendered images in carousel order.
	Slides []Slide `json:"slides"`
	// Captions maps each platform to its caption text.
	Captions map[Platform]string `json:"captions"`
	// Attempt is the generation attempt that produced this item (1-indexed).
	Attempt int `json:"attempt,omitempty"`
}

// SlidePaths returns the slide image paths in order.
func (r ReviewItem) SlidePaths() []string {
	paths := make([]string, 0, len(r.Slides))
	for _, s := range r.Slides {
		paths = append(paths, s.Path)
	}
	return paths
}

// Caption returns the caption for a platform and whether it exists.
func (r ReviewItem) Caption(p Platform) (string, bool) {
	c, ok := r.Captions[p]
	return c, ok
}
