package rules

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Check identifiers for image rules.
const (
	CheckIDResolution   = "resolution"
	CheckIDFileCount    = "file_count"
	CheckIDNaming       = "naming"
	CheckIDTextPosition = "text_position"
)

// DefaultNamingPattern matches {topic}_{NN}_{category}.ext.
const DefaultNamingPattern = `^[a-z0-9]+(?:_[a-z0-9]+)*_\d{2}_[a-z]+\.(?:png|jpg|jpeg)$`

// CheckResolution fails unless the image is exactly width x height pixels.
// There is no tolerance: a single pixel off is a mismatch.
func CheckResolution(path string, width, height int) models.CheckResult {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Fail(CheckIDResolution, fmt.Sprintf("FileNotFound: %s", filepath.Base(path)))
		}
		return models.Fail(CheckIDResolution, fmt.Sprintf("UnreadableImage: %s: %v", filepath.Base(path), err))
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return models.Fail(CheckIDResolution, fmt.Sprintf("UnreadableImage: %s: %v", filepath.Base(path), err))
	}

	if cfg.Width != width || cfg.Height != height {
		return models.Fail(CheckIDResolution, fmt.Sprintf("ResolutionMismatch: %s is %dx%d (expected %dx%d)",
			filepath.Base(path), cfg.Width, cfg.Height, width, height)).
			WithEvidence("width", float64(cfg.Width)).
			WithEvidence("height", float64(cfg.Height))
	}

	return models.Pass(CheckIDResolution, fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)).
		WithEvidence("width", float64(cfg.Width)).
		WithEvidence("height", float64(cfg.Height))
}

// CheckFileCount fails when len(files) is outside [min, max]. A count at or
// above min but below recommended passes with a warning.
func CheckFileCount(files []string, min, max, recommended int) models.CheckResult {
	n := len(files)
	var res models.CheckResult
	switch {
	case n < min:
		res = models.Fail(CheckIDFileCount, fmt.Sprintf("too few slides: %d (min %d)", n, min))
	case n > max:
		res = models.Fail(CheckIDFileCount, fmt.Sprintf("too many slides: %d (max %d)", n, max))
	case n < recommended:
		res = models.Warn(CheckIDFileCount, fmt.Sprintf("slide count %d below recommended %d", n, recommended))
	default:
		res = models.Pass(CheckIDFileCount, fmt.Sprintf("%d slides", n))
	}
	return res.WithEvidence("count", float64(n))
}

// CompileNamingPattern compiles a naming regex, falling back to
// DefaultNamingPattern when pattern is empty.
func CompileNamingPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = DefaultNamingPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile naming pattern: %w", err)
	}
	return re, nil
}

// CheckNamingPattern fails when the base name of filename does not match re.
func CheckNamingPattern(filename string, re *regexp.Regexp) models.CheckResult {
	base := filepath.Base(filename)
	if !re.MatchString(base) {
		return models.Fail(CheckIDNaming, fmt.Sprintf("%s does not match {topic}_{NN}_{category}.ext", base))
	}
	return models.Pass(CheckIDNaming, base)
}

// SafeArea is the vertical band, as ratios of slide height, that overlay
// text must stay inside.
type SafeArea struct {
	Top    float64
	Bottom float64
}

// DefaultSafeArea keeps text clear of the top and bottom 5%.
func DefaultSafeArea() SafeArea {
	return SafeArea{Top: 0.05, Bottom: 0.95}
}

// CheckTextPosition verifies the renderer-declared text box lies inside the
// safe area. Slides without a declared text box are skipped and carry no
// points.
func CheckTextPosition(slide models.Slide, area SafeArea) models.CheckResult {
	if slide.TextBox == nil {
		return models.Skip(CheckIDTextPosition, "no text box declared (skipped)").ForSlide(slide.Index)
	}

	box := *slide.TextBox
	var res models.CheckResult
	switch {
	case box.Top >= box.Bottom:
		res = models.Fail(CheckIDTextPosition, fmt.Sprintf("invalid text box %.2f-%.2f", box.Top, box.Bottom))
	case box.Top < area.Top || box.Bottom > area.Bottom:
		res = models.Fail(CheckIDTextPosition, fmt.Sprintf("text %.2f-%.2f outside safe area %.2f-%.2f",
			box.Top, box.Bottom, area.Top, area.Bottom))
	default:
		res = models.Pass(CheckIDTextPosition, fmt.Sprintf("text %.2f-%.2f", box.Top, box.Bottom))
	}

	return res.
		WithEvidence("top", box.Top).
		WithEvidence("bottom", box.Bottom).
		ForSlide(slide.Index)
}
