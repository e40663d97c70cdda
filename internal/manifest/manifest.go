// Package manifest reads and writes item.yaml, the hand-off file between
// the content generator and the quality gate.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// FileName is the manifest name inside a generator output directory.
const FileName = "item.yaml"

// File is the on-disk shape of item.yaml. Relative paths resolve against
// the manifest's directory.
type File struct {
	Topic     string `yaml:"topic"`
	Tier      string `yaml:"tier"`
	ImagesDir string `yaml:"images_dir,omitempty"`
	Attempt   int    `yaml:"attempt,omitempty"`
	// Slides lists the carousel in order. When empty, image files in
	// ImagesDir are used in name order.
	Slides []SlideEntry `yaml:"slides,omitempty"`
	// Captions holds inline caption text per platform.
	Captions map[string]string `yaml:"captions,omitempty"`
	// CaptionFiles points at caption text files per platform.
	CaptionFiles map[string]string `yaml:"caption_files,omitempty"`
}

// SlideEntry is one slide in item.yaml.
type SlideEntry struct {
	File     string          `yaml:"file"`
	Category string          `yaml:"category,omitempty"`
	TextBox  *models.TextBox `yaml:"text_box,omitempty"`
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid manifest")

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Load reads path and resolves it into a ReviewItem with absolute paths.
func Load(path string) (models.ReviewItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ReviewItem{}, fmt.Errorf("read manifest: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.ReviewItem{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return models.ReviewItem{}, fmt.Errorf("resolve manifest dir: %w", err)
	}
	return f.resolve(base)
}

func (f File) resolve(base string) (models.ReviewItem, error) {
	if strings.TrimSpace(f.Topic) == "" {
		return models.ReviewItem{}, fmt.Errorf("%w: topic is required", ErrInvalid)
	}
	tier, err := models.ParseSafetyTier(f.Tier)
	if err != nil {
		return models.ReviewItem{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	item := models.ReviewItem{
		Topic:     f.Topic,
		Tier:      tier,
		ImagesDir: abs(base, f.ImagesDir),
		Attempt:   f.Attempt,
		Captions:  make(map[models.Platform]string),
	}

	entries := f.Slides
	if len(entries) == 0 {
		entries, err = discover(item.ImagesDir)
		if err != nil {
			return models.ReviewItem{}, err
		}
	}
	for i, e := range entries {
		if e.File == "" {
			return models.ReviewItem{}, fmt.Errorf("%w: slide %d has no file", ErrInvalid, i)
		}
		category := e.Category
		if category == "" {
			category = categoryFromName(e.File)
		}
		item.Slides = append(item.Slides, models.Slide{
			Index:    i,
			Path:     abs(item.ImagesDir, e.File),
			Category: category,
			TextBox:  e.TextBox,
		})
	}

	for name, text := range f.Captions {
		p := models.Platform(name)
		if !p.Valid() {
			return models.ReviewItem{}, fmt.Errorf("%w: unknown platform %q", ErrInvalid, name)
		}
		item.Captions[p] = text
	}
	for name, file := range f.CaptionFiles {
		p := models.Platform(name)
		if !p.Valid() {
			return models.ReviewItem{}, fmt.Errorf("%w: unknown platform %q", ErrInvalid, name)
		}
		text, err := os.ReadFile(abs(base, file))
		if err != nil {
			return models.ReviewItem{}, fmt.Errorf("read %s caption: %w", name, err)
		}
		item.Captions[p] = string(text)
	}

	return item, nil
}

// discover lists image files in dir in name order.
func discover(dir string) ([]SlideEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list slides: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]SlideEntry, len(names))
	for i, n := range names {
		out[i] = SlideEntry{File: n}
	}
	return out, nil
}

// categoryFromName returns the trailing {category} of {topic}_{NN}_{category}.ext.
func categoryFromName(file string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if i := strings.LastIndex(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return ""
}

func abs(base, p string) string {
	if p == "" {
		return base
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Write stores item as a manifest at path. Slide paths under the item's
// images dir are written relative to it.
func Write(path string, item models.ReviewItem) error {
	f := File{
		Topic:     item.Topic,
		Tier:      string(item.Tier),
		ImagesDir: item.ImagesDir,
		Attempt:   item.Attempt,
		Captions:  make(map[string]string, len(item.Captions)),
	}
	for _, s := range item.Slides {
		file := s.Path
		if rel, err := filepath.Rel(item.ImagesDir, s.Path); err == nil && !strings.HasPrefix(rel, "..") {
			file = rel
		}
		f.Slides = append(f.Slides, SlideEntry{File: file, Category: s.Category, TextBox: s.TextBox})
	}
	for p, text := range item.Captions {
		f.Captions[string(p)] = text
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
