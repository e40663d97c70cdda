// Package creative scores slide sets on four creative categories using a
// vision model, degrading to a fixed fallback score when the model is not
// available.
package creative

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Category is one of the four creative review categories.
type Category string

const (
	CategoryAesthetic    Category = "aesthetic"
	CategoryEmotion      Category = "emotion"
	CategoryStorytelling Category = "storytelling"
	CategoryDiversity    Category = "diversity"
)

const (
	// MaxSubScore is the ceiling for a single sub-item.
	MaxSubScore = 5
	// MaxCategoryScore is the ceiling for a category total.
	MaxCategoryScore = 25
	// FallbackFeedback is reported when the vision model could not be used.
	FallbackFeedback = "VLM 미연결로 기본 평가 적용"
)

// Categories lists every category in review order.
var Categories = []Category{
	CategoryAesthetic,
	CategoryEmotion,
	CategoryStorytelling,
	CategoryDiversity,
}

// subItems are the five scored aspects of each category, in prompt order.
var subItems = map[Category][]string{
	CategoryAesthetic:    {"composition", "color_harmony", "typography", "visual_hierarchy", "brand_consistency"},
	CategoryEmotion:      {"warmth", "relatability", "pet_appeal", "trust", "engagement_hook"},
	CategoryStorytelling: {"hook", "flow", "clarity", "payoff", "cta_strength"},
	CategoryDiversity:    {"layout_variety", "color_variety", "subject_variety", "freshness", "reference_distance"},
}

// SubItems returns the sub-items scored for a category.
func SubItems(c Category) []string {
	items := subItems[c]
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// Valid returns true if the category is known.
func (c Category) Valid() bool {
	_, ok := subItems[c]
	return ok
}

// AssessRequest is one vision-model call for one category.
type AssessRequest struct {
	Category Category
	Prompt   string
	Images   []string
}

// Backend is a vision-capable model. Assess returns the model's raw text
// reply; any error makes the evaluator fall back.
type Backend interface {
	Assess(ctx context.Context, req AssessRequest) (string, error)
}

// Fallback returns the documented default score for a category: the
// fallback total spread evenly over the sub-items, with VLMUsed unset.
func Fallback(c Category, total int) models.CategoryScore {
	items := subItems[c]
	if total < 0 {
		total = 0
	}
	if total > MaxSubScore*len(items) {
		total = MaxSubScore * len(items)
	}

	scores := make(map[string]int, len(items))
	if len(items) > 0 {
		base, rem := total/len(items), total%len(items)
		for i, item := range items {
			scores[item] = base
			if i < rem {
				scores[item]++
			}
		}
	}

	return models.CategoryScore{
		Category: string(c),
		Scores:   scores,
		Total:    total,
		Feedback: FallbackFeedback,
		VLMUsed:  false,
	}
}

// validateScore enforces the per-item and per-category bounds.
func validateScore(s models.CategoryScore) error {
	sum := 0
	for item, v := range s.Scores {
		if v < 0 || v > MaxSubScore {
			return fmt.Errorf("%s.%s = %d out of range", s.Category, item, v)
		}
		sum += v
	}
	if s.Total < 0 || s.Total > MaxCategoryScore || s.Total > sum {
		return fmt.Errorf("%s total %d inconsistent with sub-scores", s.Category, s.Total)
	}
	return nil
}
