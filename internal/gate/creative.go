package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/pawgate/internal/creative"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

// CreativeReviewer sums the four category totals into a 0-100 score.
type CreativeReviewer struct {
	panel      *creative.Panel
	thresholds Thresholds
}

// NewCreativeReviewer creates a reviewer around a category panel.
func NewCreativeReviewer(panel *creative.Panel, th Thresholds) (*CreativeReviewer, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &CreativeReviewer{panel: panel, thresholds: th}, nil
}

// Review evaluates the item's slides against the optional reference set.
func (r *CreativeReviewer) Review(ctx context.Context, item models.ReviewItem, references []string) models.GateVerdict {
	return Aggregate(r.panel.EvaluateAll(ctx, item.SlidePaths(), references), r.thresholds)
}

// Aggregate builds the creative verdict from category scores. Feedback lists
// each category's summary followed by its improvements.
func Aggregate(categories []models.CategoryScore, th Thresholds) models.GateVerdict {
	var total int
	var lines []string
	problems := map[int]bool{}

	for _, c := range categories {
		total += c.Total
		lines = append(lines, fmt.Sprintf("%s (%d/%d): %s", c.Category, c.Total, creative.MaxCategoryScore, c.Feedback))
		for _, imp := range c.Improvements {
			lines = append(lines, "- "+imp)
		}
		for _, idx := range c.ProblemSlides {
			problems[idx] = true
		}
	}

	score := float64(total)
	return models.GateVerdict{
		Phase:         models.PhaseCreative,
		Score:         score,
		Verdict:       Classify(score, th),
		Grade:         Grade(score),
		Categories:    categories,
		Feedback:      strings.Join(lines, "\n"),
		ProblemSlides: sortedKeys(problems),
	}
}
