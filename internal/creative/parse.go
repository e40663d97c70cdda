package creative

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// ErrMalformedAssessment indicates the model reply could not be parsed.
var ErrMalformedAssessment = errors.New("malformed assessment")

type assessmentReply struct {
	Scores        map[string]int `json:"scores"`
	Feedback      string         `json:"feedback"`
	Strengths     []string       `json:"strengths"`
	Improvements  []string       `json:"improvements"`
	ProblemSlides []int          `json:"problem_slides"`
}

// ParseAssessment turns a model reply into a bounded CategoryScore. The
// first JSON object in the reply is used; surrounding prose is ignored.
// Sub-item scores are clamped to [0, 5], unknown sub-items are dropped and
// missing ones count as 0. A reply that scores none of the category's
// sub-items is malformed. Problem slides outside [0, slideCount) are dropped.
func ParseAssessment(c Category, raw string, slideCount int) (models.CategoryScore, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return models.CategoryScore{}, fmt.Errorf("%w: no JSON object", ErrMalformedAssessment)
	}

	var reply assessmentReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return models.CategoryScore{}, fmt.Errorf("%w: %v", ErrMalformedAssessment, err)
	}

	items := subItems[c]
	scores := make(map[string]int, len(items))
	found, total := 0, 0
	for _, item := range items {
		v, ok := reply.Scores[item]
		if ok {
			found++
		}
		v = clampInt(v, 0, MaxSubScore)
		scores[item] = v
		total += v
	}
	if found == 0 {
		return models.CategoryScore{}, fmt.Errorf("%w: no %s sub-scores", ErrMalformedAssessment, c)
	}

	var problems []int
	seen := make(map[int]bool)
	for _, idx := range reply.ProblemSlides {
		if idx < 0 || idx >= slideCount || seen[idx] {
			continue
		}
		seen[idx] = true
		problems = append(problems, idx)
	}

	return models.CategoryScore{
		Category:      string(c),
		Scores:        scores,
		Total:         clampInt(total, 0, MaxCategoryScore),
		Feedback:      strings.TrimSpace(reply.Feedback),
		Strengths:     reply.Strengths,
		Improvements:  reply.Improvements,
		ProblemSlides: problems,
		VLMUsed:       true,
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
