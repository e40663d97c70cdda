// Package gate aggregates rule checks and creative category scores into one
// verdict per review phase.
package gate

import (
	"fmt"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Thresholds are the verdict band boundaries on a 0-100 score. They apply
// uniformly to both phases and every safety tier.
type Thresholds struct {
	// Pass is the minimum score for PASS.
	Pass float64 `mapstructure:"pass"`
	// Conditional is the minimum score for CONDITIONAL.
	Conditional float64 `mapstructure:"conditional"`
}

// DefaultThresholds returns the 90/80 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Pass: 90, Conditional: 80}
}

// Validate checks that the bands are ordered and within [0, 100].
func (t Thresholds) Validate() error {
	if t.Conditional < 0 || t.Pass > 100 || t.Conditional > t.Pass {
		return fmt.Errorf("invalid thresholds: pass=%v conditional=%v", t.Pass, t.Conditional)
	}
	return nil
}

// Classify maps a score to its verdict band.
func Classify(score float64, th Thresholds) models.Verdict {
	switch {
	case score >= th.Pass:
		return models.VerdictPass
	case score >= th.Conditional:
		return models.VerdictConditional
	default:
		return models.VerdictFail
	}
}

// Grade returns the informational letter grade for a score. The verdict is
// never derived from it.
func Grade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	default:
		return "F"
	}
}
