package models

// Severity is how serious a check outcome is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NoSlide marks a CheckResult that is not tied to a single slide.
const NoSlide = -1

// CheckResult is the outcome of one rule check or one scored category.
type CheckResult struct {
	// ID identifies the check (e.g. "resolution", "caption.hashtags").
	ID string `json:"id"`
	// Passed is the boolean outcome. Scored checks pass when Score > 0.
	Passed bool `json:"passed"`
	// Score is the earned points, always within [0, MaxScore].
	Score int `json:"score"`
	// MaxScore is the ceiling for Score.
	MaxScore int `json:"max_score"`
	// Reason is a human-readable explanation.
	Reason string `json:"reason"`
	// Severity of the outcome.
	Severity Severity `json:"severity"`
	// Evidence holds the raw measurements behind the outcome.
	Evidence map[string]float64 `json:"evidence,omitempty"`
	// Slide is the slide index the check refers to, or NoSlide.
	Slide int `json:"slide"`
}

// NewCheck builds a CheckResult with its score clamped to [0, max].
func NewCheck(id string, score, max int, reason string, sev Severity) CheckResult {
	return CheckResult{
		ID:       id,
		Passed:   clamp(score, 0, max) == max && max > 0,
		Score:    clamp(score, 0, max),
		MaxScore: max,
		Reason:   reason,
		Severity: sev,
		Slide:    NoSlide,
	}
}

// Pass builds a passing one-point check.
func Pass(id, reason string) CheckResult {
	return NewCheck(id, 1, 1, reason, SeverityInfo)
}

// Fail builds a failing one-point check.
func Fail(id, reason string) CheckResult {
	return NewCheck(id, 0, 1, reason, SeverityError)
}

// Warn builds a passing one-point check carrying a warning.
func Warn(id, reason string) CheckResult {
	return NewCheck(id, 1, 1, reason, SeverityWarning)
}

// Skip builds a zero-point check that is reported but excluded from the
// earned/max totals.
func Skip(id, reason string) CheckResult {
	c := NewCheck(id, 0, 0, reason, SeverityInfo)
	c.Passed = true
	return c
}

// WithEvidence returns a copy of the result with the evidence added.
func (c CheckResult) WithEvidence(key string, value float64) CheckResult {
	ev := make(map[string]float64, len(c.Evidence)+1)
	for k, v := range c.Evidence {
		ev[k] = v
	}
	ev[key] = value
	c.Evidence = ev
	return c
}

// ForSlide returns a copy of the result tied to a slide index.
func (c CheckResult) ForSlide(idx int) CheckResult {
	c.Slide = idx
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
