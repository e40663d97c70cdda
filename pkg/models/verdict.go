package models

import "time"

// Verdict is the aggregated decision of one review phase.
type Verdict string

const (
	// VerdictPass means the content meets the bar.
	VerdictPass Verdict = "PASS"
	// VerdictConditional means the content may proceed but is flagged for
	// human review.
	VerdictConditional Verdict = "CONDITIONAL"
	// VerdictFail always blocks the content.
	VerdictFail Verdict = "FAIL"
)

// MayProceed reports whether the pipeline can advance on this verdict.
func (v Verdict) MayProceed() bool {
	return v == VerdictPass || v == VerdictConditional
}

// Phase names a review phase of the retry loop.
type Phase string

const (
	PhaseTechnical Phase = "tech_review"
	PhaseCreative  Phase = "creative_review"
)

// CategoryScore is one creative category's 0-25 evaluation.
type CategoryScore struct {
	// Category is aesthetic, emotion, storytelling or diversity.
	Category string `json:"category"`
	// Scores maps each sub-item to an integer in [0, 5].
	Scores map[string]int `json:"scores"`
	// Total is the sum of Scores, capped at 25.
	Total int `json:"total"`
	// Feedback is the evaluator's summary.
	Feedback string `json:"feedback"`
	// Strengths lists what worked.
	Strengths []string `json:"strengths,omitempty"`
	// Improvements lists what should change on the next attempt.
	Improvements []string `json:"improvements,omitempty"`
	// ProblemSlides are zero-based slide indices the evaluator flagged.
	ProblemSlides []int `json:"problem_slides,omitempty"`
	// VLMUsed is false when the deterministic fallback was applied.
	VLMUsed bool `json:"vlm_used"`
	// Similarity against the reference set (0-100); diversity only.
	Similarity float64 `json:"similarity,omitempty"`
}

// GateVerdict is the immutable result of one review phase for one attempt.
type GateVerdict struct {
	Phase         Phase           `json:"phase"`
	Score         float64         `json:"score"`
	Verdict       Verdict         `json:"verdict"`
	Grade         string          `json:"grade"`
	Checks        []CheckResult   `json:"checks,omitempty"`
	Categories    []CategoryScore `json:"categories,omitempty"`
	Feedback      string          `json:"feedback"`
	ProblemSlides []int           `json:"problem_slides,omitempty"`
}

// ScoreEntry is one row of a run's score history.
type ScoreEntry struct {
	Attempt   int       `json:"attempt"`
	Phase     Phase     `json:"phase"`
	Score     float64   `json:"score"`
	Verdict   Verdict   `json:"verdict"`
	Feedback  string    `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}
