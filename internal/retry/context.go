package retry

import (
	"sort"
	"time"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// RetryContext is the mutable state of one item's loop. It is owned by a
// single Run and never shared.
type RetryContext struct {
	Topic string
	// Attempt is the attempt in progress, starting at 1.
	Attempt     int
	MaxAttempts int
	// Feedback holds every non-empty feedback string per phase, oldest first.
	Feedback map[models.Phase][]string
	// History is the ordered score history across attempts.
	History []models.ScoreEntry
	// LastError is the most recent generation or review error.
	LastError error

	problemSlides map[int]bool
	now           func() time.Time
}

// NewRetryContext creates a context positioned at attempt 1.
func NewRetryContext(maxAttempts int) *RetryContext {
	return &RetryContext{
		Attempt:       1,
		MaxAttempts:   maxAttempts,
		Feedback:      make(map[models.Phase][]string),
		problemSlides: make(map[int]bool),
		now:           time.Now,
	}
}

// NextAttempt advances the attempt counter by exactly one.
func (rc *RetryContext) NextAttempt() {
	rc.Attempt++
}

// Exhausted reports whether no attempts remain after the current one.
func (rc *RetryContext) Exhausted() bool {
	return rc.Attempt >= rc.MaxAttempts
}

// Record appends a verdict to the history. Feedback and problem slides of
// failing verdicts are kept for the next attempt.
func (rc *RetryContext) Record(v models.GateVerdict) {
	rc.History = append(rc.History, models.ScoreEntry{
		Attempt:   rc.Attempt,
		Phase:     v.Phase,
		Score:     v.Score,
		Verdict:   v.Verdict,
		Feedback:  v.Feedback,
		Timestamp: rc.now(),
	})

	if v.Verdict.MayProceed() {
		return
	}
	if v.Feedback != "" {
		rc.Feedback[v.Phase] = append(rc.Feedback[v.Phase], v.Feedback)
	}
	for _, idx := range v.ProblemSlides {
		rc.problemSlides[idx] = true
	}
}

// RecentFeedback returns up to n of the newest feedback strings for a
// phase, oldest first.
func (rc *RetryContext) RecentFeedback(phase models.Phase, n int) []string {
	all := rc.Feedback[phase]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]string, len(all))
	copy(out, all)
	return out
}

// ProblemSlides returns the flagged slide indices in ascending order.
func (rc *RetryContext) ProblemSlides() []int {
	out := make([]int, 0, len(rc.problemSlides))
	for idx := range rc.problemSlides {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// LastScore returns the score of the newest history entry, or 0.
func (rc *RetryContext) LastScore() float64 {
	if len(rc.History) == 0 {
		return 0
	}
	return rc.History[len(rc.History)-1].Score
}

// HistoryCopy returns a copy of the score history.
func (rc *RetryContext) HistoryCopy() []models.ScoreEntry {
	out := make([]models.ScoreEntry, len(rc.History))
	copy(out, rc.History)
	return out
}
