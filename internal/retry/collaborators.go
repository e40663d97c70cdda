package retry

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// RegenerateRequest asks the content generator for a new attempt.
type RegenerateRequest struct {
	Attempt     int
	MaxAttempts int
	Strategy    Strategy
	// Prompt is the improvement prompt; empty on the first attempt.
	Prompt string
	// Slides restricts regeneration to these indices when set.
	Slides fn.Option[[]int]
	// Seed is the item the run started from.
	Seed models.ReviewItem
	// Previous is the last successfully generated item, zero on attempt 1.
	Previous models.ReviewItem
}

// Regenerator produces a ReviewItem for an attempt. Errors wrapped with
// Unrecoverable end the run immediately.
type Regenerator interface {
	Regenerate(ctx context.Context, req RegenerateRequest) (models.ReviewItem, error)
}

// RegeneratorFunc adapts a function to Regenerator.
type RegeneratorFunc func(ctx context.Context, req RegenerateRequest) (models.ReviewItem, error)

// Regenerate calls f.
func (f RegeneratorFunc) Regenerate(ctx context.Context, req RegenerateRequest) (models.ReviewItem, error) {
	return f(ctx, req)
}

// NeedsRevision is a failed attempt that will be retried.
type NeedsRevision struct {
	Topic         string    `json:"topic"`
	Phase         string    `json:"phase"`
	Score         float64   `json:"score"`
	Attempt       int       `json:"retry_count"`
	MaxAttempts   int       `json:"max_attempts"`
	Feedback      string    `json:"feedback"`
	ProblemSlides []int     `json:"problem_slides,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Reporter records failures. Implementations must not block or fail the
// caller.
type Reporter interface {
	LogNeedsRevision(rec NeedsRevision)
	LogGateFailure(rc *RetryContext, fp FailPoint, last models.GateVerdict)
}

// Recorder receives loop metrics.
type Recorder interface {
	ObserveVerdict(v models.GateVerdict)
	ObserveAttempt(s Strategy)
	ObserveOutcome(success bool, fp FailPoint, attempts int)
}

type nopReporter struct{}

func (nopReporter) LogNeedsRevision(NeedsRevision)                              {}
func (nopReporter) LogGateFailure(*RetryContext, FailPoint, models.GateVerdict) {}

type nopRecorder struct{}

func (nopRecorder) ObserveVerdict(models.GateVerdict)   {}
func (nopRecorder) ObserveAttempt(Strategy)             {}
func (nopRecorder) ObserveOutcome(bool, FailPoint, int) {}
