package retry

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// DefaultMaxAttempts is the attempt budget per item.
const DefaultMaxAttempts = 3

// TechnicalReview runs the deterministic rule phase.
type TechnicalReview interface {
	Review(item models.ReviewItem) models.GateVerdict
}

// CreativeReview runs the vision-scored phase.
type CreativeReview interface {
	Review(ctx context.Context, item models.ReviewItem, references []string) models.GateVerdict
}

// RequiredConfig contains the collaborators every Orchestrator needs.
type RequiredConfig struct {
	Technical   TechnicalReview
	Creative    CreativeReview
	Regenerator Regenerator
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	maxAttempts int
	backoff     BackoffConfig
	references  []string
	reporter    Reporter
	recorder    Recorder
	log         *zap.Logger
	sleep       Sleeper
	removeAll   func(string) error
	now         func() time.Time
}

func defaultOptions() orchestratorOptions {
	return orchestratorOptions{
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff(),
		reporter:    nopReporter{},
		recorder:    nopRecorder{},
		log:         zap.NewNop(),
		sleep:       SleepContext,
		removeAll:   os.RemoveAll,
		now:         time.Now,
	}
}

// WithMaxAttempts sets the attempt budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(o *orchestratorOptions) {
		if n >= 1 {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the wait between attempts.
func WithBackoff(b BackoffConfig) Option {
	return func(o *orchestratorOptions) { o.backoff = b }
}

// WithReferences sets the gold-standard images for the diversity category.
func WithReferences(paths []string) Option {
	return func(o *orchestratorOptions) { o.references = paths }
}

// WithReporter sets the failure reporter.
func WithReporter(r Reporter) Option {
	return func(o *orchestratorOptions) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *orchestratorOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *orchestratorOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSleeper replaces the backoff sleep (mainly for testing).
func WithSleeper(s Sleeper) Option {
	return func(o *orchestratorOptions) { o.sleep = s }
}

// WithRemoveAll replaces the artifact cleanup function (mainly for testing).
func WithRemoveAll(f func(string) error) Option {
	return func(o *orchestratorOptions) { o.removeAll = f }
}

// WithClock replaces time.Now (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.now = now }
}
