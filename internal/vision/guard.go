package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ShayCichocki/pawgate/internal/creative"
)

// GuardConfig tunes the limiter and breaker around a backend.
type GuardConfig struct {
	// RequestsPerSecond is the sustained call rate. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the limiter bucket size.
	Burst int
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before a probe.
	OpenTimeout time.Duration
}

// DefaultGuardConfig returns conservative settings for the vision API.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RequestsPerSecond: 1,
		Burst:             4,
		FailureThreshold:  3,
		OpenTimeout:       60 * time.Second,
	}
}

// Guard wraps a backend so that calls are rate limited and a run of
// failures stops further calls for a while. An open breaker returns an
// error immediately, which the evaluator turns into its fallback score.
type Guard struct {
	next    creative.Backend
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewGuard wraps next. log may be nil.
func NewGuard(next creative.Backend, cfg GuardConfig, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultGuardConfig().FailureThreshold
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vision",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Guard{next: next, limiter: limiter, breaker: breaker, log: log}
}

// Assess implements creative.Backend.
func (g *Guard) Assess(ctx context.Context, req creative.AssessRequest) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Assess(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

var _ creative.Backend = (*Guard)(nil)
