package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffConfig sets the wait before each retry.
type BackoffConfig struct {
	Base time.Duration `mapstructure:"base"`
	Max  time.Duration `mapstructure:"max"`
}

// DefaultBackoff waits 2^(attempt-1) seconds, capped at 30s.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{Base: time.Second, Max: 30 * time.Second}
}

func (c BackoffConfig) newExponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.Max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns min(Base * 2^(attempt-1), Max). Attempts below 1 wait 0.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 1 || c.Base <= 0 {
		return 0
	}
	if c.Max <= 0 {
		c.Max = DefaultBackoff().Max
	}
	b := c.newExponential()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
		if d >= c.Max {
			return c.Max
		}
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
