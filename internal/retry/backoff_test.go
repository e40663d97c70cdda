package retry

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDelay_Defaults(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second}
	for attempt, w := range want {
		assert.Equal(t, w, b.Delay(attempt), "attempt %d", attempt)
	}
}

func TestDelay_CappedExponential(t *testing.T) {
	b := DefaultBackoff()
	rapid.Check(t, func(t *rapid.T) {
		attempt := rapid.IntRange(2, 40).Draw(t, "attempt")

		want := time.Duration(math.Min(math.Pow(2, float64(attempt-1)), 30)) * time.Second
		if got := b.Delay(attempt); got != want {
			t.Fatalf("Delay(%d) = %v, want %v", attempt, got, want)
		}
		if b.Delay(attempt) < b.Delay(attempt-1) {
			t.Fatalf("Delay decreased at attempt %d", attempt)
		}
	})
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, SleepContext(ctx, 0), context.Canceled)
}
