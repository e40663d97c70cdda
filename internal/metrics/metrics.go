// Package metrics exposes retry-loop outcomes as Prometheus collectors.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

const namespace = "pawgate"

// Recorder implements retry.Recorder.
type Recorder struct {
	verdicts   *prometheus.CounterVec
	scores     *prometheus.HistogramVec
	attempts   *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	runLengths prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Review verdicts by phase and verdict.",
		}, []string{"phase", "verdict"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "review_score",
			Help:      "Review scores (0-100) by phase.",
			Buckets:   []float64{50, 60, 70, 80, 85, 90, 95, 100},
		}, []string{"phase"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Generation attempts by regeneration strategy.",
		}, []string{"strategy"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by result and fail point.",
		}, []string{"result", "fail_point"}),
		runLengths: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_attempts",
			Help:      "Attempts used per finished run.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
	}

	for _, c := range []prometheus.Collector{r.verdicts, r.scores, r.attempts, r.outcomes, r.runLengths} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// ObserveVerdict counts a phase verdict and records its score.
func (r *Recorder) ObserveVerdict(v models.GateVerdict) {
	r.verdicts.WithLabelValues(string(v.Phase), string(v.Verdict)).Inc()
	r.scores.WithLabelValues(string(v.Phase)).Observe(v.Score)
}

// ObserveAttempt counts a generation attempt.
func (r *Recorder) ObserveAttempt(s retry.Strategy) {
	r.attempts.WithLabelValues(string(s)).Inc()
}

// ObserveOutcome counts a finished run.
func (r *Recorder) ObserveOutcome(success bool, fp retry.FailPoint, attempts int) {
	result := "failed"
	if success {
		result = "passed"
	}
	r.outcomes.WithLabelValues(result, string(fp)).Inc()
	r.runLengths.Observe(float64(attempts))
}

var _ retry.Recorder = (*Recorder)(nil)
