// Package report keeps the append-only needs-revision and gate-failure
// streams used for later pattern analysis.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

const (
	// NeedsRevisionFile holds recoverable, mid-retry failures.
	NeedsRevisionFile = "needs_revision.jsonl"
	// GateFailuresFile holds terminal failures.
	GateFailuresFile = "gate_failures.jsonl"

	// failureFeedbackWindow is how many feedback strings per phase a
	// gate-failure record keeps.
	failureFeedbackWindow = 3
)

// GateFailure is one terminal failure record.
type GateFailure struct {
	Timestamp     time.Time           `json:"timestamp"`
	Topic         string              `json:"topic"`
	FailPoint     string              `json:"fail_point"`
	Phase         string              `json:"phase,omitempty"`
	Score         float64             `json:"score"`
	Verdict       string              `json:"verdict,omitempty"`
	Attempts      int                 `json:"retry_count"`
	MaxAttempts   int                 `json:"max_attempts"`
	Feedback      map[string][]string `json:"feedback"`
	ProblemSlides []int               `json:"problem_slides,omitempty"`
	ScoreHistory  []models.ScoreEntry `json:"score_history"`
	Error         string              `json:"error,omitempty"`
}

// JSONLReporter appends one JSON object per line to the two streams. It is
// safe for concurrent use across items. Streams are opened on first use and
// reopened after a failed open, so an unusable report directory costs the
// records but never the review. Errors are logged and never returned.
type JSONLReporter struct {
	mu        sync.Mutex
	dir       string
	revisions stream
	failures  stream
	closed    bool
	log       *zap.Logger
	now       func() time.Time
}

type stream struct {
	name string
	f    *os.File
}

// NewJSONLReporter returns a reporter writing under dir. Nothing is created
// until the first record.
func NewJSONLReporter(dir string, log *zap.Logger) *JSONLReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &JSONLReporter{
		dir:       dir,
		revisions: stream{name: NeedsRevisionFile},
		failures:  stream{name: GateFailuresFile},
		log:       log,
		now:       time.Now,
	}
}

func openAppend(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// LogNeedsRevision implements retry.Reporter.
func (r *JSONLReporter) LogNeedsRevision(rec retry.NeedsRevision) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	r.append(&r.revisions, rec)
}

// LogGateFailure implements retry.Reporter.
func (r *JSONLReporter) LogGateFailure(rc *retry.RetryContext, fp retry.FailPoint, last models.GateVerdict) {
	rec := GateFailure{
		Timestamp:     r.now(),
		Topic:         rc.Topic,
		FailPoint:     string(fp),
		Phase:         string(last.Phase),
		Score:         rc.LastScore(),
		Verdict:       string(last.Verdict),
		Attempts:      rc.Attempt,
		MaxAttempts:   rc.MaxAttempts,
		Feedback:      make(map[string][]string),
		ProblemSlides: rc.ProblemSlides(),
		ScoreHistory:  rc.HistoryCopy(),
	}
	for _, phase := range []models.Phase{models.PhaseTechnical, models.PhaseCreative} {
		if fb := rc.RecentFeedback(phase, failureFeedbackWindow); len(fb) > 0 {
			rec.Feedback[string(phase)] = fb
		}
	}
	if rc.LastError != nil {
		rec.Error = rc.LastError.Error()
	}
	r.append(&r.failures, rec)
}

func (r *JSONLReporter) append(st *stream, rec any) {
	line, err := json.Marshal(rec)
	if err != nil {
		r.log.Error("encode failure record", zap.String("stream", st.name), zap.Error(err))
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.log.Warn("drop failure record after close", zap.String("stream", st.name))
		return
	}
	if st.f == nil {
		f, err := openAppend(r.dir, st.name)
		if err != nil {
			r.log.Error("open failure stream", zap.String("stream", st.name), zap.Error(err))
			return
		}
		st.f = f
	}
	if _, err := st.f.Write(line); err != nil {
		r.log.Error("append failure record", zap.String("stream", st.name), zap.Error(err))
		return
	}
	if err := st.f.Sync(); err != nil {
		r.log.Warn("sync failure record", zap.String("stream", st.name), zap.Error(err))
	}
}

// Close closes whichever streams were opened. Later records are dropped.
func (r *JSONLReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var errs []error
	for _, st := range []*stream{&r.revisions, &r.failures} {
		if st.f != nil {
			errs = append(errs, st.f.Close())
			st.f = nil
		}
	}
	return errors.Join(errs...)
}

var _ retry.Reporter = (*JSONLReporter)(nil)
