package report

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestJSONLReporter_GateFailureRecord(t *testing.T) {
	dir := t.TempDir()
	r := NewJSONLReporter(dir, zaptest.NewLogger(t))
	defer r.Close()

	rc := retry.NewRetryContext(3)
	rc.Topic = "chocolate"
	for i := 1; i <= 4; i++ {
		rc.Record(models.GateVerdict{
			Phase:    models.PhaseCreative,
			Score:    float64(50 + i),
			Verdict:  models.VerdictFail,
			Feedback: fmt.Sprintf("creative note %d", i),
		})
	}
	rc.Attempt = 3
	last := models.GateVerdict{Phase: models.PhaseCreative, Score: 54, Verdict: models.VerdictFail}

	r.LogGateFailure(rc, retry.FailPointCreativeReview, last)

	lines := readLines(t, filepath.Join(dir, GateFailuresFile))
	require.Len(t, lines, 1)

	var rec GateFailure
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "chocolate", rec.Topic)
	assert.Equal(t, "creative_review", rec.FailPoint)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, 54.0, rec.Score)
	assert.Len(t, rec.ScoreHistory, 4)
	assert.Equal(t, []string{"creative note 2", "creative note 3", "creative note 4"}, rec.Feedback["creative_review"])
	assert.NotContains(t, rec.Feedback, "tech_review")
}

func TestJSONLReporter_ConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	r := NewJSONLReporter(dir, zaptest.NewLogger(t))
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.LogNeedsRevision(retry.NeedsRevision{
				Topic:    fmt.Sprintf("topic-%d", i),
				Phase:    "tech_review",
				Score:    float64(i),
				Attempt:  1,
				Feedback: "resolution mismatch",
			})
		}(i)
	}
	wg.Wait()

	lines := readLines(t, filepath.Join(dir, NeedsRevisionFile))
	require.Len(t, lines, 50)
	for _, line := range lines {
		var rec retry.NeedsRevision
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.False(t, rec.Timestamp.IsZero())
	}
}

func TestJSONLReporter_WriteErrorsAreSwallowed(t *testing.T) {
	r := NewJSONLReporter(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, r.Close())

	assert.NotPanics(t, func() {
		r.LogNeedsRevision(retry.NeedsRevision{Topic: "apple"})
		r.LogGateFailure(retry.NewRetryContext(3), retry.FailPointGeneration, models.GateVerdict{})
	})
}

func TestJSONLReporter_UnusableDirDoesNotFail(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	r := NewJSONLReporter(filepath.Join(blocker, "reports"), zaptest.NewLogger(t))
	assert.NotPanics(t, func() {
		r.LogNeedsRevision(retry.NeedsRevision{Topic: "apple"})
		r.LogGateFailure(retry.NewRetryContext(3), retry.FailPointGeneration, models.GateVerdict{})
	})
	assert.NoError(t, r.Close())
}

func TestJSONLReporter_CreatesNothingUntilFirstRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := NewJSONLReporter(dir, nil)
	_, err := os.Stat(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	r.LogGateFailure(retry.NewRetryContext(3), retry.FailPointGeneration, models.GateVerdict{})
	require.NoError(t, r.Close())
	assert.Len(t, readLines(t, filepath.Join(dir, GateFailuresFile)), 1)
	_, err = os.Stat(filepath.Join(dir, NeedsRevisionFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestJSONLReporter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		r := NewJSONLReporter(dir, nil)
		r.LogNeedsRevision(retry.NeedsRevision{Topic: "kiwi"})
		require.NoError(t, r.Close())
	}
	assert.Len(t, readLines(t, filepath.Join(dir, NeedsRevisionFile)), 2)
}

type fixedReview struct {
	phase models.Phase
	score float64
}

func (f fixedReview) verdict() models.GateVerdict {
	v := models.VerdictFail
	if f.score >= 90 {
		v = models.VerdictPass
	}
	return models.GateVerdict{Phase: f.phase, Score: f.score, Verdict: v, Feedback: "cover lacks contrast"}
}

type fixedTech struct{ fixedReview }

func (f fixedTech) Review(models.ReviewItem) models.GateVerdict { return f.verdict() }

type fixedCreative struct{ fixedReview }

func (f fixedCreative) Review(context.Context, models.ReviewItem, []string) models.GateVerdict {
	return f.verdict()
}

func TestReporterWithOrchestrator_CreativeExhaustion(t *testing.T) {
	dir := t.TempDir()
	r := NewJSONLReporter(dir, zaptest.NewLogger(t))
	defer r.Close()

	orch, err := retry.New(retry.RequiredConfig{
		Technical: fixedTech{fixedReview{models.PhaseTechnical, 100}},
		Creative:  fixedCreative{fixedReview{models.PhaseCreative, 60}},
		Regenerator: retry.RegeneratorFunc(func(_ context.Context, req retry.RegenerateRequest) (models.ReviewItem, error) {
			return req.Seed, nil
		}),
	},
		retry.WithReporter(r),
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		retry.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	_, err = orch.Run(context.Background(), models.ReviewItem{Topic: "onion", Tier: models.TierForbidden})

	var gfe *retry.GateFailureError
	require.True(t, errors.As(err, &gfe))
	assert.Equal(t, 3, gfe.Attempts)
	assert.Equal(t, retry.FailPointCreativeReview, gfe.FailPoint)

	revisions := readLines(t, filepath.Join(dir, NeedsRevisionFile))
	failures := readLines(t, filepath.Join(dir, GateFailuresFile))
	assert.Len(t, revisions, 2)
	require.Len(t, failures, 1)

	var rec GateFailure
	require.NoError(t, json.Unmarshal([]byte(failures[0]), &rec))
	assert.Equal(t, string(gfe.FailPoint), rec.FailPoint)
	assert.Equal(t, gfe.Attempts, rec.Attempts)

	summary, err := Analyze(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.NeedsRevision)
	assert.Equal(t, 1, summary.GateFailures)
	assert.Equal(t, 60.0, summary.AverageScore["creative_review"])
	require.NotEmpty(t, summary.TopFeedback)
	assert.Equal(t, FeedbackCount{Line: "cover lacks contrast", Count: 5}, summary.TopFeedback[0])
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	revisions := `{"topic":"grape","phase":"tech_review","score":70,"retry_count":1,"feedback":"- slide 3 text overflow\nResolutionMismatch"}
not json
{"topic":"grape","phase":"tech_review","score":80,"retry_count":2,"feedback":"slide 3 text overflow"}

{"topic":"kiwi","phase":"creative_review","score":65,"retry_count":1,"feedback":"flat colors"}
`
	failures := `{"topic":"grape","fail_point":"tech_review","retry_count":3,"feedback":{"tech_review":["slide 3 text overflow"]}}
{"topic":"kiwi","fail_point":"cancelled","retry_count":1,"feedback":{}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, NeedsRevisionFile), []byte(revisions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, GateFailuresFile), []byte(failures), 0o644))

	s, err := Analyze(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, s.NeedsRevision)
	assert.Equal(t, 2, s.GateFailures)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, map[string]int{"tech_review": 1, "cancelled": 1}, s.FailPoints)
	assert.Equal(t, map[string]int{"grape": 1, "kiwi": 1}, s.FailedTopics)
	assert.Equal(t, 75.0, s.AverageScore["tech_review"])
	assert.Equal(t, 65.0, s.AverageScore["creative_review"])
	assert.Equal(t, FeedbackCount{Line: "slide 3 text overflow", Count: 3}, s.TopFeedback[0])
}

func TestAnalyze_EmptyDir(t *testing.T) {
	s, err := Analyze(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, s.NeedsRevision)
	assert.Zero(t, s.GateFailures)
	assert.Empty(t, s.TopFeedback)
}
