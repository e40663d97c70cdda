package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShayCichocki/pawgate/internal/config"
	"github.com/ShayCichocki/pawgate/internal/regen"
	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Anthropic.Disabled = true
	cfg.Paths.ReportDir = filepath.Join(root, "reports")
	cfg.Paths.Ledger = filepath.Join(root, "ledger.db")
	cfg.Paths.WorkDir = filepath.Join(root, "attempts")
	return cfg
}

func writeSeed(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	f, err := os.Create(filepath.Join(dir, "grapes_01_hook.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	require.NoError(t, f.Close())

	path := filepath.Join(dir, "item.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topic: grapes\ntier: FORBIDDEN\n"), 0644))
	return path
}

func TestPipelineReview_FailureWithoutGenerator(t *testing.T) {
	cfg := testConfig(t)
	p, err := newPipeline(cfg, zaptest.NewLogger(t), prometheus.NewRegistry())
	require.NoError(t, err)
	defer p.Close()
	p.sleep = func(context.Context, time.Duration) error { return nil }

	seed := writeSeed(t, filepath.Join(t.TempDir(), "grapes"))
	res, err := p.review(context.Background(), seed)
	require.NoError(t, err)

	var gf *retry.GateFailureError
	require.ErrorAs(t, res.Err, &gf)
	assert.True(t, errors.Is(res.Err, regen.ErrNoCommand))
	assert.Equal(t, retry.FailPointGeneration, gf.FailPoint)
	assert.Equal(t, 2, gf.Attempts)

	assert.False(t, res.Verdict.Success)
	assert.Equal(t, "generation", res.Verdict.FailPoint)
	require.Len(t, res.Verdict.ScoreHistory, 1)
	assert.Equal(t, models.PhaseTechnical, res.Verdict.ScoreHistory[0].Phase)
	assert.Equal(t, res.Verdict.ScoreHistory[0].Score, res.Verdict.TechScore)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(seed), "verdict.json"))
	require.NoError(t, err)
	var onDisk verdictFile
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, res.RunID, onDisk.RunID)
	assert.Equal(t, "generation", onDisk.FailPoint)

	runs, err := p.ledger.ListRuns(context.Background(), "grapes", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, models.TierForbidden, runs[0].Tier)
	assert.False(t, runs[0].Success)

	for _, name := range []string{"needs_revision.jsonl", "gate_failures.jsonl"} {
		info, err := os.Stat(filepath.Join(cfg.Paths.ReportDir, name))
		require.NoError(t, err, name)
		assert.NotZero(t, info.Size(), name)
	}
}

func TestPipelineReview_UnusableReportDir(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.Paths.ReportDir = filepath.Join(blocker, "reports")

	p, err := newPipeline(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer p.Close()
	p.sleep = func(context.Context, time.Duration) error { return nil }

	seed := writeSeed(t, filepath.Join(t.TempDir(), "grapes"))
	res, err := p.review(context.Background(), seed)
	require.NoError(t, err)

	assert.Equal(t, "generation", res.Verdict.FailPoint)
	assert.FileExists(t, filepath.Join(filepath.Dir(seed), "verdict.json"))
	runs, err := p.ledger.ListRuns(context.Background(), "grapes", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPipelineReview_BadManifest(t *testing.T) {
	cfg := testConfig(t)
	p, err := newPipeline(cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.review(context.Background(), filepath.Join(t.TempDir(), "missing", "item.yaml"))
	assert.Error(t, err)
}

func TestBuildVerdict(t *testing.T) {
	history := []models.ScoreEntry{
		{Attempt: 1, Phase: models.PhaseTechnical, Score: 100, Verdict: models.VerdictPass},
		{Attempt: 1, Phase: models.PhaseCreative, Score: 70, Verdict: models.VerdictFail},
		{Attempt: 2, Phase: models.PhaseTechnical, Score: 96, Verdict: models.VerdictPass},
		{Attempt: 2, Phase: models.PhaseCreative, Score: 75, Verdict: models.VerdictFail},
	}

	t.Run("success", func(t *testing.T) {
		out := &retry.Outcome{
			Success: true, Topic: "apple", Attempts: 1, Conditional: true,
			TechScore: 95, TechGrade: "A+", CreativeScore: 84, CreativeGrade: "B",
		}
		v := buildVerdict("id", "apple", out, nil, 1500*time.Millisecond)
		assert.True(t, v.Success)
		assert.True(t, v.Conditional)
		assert.Equal(t, 84.0, v.CreativeScore)
		assert.Equal(t, "1.5s", v.Duration)
		assert.Empty(t, v.FailPoint)
	})

	t.Run("gate failure", func(t *testing.T) {
		gf := &retry.GateFailureError{
			FailPoint: retry.FailPointCreativeReview,
			Attempts:  2,
			LastScore: 75,
			Message:   "creative verdict FAIL",
			History:   history,
		}
		v := buildVerdict("id", "grapes", nil, fmt.Errorf("run: %w", gf), time.Second)
		assert.False(t, v.Success)
		assert.Equal(t, "creative_review", v.FailPoint)
		assert.Equal(t, 96.0, v.TechScore)
		assert.Equal(t, "A+", v.TechGrade)
		assert.Equal(t, 75.0, v.CreativeScore)
		assert.Equal(t, "C", v.CreativeGrade)
		assert.Len(t, v.ScoreHistory, 4)
	})

	t.Run("unscored phase has no grade", func(t *testing.T) {
		gf := &retry.GateFailureError{FailPoint: retry.FailPointTechReview, History: history[:1]}
		v := buildVerdict("id", "kale", nil, gf, time.Second)
		assert.Equal(t, "", v.CreativeGrade)
		assert.Equal(t, 0.0, v.CreativeScore)
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"gate failure", &retry.GateFailureError{FailPoint: retry.FailPointTechReview}, exitGateFailure},
		{"wrapped tech failure", fmt.Errorf("%w: score 40", errTechFailed), exitGateFailure},
		{"cancelled", context.Canceled, exitGateFailure},
		{"other", errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "c.jpeg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

	got, err := listImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "c.jpeg"),
	}, got)

	none, err := listImages("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = listImages(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSortedByCount(t *testing.T) {
	got := sortedByCount(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1})
	assert.Equal(t, []string{"c", "a", "b", "d"}, got)
}
