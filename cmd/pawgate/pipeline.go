package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ShayCichocki/pawgate/internal/config"
	"github.com/ShayCichocki/pawgate/internal/creative"
	iexec "github.com/ShayCichocki/pawgate/internal/exec"
	"github.com/ShayCichocki/pawgate/internal/gate"
	"github.com/ShayCichocki/pawgate/internal/inbox"
	"github.com/ShayCichocki/pawgate/internal/manifest"
	"github.com/ShayCichocki/pawgate/internal/metrics"
	"github.com/ShayCichocki/pawgate/internal/regen"
	"github.com/ShayCichocki/pawgate/internal/report"
	"github.com/ShayCichocki/pawgate/internal/retry"
	"github.com/ShayCichocki/pawgate/internal/store"
	"github.com/ShayCichocki/pawgate/internal/vision"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

// pipeline holds the collaborators shared by every item a command reviews.
type pipeline struct {
	cfg      *config.Config
	log      *zap.Logger
	tech     *gate.TechnicalReviewer
	creative *gate.CreativeReviewer
	reporter *report.JSONLReporter
	recorder retry.Recorder
	ledger   *store.DB
	runner   iexec.CommandRunner
	refs     []string
	tokens   *vision.TokenTracker
	sleep    retry.Sleeper
}

// newPipeline wires the full review stack. reg may be nil to skip metrics.
func newPipeline(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*pipeline, error) {
	tech, err := gate.NewTechnicalReviewer(cfg.TechConfig())
	if err != nil {
		return nil, fmt.Errorf("technical reviewer: %w", err)
	}

	var backend creative.Backend
	var tokens *vision.TokenTracker
	if !cfg.Anthropic.Disabled && config.VisionAvailable(cfg) {
		client, err := vision.NewClient(cfg.VisionConfig())
		if err != nil {
			return nil, fmt.Errorf("vision client: %w", err)
		}
		tokens = client.Tracker()
		backend = vision.NewGuard(client, cfg.GuardConfig(), log)
	} else {
		log.Warn("vision model unavailable; creative categories use fallback scores",
			zap.String("key_source", string(config.GetAPIKeySource(cfg))))
	}

	evaluator := creative.NewEvaluator(backend, cfg.EvaluatorConfig(), log)
	creativeReviewer, err := gate.NewCreativeReviewer(creative.NewPanel(evaluator), cfg.Thresholds())
	if err != nil {
		return nil, fmt.Errorf("creative reviewer: %w", err)
	}

	refs, err := listImages(cfg.Creative.ReferencesDir)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}

	reporter := report.NewJSONLReporter(cfg.Paths.ReportDir, log)

	ledger, err := store.Open(cfg.Paths.Ledger)
	if err != nil {
		reporter.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	p := &pipeline{
		cfg:      cfg,
		log:      log,
		tech:     tech,
		creative: creativeReviewer,
		reporter: reporter,
		ledger:   ledger,
		runner:   iexec.NewRunner(),
		refs:     refs,
		tokens:   tokens,
		sleep:    retry.SleepContext,
	}
	if reg != nil {
		rec, err := metrics.New(reg)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.recorder = rec
	}
	return p, nil
}

// Close releases the report streams and the ledger.
func (p *pipeline) Close() error {
	var errs []error
	if p.reporter != nil {
		errs = append(errs, p.reporter.Close())
	}
	if p.ledger != nil {
		errs = append(errs, p.ledger.Close())
	}
	return errors.Join(errs...)
}

// reviewResult is what one item produced.
type reviewResult struct {
	RunID   string
	Outcome *retry.Outcome
	Err     error
	Verdict verdictFile
}

// verdictFile is the JSON written next to a reviewed manifest.
type verdictFile struct {
	RunID         string              `json:"run_id"`
	Topic         string              `json:"topic"`
	Success       bool                `json:"success"`
	Conditional   bool                `json:"conditional"`
	Attempts      int                 `json:"attempts"`
	ImagesDir     string              `json:"images_dir,omitempty"`
	TechScore     float64             `json:"tech_score"`
	TechGrade     string              `json:"tech_grade,omitempty"`
	CreativeScore float64             `json:"creative_score"`
	CreativeGrade string              `json:"creative_grade,omitempty"`
	FailPoint     string              `json:"fail_point,omitempty"`
	Message       string              `json:"message,omitempty"`
	ScoreHistory  []models.ScoreEntry `json:"score_history"`
	Duration      string              `json:"duration"`
}

// review runs one manifest through the retry loop, writes verdict.json
// beside it and records the run in the ledger. A *retry.GateFailureError
// is returned in the result, not as the error; the error is reserved for
// failures to start the run.
func (p *pipeline) review(ctx context.Context, manifestPath string) (*reviewResult, error) {
	item, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID), zap.String("topic", item.Topic))

	next := regen.NewCommandRegenerator(p.runner, regen.CommandConfig{
		Command:    p.cfg.Generator.Command,
		WorkDir:    filepath.Dir(manifestPath),
		OutputRoot: filepath.Join(p.cfg.Paths.WorkDir, runID),
		Timeout:    p.cfg.Generator.Timeout,
	}, log)

	opts := []retry.Option{
		retry.WithMaxAttempts(p.cfg.Retry.MaxAttempts),
		retry.WithBackoff(p.cfg.Backoff()),
		retry.WithReferences(p.refs),
		retry.WithReporter(p.reporter),
		retry.WithLogger(log),
		retry.WithSleeper(p.sleep),
	}
	if p.recorder != nil {
		opts = append(opts, retry.WithRecorder(p.recorder))
	}

	orch, err := retry.New(retry.RequiredConfig{
		Technical:   p.tech,
		Creative:    p.creative,
		Regenerator: regen.Seeded{Item: item, Next: next},
	}, opts...)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	out, runErr := orch.Run(ctx, item)
	finished := time.Now()

	res := &reviewResult{RunID: runID, Outcome: out, Err: runErr}
	res.Verdict = buildVerdict(runID, item.Topic, out, runErr, finished.Sub(started))

	if err := writeVerdict(filepath.Join(filepath.Dir(manifestPath), inbox.VerdictFile), res.Verdict); err != nil {
		log.Error("write verdict", zap.Error(err))
	}

	run := ledgerRun(res.Verdict, item.Tier, started, finished)
	if err := p.ledger.RecordRun(context.WithoutCancel(ctx), run, res.Verdict.ScoreHistory); err != nil {
		log.Error("record run", zap.Error(err))
	}

	if p.tokens != nil {
		in, outTokens := p.tokens.Total()
		log.Debug("vision usage", zap.Int64("input_tokens", in), zap.Int64("output_tokens", outTokens))
	}
	return res, nil
}

func buildVerdict(runID, topic string, out *retry.Outcome, runErr error, elapsed time.Duration) verdictFile {
	v := verdictFile{RunID: runID, Topic: topic, Duration: elapsed.Round(time.Millisecond).String()}

	if out != nil && runErr == nil {
		v.Success = out.Success
		v.Conditional = out.Conditional
		v.Attempts = out.Attempts
		v.ImagesDir = out.ImagesDir
		v.TechScore = out.TechScore
		v.TechGrade = out.TechGrade
		v.CreativeScore = out.CreativeScore
		v.CreativeGrade = out.CreativeGrade
		v.ScoreHistory = out.ScoreHistory
		return v
	}

	var gf *retry.GateFailureError
	if errors.As(runErr, &gf) {
		v.FailPoint = string(gf.FailPoint)
		v.Message = gf.Message
		v.Attempts = gf.Attempts
		v.ScoreHistory = gf.History
		v.TechScore = lastScore(gf.History, models.PhaseTechnical)
		v.CreativeScore = lastScore(gf.History, models.PhaseCreative)
		v.TechGrade = gradeIfScored(gf.History, models.PhaseTechnical)
		v.CreativeGrade = gradeIfScored(gf.History, models.PhaseCreative)
		return v
	}
	if runErr != nil {
		v.Message = runErr.Error()
	}
	return v
}

func lastScore(history []models.ScoreEntry, phase models.Phase) float64 {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Phase == phase {
			return history[i].Score
		}
	}
	return 0
}

func gradeIfScored(history []models.ScoreEntry, phase models.Phase) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Phase == phase {
			return gate.Grade(history[i].Score)
		}
	}
	return ""
}

func ledgerRun(v verdictFile, tier models.SafetyTier, started, finished time.Time) store.Run {
	return store.Run{
		ID:            v.RunID,
		Topic:         v.Topic,
		Tier:          tier,
		Success:       v.Success,
		Conditional:   v.Conditional,
		FailPoint:     v.FailPoint,
		Attempts:      v.Attempts,
		TechScore:     v.TechScore,
		CreativeScore: v.CreativeScore,
		Message:       v.Message,
		StartedAt:     started,
		FinishedAt:    finished,
	}
}

func writeVerdict(path string, v verdictFile) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// listImages returns the image files in dir in name order. An empty dir
// name yields no images.
func listImages(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
