package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Outcome is the accepted result of a run. Downstream publishing uploads
// it, flagged for human review when Conditional is set.
type Outcome struct {
	Success         bool                `json:"success"`
	Topic           string              `json:"topic"`
	ImagesDir       string              `json:"images_dir"`
	TechScore       float64             `json:"tech_score"`
	TechGrade       string              `json:"tech_grade"`
	TechVerdict     models.Verdict      `json:"tech_verdict"`
	CreativeScore   float64             `json:"creative_score"`
	CreativeGrade   string              `json:"creative_grade"`
	CreativeVerdict models.Verdict      `json:"creative_verdict"`
	Attempts        int                 `json:"attempts"`
	ScoreHistory    []models.ScoreEntry `json:"score_history"`
	Duration        time.Duration       `json:"duration"`
	Conditional     bool                `json:"conditional"`
	Item            models.ReviewItem   `json:"item"`
}

// Orchestrator runs the retry loop. One Orchestrator may serve many items
// concurrently; each Run owns its own RetryContext.
type Orchestrator struct {
	tech     TechnicalReview
	creative CreativeReview
	regen    Regenerator
	opts     orchestratorOptions
}

// New creates an Orchestrator.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Technical == nil || req.Creative == nil || req.Regenerator == nil {
		return nil, errors.New("technical, creative and regenerator are required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Orchestrator{
		tech:     req.Technical,
		creative: req.Creative,
		regen:    req.Regenerator,
		opts:     o,
	}, nil
}

// runState is the per-Run scratch space.
type runState struct {
	rc       *RetryContext
	seed     models.ReviewItem
	item     models.ReviewItem
	tech     models.GateVerdict
	creative models.GateVerdict
	last     models.GateVerdict
	outputs  []string
	log      *zap.Logger
}

// Run drives seed through generate, technical review and creative review
// until both phases may proceed or attempts run out. Any non-nil error is
// a *GateFailureError and the content must not be published.
func (o *Orchestrator) Run(ctx context.Context, seed models.ReviewItem) (*Outcome, error) {
	start := o.opts.now()
	rs := &runState{
		rc:   NewRetryContext(o.opts.maxAttempts),
		seed: seed,
		log: o.opts.log.With(
			zap.String("topic", seed.Topic),
			zap.String("tier", string(seed.Tier))),
	}
	rs.rc.Topic = seed.Topic
	rs.rc.now = o.opts.now

	state := StateGenerating
	for {
		ev := o.step(ctx, rs, state)

		next, err := Transition(state, ev, rs.rc.Attempt, rs.rc.MaxAttempts)
		if err != nil {
			rs.log.Error("retry loop rejected event", zap.Error(err))
			ev, next = UnrecoverableEvent{Err: err}, StateTerminalFail
		}
		rs.log.Debug("retry transition",
			zap.String("from", string(state)),
			zap.String("to", string(next)),
			zap.Int("attempt", rs.rc.Attempt))

		switch next {
		case StateRetry:
			o.opts.reporter.LogNeedsRevision(o.revision(rs, state, ev))
		case StateTerminalFail:
			return nil, o.fail(rs, failPointFor(state, ev), ev)
		case StateDone:
			return o.succeed(rs, start), nil
		}
		state = next
	}
}

// step performs the work of one state and returns the resulting event.
func (o *Orchestrator) step(ctx context.Context, rs *runState, state State) Event {
	switch state {
	case StateGenerating:
		return o.generate(ctx, rs)

	case StateTechReview:
		v, err := safeReview(func() models.GateVerdict { return o.tech.Review(rs.item) })
		if err != nil {
			rs.rc.LastError = err
			rs.log.Warn("technical review failed", zap.Error(err))
			return ReviewFailedEvent{Err: err}
		}
		o.record(rs, v)
		rs.tech = v
		return TechVerdictEvent{Verdict: v.Verdict}

	case StateCreativeReview:
		v, err := safeReview(func() models.GateVerdict {
			return o.creative.Review(ctx, rs.item, o.opts.references)
		})
		if err != nil {
			rs.rc.LastError = err
			rs.log.Warn("creative review failed", zap.Error(err))
			return ReviewFailedEvent{Err: err}
		}
		o.record(rs, v)
		rs.creative = v
		return CreativeVerdictEvent{Verdict: v.Verdict}

	case StateRetry:
		delay := o.opts.backoff.Delay(rs.rc.Attempt + 1)
		rs.log.Info("waiting before next attempt",
			zap.Int("next_attempt", rs.rc.Attempt+1),
			zap.Duration("delay", delay))
		if err := o.opts.sleep(ctx, delay); err != nil {
			return CancelledEvent{}
		}
		rs.rc.NextAttempt()
		return BackoffElapsedEvent{}
	}

	return UnrecoverableEvent{Err: fmt.Errorf("no work defined for state %s", state)}
}

func (o *Orchestrator) generate(ctx context.Context, rs *runState) (ev Event) {
	if ctx.Err() != nil {
		return CancelledEvent{}
	}

	rc := rs.rc
	problems := rc.ProblemSlides()
	strategy := SelectStrategy(rc.Attempt, problems)
	hint := SlideHint(strategy, problems)
	req := RegenerateRequest{
		Attempt:     rc.Attempt,
		MaxAttempts: rc.MaxAttempts,
		Strategy:    strategy,
		Prompt:      BuildImprovementPrompt(rc, strategy, hint),
		Slides:      hint,
		Seed:        rs.seed,
		Previous:    rs.item,
	}
	o.opts.recorder.ObserveAttempt(strategy)
	rs.log.Info("generating", zap.Int("attempt", rc.Attempt), zap.String("strategy", string(strategy)))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("regenerator panic: %v", r)
			rc.LastError = err
			ev = GenerationFailedEvent{Err: err}
		}
	}()

	item, err := o.regen.Regenerate(ctx, req)
	switch {
	case err != nil && IsUnrecoverable(err):
		rc.LastError = err
		return UnrecoverableEvent{Err: err}
	case err != nil && ctx.Err() != nil:
		rc.LastError = err
		return CancelledEvent{}
	case err != nil:
		rc.LastError = err
		rs.log.Warn("generation failed", zap.Int("attempt", rc.Attempt), zap.Error(err))
		return GenerationFailedEvent{Err: err}
	}

	if item.Tier == "" {
		item.Tier = rs.seed.Tier
	}
	if item.Tier != rs.seed.Tier {
		if item.ImagesDir != "" {
			rs.outputs = append(rs.outputs, item.ImagesDir)
		}
		err := fmt.Errorf("safety tier changed from %s to %s", rs.seed.Tier, item.Tier)
		rc.LastError = err
		return GenerationFailedEvent{Err: err}
	}
	if item.Attempt == 0 {
		item.Attempt = rc.Attempt
	}

	rs.item = item
	rc.LastError = nil
	if item.ImagesDir != "" {
		rs.outputs = append(rs.outputs, item.ImagesDir)
	}
	return GeneratedEvent{}
}

func (o *Orchestrator) record(rs *runState, v models.GateVerdict) {
	rs.rc.Record(v)
	rs.last = v
	o.opts.recorder.ObserveVerdict(v)

	fields := []zap.Field{
		zap.String("phase", string(v.Phase)),
		zap.Int("attempt", rs.rc.Attempt),
		zap.Float64("score", v.Score),
		zap.String("grade", v.Grade),
		zap.String("verdict", string(v.Verdict)),
	}
	if v.Verdict == models.VerdictFail {
		rs.log.Warn("review verdict", fields...)
		return
	}
	rs.log.Info("review verdict", fields...)
}

// revision builds the needs-revision record for a failed attempt.
func (o *Orchestrator) revision(rs *runState, state State, ev Event) NeedsRevision {
	rec := NeedsRevision{
		Topic:       rs.seed.Topic,
		Attempt:     rs.rc.Attempt,
		MaxAttempts: rs.rc.MaxAttempts,
		Timestamp:   o.opts.now(),
	}
	switch e := ev.(type) {
	case TechVerdictEvent, CreativeVerdictEvent:
		rec.Phase = string(rs.last.Phase)
		rec.Score = rs.last.Score
		rec.Feedback = rs.last.Feedback
		rec.ProblemSlides = rs.last.ProblemSlides
	case GenerationFailedEvent:
		rec.Phase = string(FailPointGeneration)
		rec.Feedback = e.Err.Error()
	case ReviewFailedEvent:
		rec.Phase = string(failPointFor(state, ev))
		rec.Feedback = e.Err.Error()
	}
	return rec
}

func (o *Orchestrator) fail(rs *runState, fp FailPoint, ev Event) error {
	o.cleanup(rs)

	rc := rs.rc
	gfe := &GateFailureError{
		FailPoint: fp,
		Attempts:  rc.Attempt,
		LastScore: rc.LastScore(),
		History:   rc.HistoryCopy(),
	}
	switch e := ev.(type) {
	case TechVerdictEvent, CreativeVerdictEvent:
		gfe.Message = fmt.Sprintf("%s verdict %s with score %.1f after %d of %d attempts",
			rs.last.Phase, rs.last.Verdict, rs.last.Score, rc.Attempt, rc.MaxAttempts)
	case CancelledEvent:
		gfe.Message = "run cancelled"
		gfe.Cause = context.Canceled
	case GenerationFailedEvent:
		gfe.Message, gfe.Cause = e.Err.Error(), e.Err
	case ReviewFailedEvent:
		gfe.Message, gfe.Cause = e.Err.Error(), e.Err
	case UnrecoverableEvent:
		gfe.Message, gfe.Cause = "unrecoverable: "+e.Err.Error(), e.Err
	}

	o.opts.reporter.LogGateFailure(rc, fp, rs.last)
	o.opts.recorder.ObserveOutcome(false, fp, rc.Attempt)
	rs.log.Error("quality gate failed",
		zap.String("fail_point", string(fp)),
		zap.Int("attempts", rc.Attempt),
		zap.Float64("last_score", gfe.LastScore),
		zap.String("message", gfe.Message))

	return gfe
}

func (o *Orchestrator) succeed(rs *runState, start time.Time) *Outcome {
	o.cleanup(rs)
	o.opts.recorder.ObserveOutcome(true, "", rs.rc.Attempt)

	out := &Outcome{
		Success:         true,
		Topic:           rs.seed.Topic,
		ImagesDir:       rs.item.ImagesDir,
		TechScore:       rs.tech.Score,
		TechGrade:       rs.tech.Grade,
		TechVerdict:     rs.tech.Verdict,
		CreativeScore:   rs.creative.Score,
		CreativeGrade:   rs.creative.Grade,
		CreativeVerdict: rs.creative.Verdict,
		Attempts:        rs.rc.Attempt,
		ScoreHistory:    rs.rc.HistoryCopy(),
		Duration:        o.opts.now().Sub(start),
		Conditional: rs.tech.Verdict == models.VerdictConditional ||
			rs.creative.Verdict == models.VerdictConditional,
		Item: rs.item,
	}
	rs.log.Info("quality gate passed",
		zap.Int("attempts", out.Attempts),
		zap.Float64("tech_score", out.TechScore),
		zap.Float64("creative_score", out.CreativeScore),
		zap.Bool("conditional", out.Conditional))
	return out
}

// cleanup removes regenerated output dirs except the latest one. The seed
// directory belongs to the caller and is never removed.
func (o *Orchestrator) cleanup(rs *runState) {
	keep := map[string]bool{rs.item.ImagesDir: true, rs.seed.ImagesDir: true}
	for _, dir := range rs.outputs {
		if keep[dir] {
			continue
		}
		keep[dir] = true
		if err := o.opts.removeAll(dir); err != nil {
			rs.log.Warn("cleanup failed", zap.String("dir", dir), zap.Error(err))
		}
	}
}

func safeReview(f func() models.GateVerdict) (v models.GateVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("review panic: %v", r)
		}
	}()
	return f(), nil
}
