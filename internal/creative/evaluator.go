package creative

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// ErrNoBackend is reported when no vision backend is configured.
var ErrNoBackend = errors.New("vision backend not configured")

// Config tunes the evaluators.
type Config struct {
	// SampleSize caps how many leading slides are sent to the model.
	SampleSize int
	// FallbackScore is the category total used when the model is unavailable.
	FallbackScore int
	// NeutralSimilarity is reported when there is no reference set.
	NeutralSimilarity float64
}

// DefaultConfig returns the production evaluator settings.
func DefaultConfig() Config {
	return Config{
		SampleSize:        4,
		FallbackScore:     15,
		NeutralSimilarity: 50,
	}
}

// Evaluator scores one category at a time. A nil backend is allowed and
// means every category falls back.
type Evaluator struct {
	backend Backend
	cfg     Config
	log     *zap.Logger
}

// NewEvaluator creates an Evaluator. log may be nil.
func NewEvaluator(backend Backend, cfg Config, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultConfig().SampleSize
	}
	return &Evaluator{backend: backend, cfg: cfg, log: log}
}

// Evaluate scores images on one category. It never fails: backend errors,
// malformed replies and out-of-range scores all produce the fallback score.
// For the diversity category the similarity against references is always
// computed, model or not.
func (e *Evaluator) Evaluate(ctx context.Context, c Category, images, references []string) models.CategoryScore {
	sample := images
	if len(sample) > e.cfg.SampleSize {
		sample = sample[:e.cfg.SampleSize]
	}

	score, err := e.assess(ctx, c, sample, references).Unpack()
	if err != nil {
		e.log.Warn("creative evaluation fell back",
			zap.String("category", string(c)),
			zap.Int("fallback_score", e.cfg.FallbackScore),
			zap.Error(err))
		score = Fallback(c, e.cfg.FallbackScore)
	}

	if c == CategoryDiversity {
		score.Similarity = Similarity(sample, references, e.cfg.NeutralSimilarity)
	}

	return score
}

// assess asks the backend for a score. Every failure mode, including a
// panicking backend, is returned as an error result.
func (e *Evaluator) assess(ctx context.Context, c Category, sample, references []string) (res fn.Result[models.CategoryScore]) {
	if e.backend == nil {
		return fn.Err[models.CategoryScore](ErrNoBackend)
	}
	if !c.Valid() {
		return fn.Err[models.CategoryScore](fmt.Errorf("unknown category %q", c))
	}

	defer func() {
		if r := recover(); r != nil {
			res = fn.Err[models.CategoryScore](fmt.Errorf("vision backend panic: %v", r))
		}
	}()

	images := sample
	if c == CategoryDiversity && len(references) > 0 {
		images = append(append([]string{}, sample...), references...)
	}

	raw, err := e.backend.Assess(ctx, AssessRequest{
		Category: c,
		Prompt:   buildPrompt(c, len(sample), len(references) > 0),
		Images:   images,
	})
	if err != nil {
		return fn.Err[models.CategoryScore](fmt.Errorf("assess %s: %w", c, err))
	}

	score, err := ParseAssessment(c, raw, len(sample))
	if err != nil {
		return fn.Err[models.CategoryScore](err)
	}
	if err := validateScore(score); err != nil {
		return fn.Err[models.CategoryScore](err)
	}

	return fn.Ok(score)
}

// Panel runs all four categories for a slide set.
type Panel struct {
	evaluator *Evaluator
}

// NewPanel creates a Panel around an Evaluator.
func NewPanel(evaluator *Evaluator) *Panel {
	return &Panel{evaluator: evaluator}
}

// EvaluateAll scores every category in order. A category that falls back
// does not stop the remaining categories from being evaluated.
func (p *Panel) EvaluateAll(ctx context.Context, images, references []string) []models.CategoryScore {
	scores := make([]models.CategoryScore, 0, len(Categories))
	for _, c := range Categories {
		scores = append(scores, p.evaluator.Evaluate(ctx, c, images, references))
	}
	return scores
}
