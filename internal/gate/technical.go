package gate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ShayCichocki/pawgate/internal/rules"
	"github.com/ShayCichocki/pawgate/pkg/models"
)

// TechConfig holds the technical review rules.
type TechConfig struct {
	Width  int
	Height int

	MinSlides         int
	MaxSlides         int
	RecommendedSlides int

	// NamingPattern is the slide filename regex; empty means the default.
	NamingPattern string
	SafeArea      rules.SafeArea
	Caption       rules.CaptionRules
	// Platforms whose captions are required. A missing caption is checked
	// as an empty string so every element is reported.
	Platforms  []models.Platform
	Thresholds Thresholds
	// Mandatory lists check IDs whose failure caps the verdict at FAIL
	// regardless of score. Caption IDs match under any platform prefix.
	Mandatory []string
}

// DefaultMandatoryChecks are the zero-tolerance resolution check and the
// prohibition section, which only fails for tiers that require it.
func DefaultMandatoryChecks() []string {
	return []string{rules.CheckIDResolution, rules.CheckIDProhibition}
}

// DefaultTechConfig returns the production carousel rules.
func DefaultTechConfig() TechConfig {
	return TechConfig{
		Width:             1080,
		Height:            1080,
		MinSlides:         4,
		MaxSlides:         10,
		RecommendedSlides: 7,
		SafeArea:          rules.DefaultSafeArea(),
		Caption:           rules.DefaultCaptionRules(),
		Platforms:         []models.Platform{models.PlatformInstagram},
		Thresholds:        DefaultThresholds(),
		Mandatory:         DefaultMandatoryChecks(),
	}
}

// TechnicalReviewer runs the deterministic rule battery over a ReviewItem.
type TechnicalReviewer struct {
	cfg    TechConfig
	naming *regexp.Regexp
}

// NewTechnicalReviewer validates cfg and compiles the naming pattern.
func NewTechnicalReviewer(cfg TechConfig) (*TechnicalReviewer, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinSlides > cfg.MaxSlides {
		return nil, fmt.Errorf("min slides %d exceeds max %d", cfg.MinSlides, cfg.MaxSlides)
	}
	re, err := rules.CompileNamingPattern(cfg.NamingPattern)
	if err != nil {
		return nil, err
	}
	return &TechnicalReviewer{cfg: cfg, naming: re}, nil
}

// Review scores item as earned points over max points across every check.
// A failed mandatory check forces FAIL whatever the score.
func (r *TechnicalReviewer) Review(item models.ReviewItem) models.GateVerdict {
	checks := r.Checks(item)

	earned, max := 0, 0
	var failures []string
	blocked := false
	problems := map[int]bool{}
	for _, c := range checks {
		earned += c.Score
		max += c.MaxScore
		if !c.Passed {
			failures = append(failures, c.Reason)
			blocked = blocked || r.mandatory(c.ID)
			if c.Slide != models.NoSlide {
				problems[c.Slide] = true
			}
		}
	}

	var score float64
	if max > 0 {
		score = float64(earned) / float64(max) * 100
	}

	verdict := Classify(score, r.cfg.Thresholds)
	if blocked {
		verdict = models.VerdictFail
	}

	return models.GateVerdict{
		Phase:         models.PhaseTechnical,
		Score:         score,
		Verdict:       verdict,
		Grade:         Grade(score),
		Checks:        checks,
		Feedback:      strings.Join(failures, "\n"),
		ProblemSlides: sortedKeys(problems),
	}
}

// Checks runs every rule without aggregating, in a fixed order: file count,
// per-slide resolution/naming/text position, then captions per platform.
func (r *TechnicalReviewer) Checks(item models.ReviewItem) []models.CheckResult {
	checks := []models.CheckResult{
		rules.CheckFileCount(item.SlidePaths(), r.cfg.MinSlides, r.cfg.MaxSlides, r.cfg.RecommendedSlides),
	}

	for _, s := range item.Slides {
		checks = append(checks,
			rules.CheckResolution(s.Path, r.cfg.Width, r.cfg.Height).ForSlide(s.Index),
			rules.CheckNamingPattern(s.Path, r.naming).ForSlide(s.Index),
			rules.CheckTextPosition(s, r.cfg.SafeArea),
		)
	}

	for _, p := range r.cfg.Platforms {
		caption, _ := item.Caption(p)
		report := rules.CheckCaptionStructure(caption, item.Tier, r.cfg.Caption)
		for _, c := range report.Checks {
			c.ID = string(p) + "." + c.ID
			if !c.Passed {
				c.Reason = fmt.Sprintf("[%s] %s", p, c.Reason)
			}
			checks = append(checks, c)
		}
	}

	return checks
}

func (r *TechnicalReviewer) mandatory(id string) bool {
	for _, m := range r.cfg.Mandatory {
		if id == m || strings.HasSuffix(id, "."+m) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
