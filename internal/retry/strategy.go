package retry

import (
	"fmt"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// Strategy is how much of the item the regenerator should redo.
type Strategy string

const (
	// StrategyFull regenerates every slide and caption.
	StrategyFull Strategy = "full"
	// StrategySelective regenerates only the flagged slides.
	StrategySelective Strategy = "selective"
	// StrategyFinal is the last full attempt with all accumulated feedback.
	StrategyFinal Strategy = "final"
	// StrategyManual asks for human intervention.
	StrategyManual Strategy = "manual_escalation"
)

// feedbackWindow bounds how many feedback strings per phase reach the
// improvement prompt.
const feedbackWindow = 2

// SelectStrategy picks the strategy for an attempt. Attempt 2 is selective
// only when problem slides are known.
func SelectStrategy(attempt int, problemSlides []int) Strategy {
	switch {
	case attempt <= 1:
		return StrategyFull
	case attempt == 2:
		if len(problemSlides) > 0 {
			return StrategySelective
		}
		return StrategyFull
	case attempt == 3:
		return StrategyFinal
	default:
		return StrategyManual
	}
}

// SlideHint returns the slide restriction for a strategy.
func SlideHint(s Strategy, problemSlides []int) fn.Option[[]int] {
	if s != StrategySelective || len(problemSlides) == 0 {
		return fn.None[[]int]()
	}
	out := make([]int, len(problemSlides))
	copy(out, problemSlides)
	return fn.Some(out)
}

// BuildImprovementPrompt summarizes the latest feedback per phase for the
// regenerator. It returns "" on the first attempt.
func BuildImprovementPrompt(rc *RetryContext, s Strategy, hint fn.Option[[]int]) string {
	tech := rc.RecentFeedback(models.PhaseTechnical, feedbackWindow)
	creative := rc.RecentFeedback(models.PhaseCreative, feedbackWindow)
	if len(tech) == 0 && len(creative) == 0 && rc.LastError == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Attempt %d of %d (%s regeneration).\n", rc.Attempt, rc.MaxAttempts, s)

	slides := hint.UnwrapOr(nil)
	if len(slides) > 0 {
		parts := make([]string, len(slides))
		for i, idx := range slides {
			parts[i] = fmt.Sprintf("%d", idx)
		}
		fmt.Fprintf(&sb, "Regenerate only slides: %s\n", strings.Join(parts, ", "))
	}

	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n", title)
		for _, f := range items {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	}
	writeSection("Technical review feedback", tech)
	writeSection("Creative review feedback", creative)

	if rc.LastError != nil {
		fmt.Fprintf(&sb, "\n## Previous attempt error\n%v\n", rc.LastError)
	}

	return strings.TrimRight(sb.String(), "\n")
}
