// Package retry drives the bounded generate/review loop for one ReviewItem.
package retry

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// State is a node of the retry loop.
type State string

const (
	StateGenerating     State = "GENERATING"
	StateTechReview     State = "TECH_REVIEW"
	StateCreativeReview State = "CREATIVE_REVIEW"
	StateRetry          State = "RETRY"
	StateDone           State = "DONE"
	StateTerminalFail   State = "TERMINAL_FAIL"
)

// IsTerminal returns true for DONE and TERMINAL_FAIL.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateTerminalFail
}

// Event triggers state transitions.
type Event interface {
	retryEventMarker()
}

// Event types for the retry loop.
type (
	// GeneratedEvent is sent when the regenerator produced an item.
	GeneratedEvent struct{}

	// GenerationFailedEvent is sent when regeneration returned an error.
	GenerationFailedEvent struct {
		Err error
	}

	// TechVerdictEvent carries the technical review verdict.
	TechVerdictEvent struct {
		Verdict models.Verdict
	}

	// CreativeVerdictEvent carries the creative review verdict.
	CreativeVerdictEvent struct {
		Verdict models.Verdict
	}

	// ReviewFailedEvent is sent when a review phase could not run.
	ReviewFailedEvent struct {
		Err error
	}

	// BackoffElapsedEvent is sent when the wait before the next attempt ends.
	BackoffElapsedEvent struct{}

	// CancelledEvent is sent when the run's context is done.
	CancelledEvent struct{}

	// UnrecoverableEvent ends the loop regardless of remaining attempts.
	UnrecoverableEvent struct {
		Err error
	}
)

func (GeneratedEvent) retryEventMarker()        {}
func (GenerationFailedEvent) retryEventMarker() {}
func (TechVerdictEvent) retryEventMarker()      {}
func (CreativeVerdictEvent) retryEventMarker()  {}
func (ReviewFailedEvent) retryEventMarker()     {}
func (BackoffElapsedEvent) retryEventMarker()   {}
func (CancelledEvent) retryEventMarker()        {}
func (UnrecoverableEvent) retryEventMarker()    {}

// ErrInvalidTransition is returned for an event the state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition computes the next state. attempt is the 1-indexed attempt in
// progress. A failed attempt retries only while attempt < maxAttempts.
func Transition(s State, ev Event, attempt, maxAttempts int) (State, error) {
	if s.IsTerminal() {
		return s, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s)
	}

	switch ev.(type) {
	case CancelledEvent, UnrecoverableEvent:
		return StateTerminalFail, nil
	}

	failed := func() State {
		if attempt < maxAttempts {
			return StateRetry
		}
		return StateTerminalFail
	}

	switch s {
	case StateGenerating:
		switch ev.(type) {
		case GeneratedEvent:
			return StateTechReview, nil
		case GenerationFailedEvent:
			return failed(), nil
		}

	case StateTechReview:
		switch e := ev.(type) {
		case TechVerdictEvent:
			if e.Verdict.MayProceed() {
				return StateCreativeReview, nil
			}
			return failed(), nil
		case ReviewFailedEvent:
			return failed(), nil
		}

	case StateCreativeReview:
		switch e := ev.(type) {
		case CreativeVerdictEvent:
			if e.Verdict.MayProceed() {
				return StateDone, nil
			}
			return failed(), nil
		case ReviewFailedEvent:
			return failed(), nil
		}

	case StateRetry:
		if _, ok := ev.(BackoffElapsedEvent); ok {
			return StateGenerating, nil
		}
	}

	return s, fmt.Errorf("%w: %T in state %s", ErrInvalidTransition, ev, s)
}

// failPointFor names where a run that ended from state s on ev failed.
func failPointFor(s State, ev Event) FailPoint {
	if _, ok := ev.(CancelledEvent); ok {
		return FailPointCancelled
	}
	switch s {
	case StateTechReview:
		return FailPointTechReview
	case StateCreativeReview:
		return FailPointCreativeReview
	default:
		return FailPointGeneration
	}
}
