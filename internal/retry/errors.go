package retry

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// FailPoint names the step at which a run terminally failed.
type FailPoint string

const (
	FailPointTechReview     FailPoint = "tech_review"
	FailPointCreativeReview FailPoint = "creative_review"
	FailPointGeneration     FailPoint = "generation"
	FailPointCancelled      FailPoint = "cancelled"
)

// ErrGateFailure matches every *GateFailureError via errors.Is.
var ErrGateFailure = errors.New("quality gate failed")

// GateFailureError is the only error meaning the content must not be
// published. Callers must not discard it.
type GateFailureError struct {
	FailPoint FailPoint
	Attempts  int
	LastScore float64
	Message   string
	History   []models.ScoreEntry
	// Cause is the underlying error when the failure was not a verdict.
	Cause error
}

func (e *GateFailureError) Error() string {
	return fmt.Sprintf("quality gate failed at %s after %d attempt(s) (last score %.1f): %s",
		e.FailPoint, e.Attempts, e.LastScore, e.Message)
}

// Is reports whether target is ErrGateFailure.
func (e *GateFailureError) Is(target error) bool {
	return target == ErrGateFailure
}

func (e *GateFailureError) Unwrap() error {
	return e.Cause
}

type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return e.err.Error() }
func (e *unrecoverableError) Unwrap() error { return e.err }

// Unrecoverable marks err so that the loop stops without using the
// remaining attempts. Returns nil for a nil err.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &unrecoverableError{err: err}
}

// IsUnrecoverable reports whether err was marked with Unrecoverable.
func IsUnrecoverable(err error) bool {
	var u *unrecoverableError
	return errors.As(err, &u)
}
