package attempt

import (
	"errors"
	"fmt"
)

var (
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptInProgress  = errors.New("an attempt is already in progress")
	ErrDuplicateAttempt   = errors.New("attempt id already exists")
	ErrMaxAttemptsReached = errors.New("maximum attempts reached")
	ErrRetakeNotAllowed   = errors.New("quiz already passed; retake not allowed")
	ErrNoActiveAttempt    = errors.New("no active attempt")
	ErrInvalidState       = errors.New("invalid attempt state")
	ErrUnknownQuestion    = errors.New("question not in attempt")
	ErrQuestionLocked     = errors.New("question already graded and locked")
	ErrOutOfOrder         = errors.New("question must be answered in order")
	ErrTimeExpired        = errors.New("time limit expired")
	ErrNotCompleted       = errors.New("attempt not completed")
	ErrNotPending         = errors.New("answer is not pending manual grading")
	ErrInvalidGrade       = errors.New("invalid manual grade")
	ErrForbidden          = errors.New("forbidden")
)

// PolicyError is a start() denial with a human-readable reason. It unwraps to
// ErrAttemptInProgress, ErrMaxAttemptsReached or ErrRetakeNotAllowed.
type PolicyError struct {
	Reason string
	Err    error
}

func (e *PolicyError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.Reason) }
func (e *PolicyError) Unwrap() error { return e.Err }
