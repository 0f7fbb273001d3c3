package attempt

import (
	"fmt"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

// Policy enforces the attempt cap and the single in-progress rule.
type Policy struct {
	// AllowImprovement permits new attempts after a passing one. The numeric
	// cap still applies.
	AllowImprovement bool
}

func DefaultPolicy() Policy { return Policy{AllowImprovement: true} }

// Decision is the outcome of CanStart.
type Decision struct {
	Allowed       bool
	Reason        string
	AttemptNumber int
	err           error
}

// Err returns nil when allowed, otherwise a *PolicyError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &PolicyError{Reason: d.Reason, Err: d.err}
}

func deny(err error, format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...), err: err}
}

// CanStart decides whether userID may open a new attempt on q. Abandoned
// attempts must be expired by the caller before asking; an in-progress
// attempt does not count toward the cap.
func (p Policy) CanStart(userID string, q quiz.Quiz, prior History) Decision {
	if prior.InProgress != nil {
		return deny(ErrAttemptInProgress, "attempt %s for user %s is still in progress; resume it", prior.InProgress.ID, userID)
	}
	if q.MaxAttempts > 0 && prior.CompletedCount >= q.MaxAttempts {
		return deny(ErrMaxAttemptsReached, "%d of %d attempts used", prior.CompletedCount, q.MaxAttempts)
	}
	if prior.Passed && !p.AllowImprovement {
		return deny(ErrRetakeNotAllowed, "user %s already passed quiz %s", userID, q.ID)
	}
	return Decision{Allowed: true, AttemptNumber: prior.CompletedCount + 1}
}
