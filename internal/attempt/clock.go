package attempt

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IdentityContext resolves the caller from the request context.
type IdentityContext interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Instructor is optionally implemented by an IdentityContext to grant access
// to other users' attempts and to manual grading.
type Instructor interface {
	IsInstructor(ctx context.Context) bool
}

// StaticIdentity always returns the same user. Handy for CLIs and tests.
type StaticIdentity string

func (s StaticIdentity) CurrentUserID(context.Context) (string, error) {
	if s == "" {
		return "", ErrForbidden
	}
	return string(s), nil
}
