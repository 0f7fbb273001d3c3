package auth

import (
	"context"
	"errors"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/rbac"
)

type ctxKey string

const ctxKeySub ctxKey = "sub"

var ErrNoSubject = errors.New("no authenticated subject")

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Identity resolves the caller from what JWTMiddleware stored in the context.
// Roles holding attempt:grade count as instructors.
type Identity struct {
	Checker *rbac.Checker
}

func (id Identity) CurrentUserID(ctx context.Context) (string, error) {
	if sub := SubjectFromContext(ctx); sub != "" {
		return sub, nil
	}
	return "", ErrNoSubject
}

func (id Identity) IsInstructor(ctx context.Context) bool {
	c := id.Checker
	if c == nil {
		c = rbac.NewChecker(nil)
	}
	return c.Has(rbac.RoleFromContext(ctx), rbac.PermAttemptGrade)
}
