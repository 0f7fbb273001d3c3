package rbac

import "context"

type roleKey struct{}

// WithRole stores the caller's role, as read from the bearer token.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns "" for anonymous requests.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
