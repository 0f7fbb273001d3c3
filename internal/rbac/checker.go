package rbac

import "strings"

// Checker decides whether a role holds a permission. Permissions are
// "resource:action" strings; a grant of "resource:*" covers every action on
// that resource and a bare "*" covers everything.
type Checker struct {
	roles map[string][]string
}

// NewChecker builds a checker over the given grants, or RolePermissions when
// roles is nil.
func NewChecker(roles map[string][]string) *Checker {
	if roles == nil {
		roles = RolePermissions
	}
	return &Checker{roles: roles}
}

func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.roles[role] {
		if grants(g, perm) {
			return true
		}
	}
	return false
}

// Any reports whether role holds at least one of perms.
func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// grants matches one grant against perm. A wildcard stands for a whole
// action: "attempt:*" covers "attempt:grade" but neither "attempts:grade"
// nor a bare "attempt".
func grants(grant, perm string) bool {
	if grant == "*" || grant == perm {
		return true
	}
	resource, ok := strings.CutSuffix(grant, ":*")
	if !ok {
		return false
	}
	r, action, found := strings.Cut(perm, ":")
	return found && action != "" && r == resource
}
