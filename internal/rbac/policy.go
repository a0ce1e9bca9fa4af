package rbac

import (
	"sort"
	"strings"
)

// Policy maps a role to the permissions it is granted. A grant of "*"
// covers everything and a trailing "*" covers a prefix ("result:*").
type Policy map[string][]string

// Grants reports whether role holds perm.
func (p Policy) Grants(role, perm string) bool {
	for _, g := range p[role] {
		if g == "*" || g == perm {
			return true
		}
		if prefix, ok := strings.CutSuffix(g, "*"); ok && strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}

// GrantsAny reports whether role holds at least one of perms.
func (p Policy) GrantsAny(role string, perms ...string) bool {
	for _, perm := range perms {
		if p.Grants(role, perm) {
			return true
		}
	}
	return false
}

// Roles lists the roles the policy knows, sorted.
func (p Policy) Roles() []string {
	out := make([]string, 0, len(p))
	for r := range p {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
