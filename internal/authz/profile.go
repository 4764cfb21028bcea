package authz

import (
	"sort"
	"strings"
)

// Status is the lifecycle state of a user account.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Profile is the authorization view of a user for a single request.
// It is built fresh from current store state on every guarded request and is
// never cached, so a revoked role or permission is honored on the next
// request without an invalidation step.
type Profile struct {
	EmailVerified bool
	Status        Status
	Roles         map[string]struct{}
	Perms         map[string]struct{}
}

// NewProfile assembles a profile from raw role names and permission keys.
// Names are trimmed and deduplicated; empty entries are dropped.
func NewProfile(emailVerified bool, status Status, roles, perms []string) Profile {
	return Profile{
		EmailVerified: emailVerified,
		Status:        status,
		Roles:         toSet(roles),
		Perms:         toSet(perms),
	}
}

// HasRole reports whether the profile holds at least one of the given role
// names. An empty list is no requirement and always matches.
func (p Profile) HasRole(names ...string) bool {
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if _, ok := p.Roles[name]; ok {
			return true
		}
	}
	return false
}

// HasPermission reports whether the profile holds at least one of the given
// permission keys. An empty list is no requirement and always matches.
func (p Profile) HasPermission(keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	for _, key := range keys {
		if _, ok := p.Perms[key]; ok {
			return true
		}
	}
	return false
}

// RoleNames returns the profile's role names in sorted order.
func (p Profile) RoleNames() []string {
	return sortedKeys(p.Roles)
}

// PermissionKeys returns the profile's permission keys in sorted order.
func (p Profile) PermissionKeys() []string {
	return sortedKeys(p.Perms)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
