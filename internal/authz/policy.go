package authz

// Policy describes what a guarded surface demands from a caller. The zero
// value is the authenticated-only policy: any caller with a valid session
// and a live account passes.
type Policy struct {
	// Roles the caller must hold at least one of. Empty means no role
	// requirement.
	Roles []string

	// Perms the caller must hold at least one of. Empty means no permission
	// requirement. When both Roles and Perms are set the caller must satisfy
	// both; there is no role-or-permission mode.
	Perms []string

	// Status gate flags, applied before the role/permission check.
	RequireVerifiedEmail bool
	BlockSuspended       bool
	BlockDeleted         bool

	// ForbiddenRedirect overrides the default redirect target for page
	// guards. Ignored by API guards.
	ForbiddenRedirect string
}

// Can evaluates the role and permission requirements of the policy against
// the profile. It is pure: no I/O, no status gating. UI-adjacent callers use
// it for conditional rendering without re-running the full guard sequence.
func Can(p Profile, policy Policy) bool {
	return p.HasRole(policy.Roles...) && p.HasPermission(policy.Perms...)
}
