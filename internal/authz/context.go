package authz

import "context"

type grantContextKey struct{}

// ContextWithGrant attaches an authorized grant to the context so handlers
// behind a guard can read the caller's profile without another store trip.
func ContextWithGrant(ctx context.Context, grant Grant) context.Context {
	return context.WithValue(ctx, grantContextKey{}, &grant)
}

// GrantFromContext extracts the grant placed by a guard.
func GrantFromContext(ctx context.Context) (Grant, bool) {
	if ctx == nil {
		return Grant{}, false
	}
	v, ok := ctx.Value(grantContextKey{}).(*Grant)
	if !ok || v == nil {
		return Grant{}, false
	}
	return *v, true
}

// UserIDFromContext returns the authenticated user id, if any. Used by the
// audit layer to stamp entries without depending on guard internals.
func UserIDFromContext(ctx context.Context) (string, bool) {
	grant, ok := GrantFromContext(ctx)
	if !ok || grant.Session.UserID == "" {
		return "", false
	}
	return grant.Session.UserID, true
}
