package authz

import (
	"context"
	"net/http"
	"time"
)

// UserBase is the slice of the account record the guards need.
type UserBase struct {
	EmailVerified bool
	Status        Status
}

// GrantStore is the read-only view of the persistence layer this core
// consumes. Implementations filter inactive roles and permissions at the
// query level: a key granted only through an inactive role or an inactive
// permission record must never be returned.
type GrantStore interface {
	// GetUserBase returns the base account record, or ErrNotFound when the
	// user row no longer exists (as opposed to being status-flagged).
	GetUserBase(ctx context.Context, userID string) (UserBase, error)

	// GetUserRoles returns the names of active roles assigned to the user.
	GetUserRoles(ctx context.Context, userID string) ([]string, error)

	// GetUserPermissions returns the keys of active permissions reachable
	// through active roles, unioned with active direct grants.
	GetUserPermissions(ctx context.Context, userID string) ([]string, error)
}

// Session is the metadata yielded by a successfully resolved session.
type Session struct {
	ID        string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionResolver turns an incoming request into an authenticated session.
// A (nil, nil) return means the request carries no usable session and the
// caller is anonymous; errors are reserved for infrastructure faults.
type SessionResolver interface {
	Resolve(r *http.Request) (*Session, error)
}
