package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Builder synthesizes request-scoped profiles from the grant store. The
// store is injected so tests can substitute fakes and no package-level
// connection state leaks across requests.
type Builder struct {
	store GrantStore
}

// NewBuilder constructs a Builder.
func NewBuilder(store GrantStore) (*Builder, error) {
	if store == nil {
		return nil, errors.New("authz: grant store is required")
	}
	return &Builder{store: store}, nil
}

// Build reads the user's current grant state and assembles a Profile.
// Every call re-reads the store; nothing is cached. Returns ErrNotFound
// when the account row has vanished.
func (b *Builder) Build(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	base, err := b.store.GetUserBase(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	roles, err := b.store.GetUserRoles(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("load roles for %s: %w", userID, err)
	}
	perms, err := b.store.GetUserPermissions(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("load permissions for %s: %w", userID, err)
	}
	return NewProfile(base.EmailVerified, base.Status, roles, perms), nil
}
