package pg

import (
	"context"
	"database/sql"
	"errors"

	"examgate.org/internal/authz"
)

var _ authz.GrantStore = (*Store)(nil)

// GetUserBase loads the account fields the status gate needs. A missing row
// maps to authz.ErrNotFound so the guard can treat the caller as logged out.
func (s *Store) GetUserBase(ctx context.Context, userID string) (authz.UserBase, error) {
	row := s.db.QueryRowContext(ctx,
		`select email_verified, status from users where id=$1`, userID)
	var base authz.UserBase
	if err := row.Scan(&base.EmailVerified, &base.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authz.UserBase{}, authz.ErrNotFound
		}
		return authz.UserBase{}, err
	}
	return base, nil
}

// GetUserRoles returns the names of the user's assigned roles, restricted to
// active roles at the query level.
func (s *Store) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.name from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1 and r.is_active
		order by r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetUserPermissions returns permission keys reachable through active role
// membership unioned with active direct grants. Inactive roles and inactive
// permission records are filtered here, at build time; the policy evaluator
// never sees them.
func (s *Store) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.resource || '.' || p.action as key
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		join roles r on r.id = rp.role_id
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1 and r.is_active and p.is_active
		union
		select p.resource || '.' || p.action
		from permissions p
		join user_permissions up on up.permission_id = p.id
		where up.user_id = $1 and p.is_active
		order by key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
