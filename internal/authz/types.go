package authz

import "time"

// Role groups permissions. Roles are administered outside this core and are
// read-only here; an inactive role contributes nothing to a profile.
type Role struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a fine-grained capability identified by its resource and
// action. Policy checks compare the derived key only, so renaming a
// permission's numeric identity never touches policy code.
type Permission struct {
	ID        string
	Resource  string
	Action    string
	IsActive  bool
	CreatedAt time.Time
}

// Key returns the stable string identity used in policy checks.
func (p Permission) Key() string {
	return p.Resource + "." + p.Action
}
