// Package authz implements the access-control core for the admin area:
// role tiers, per-session permission sets, the fail-closed evaluator, and the
// HTTP gate in front of administrative routes.
package authz

import "strings"

// Role is the coarse access tier assigned to a user. Exactly one per user;
// a role change requires re-authentication.
type Role uint8

const (
	// RoleInvalid is the zero value. Every privilege check denies it.
	RoleInvalid Role = iota
	RoleUser
	RoleAdmin
	RoleSuperAdmin
)

// ParseRole decodes a wire role tag. Unknown values map to RoleInvalid so a
// malformed session can never pass a privilege check.
func ParseRole(s string) Role {
	switch strings.TrimSpace(s) {
	case "USER":
		return RoleUser
	case "ADMIN":
		return RoleAdmin
	case "SUPER_ADMIN":
		return RoleSuperAdmin
	default:
		return RoleInvalid
	}
}

// String returns the wire tag for the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	case RoleSuperAdmin:
		return "SUPER_ADMIN"
	default:
		return ""
	}
}

// Privileged reports whether the role may enter the admin area at all.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// PermissionName is the canonical identifier a check is made against
// ("cities.manage"). Matching is exact and case-sensitive; the empty name is
// invalid and never matches anything.
type PermissionName string

// Valid reports whether the name is usable in a check.
func (n PermissionName) Valid() bool {
	return n != "" && !strings.ContainsAny(string(n), " \t\n")
}

// Fine-grained permissions recognised by the admin surface. The catalog is
// owned by the backend; these constants only name the checks the gateway
// itself performs.
const (
	PermAdminsManage     PermissionName = "admins.manage"
	PermUsersView        PermissionName = "users.view"
	PermAdsModerate      PermissionName = "ads.moderate"
	PermReportsManage    PermissionName = "reports.manage"
	PermCitiesManage     PermissionName = "cities.manage"
	PermCategoriesManage PermissionName = "categories.manage"
)

// GatedScopes lists every permission the gateway checks, in the order the
// capability summary reports them.
func GatedScopes() []PermissionName {
	return []PermissionName{
		PermAdminsManage,
		PermUsersView,
		PermAdsModerate,
		PermReportsManage,
		PermCitiesManage,
		PermCategoriesManage,
	}
}

// Permission is one entry of the backend-owned catalog. Resource and Action
// are descriptive metadata; only Name participates in evaluation.
type Permission struct {
	ID          int64          `json:"id"`
	Name        PermissionName `json:"name"`
	Resource    string         `json:"resource"`
	Action      string         `json:"action"`
	Description string         `json:"description,omitempty"`
}

// PermissionSet holds the permissions granted to the current session's admin.
// It preserves the backend's ordering and indexes names for O(1) checks.
// The zero value is the empty set and denies everything.
type PermissionSet struct {
	perms []Permission
	names map[PermissionName]struct{}
}

// NewPermissionSet builds a set from the backend response. Entries with
// invalid names are kept in the listing but never match a check.
func NewPermissionSet(perms []Permission) *PermissionSet {
	set := &PermissionSet{
		perms: make([]Permission, len(perms)),
		names: make(map[PermissionName]struct{}, len(perms)),
	}
	copy(set.perms, perms)
	for _, p := range perms {
		if p.Name.Valid() {
			set.names[p.Name] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the exact name.
func (s *PermissionSet) Has(name PermissionName) bool {
	if s == nil || !name.Valid() {
		return false
	}
	_, ok := s.names[name]
	return ok
}

// Len returns the number of granted permissions.
func (s *PermissionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.perms)
}

// Permissions returns the granted permissions in backend order.
func (s *PermissionSet) Permissions() []Permission {
	if s == nil {
		return nil
	}
	out := make([]Permission, len(s.perms))
	copy(out, s.perms)
	return out
}
