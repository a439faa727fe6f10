package auth

import "strings"

// Role is the coarse-grained access level attached to a user account.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole normalizes raw input into a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Permission is a fine-grained resource:action capability.
type Permission string

const (
	PermTaskCreate Permission = "task:create"
	PermTaskRead   Permission = "task:read"
	PermTaskUpdate Permission = "task:update"
	PermTaskDelete Permission = "task:delete"
	PermTaskAssign Permission = "task:assign"
	PermUserCreate Permission = "user:create"
	PermUserRead   Permission = "user:read"
	PermUserUpdate Permission = "user:update"
	PermUserDelete Permission = "user:delete"
	PermOrgCreate  Permission = "org:create"
	PermOrgRead    Permission = "org:read"
	PermOrgUpdate  Permission = "org:update"
	PermOrgDelete  Permission = "org:delete"
	PermAuditRead  Permission = "audit:read"
)

// rolePermissions is the static catalog mapping each role to its grants.
// Owners hold every permission; admins everything except organization
// mutation; viewers can read plus move their own task cards.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete, PermTaskAssign,
		PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
		PermOrgCreate, PermOrgRead, PermOrgUpdate, PermOrgDelete,
		PermAuditRead,
	},
	RoleAdmin: {
		PermTaskCreate, PermTaskRead, PermTaskUpdate, PermTaskDelete, PermTaskAssign,
		PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
		PermOrgRead,
		PermAuditRead,
	},
	RoleViewer: {
		PermTaskRead, PermTaskUpdate,
		PermUserRead,
		PermOrgRead,
	},
}

// PermissionsFor returns the catalog entry for a role. Unknown roles hold
// no permissions.
func PermissionsFor(role Role) []Permission {
	return rolePermissions[role]
}

// HasPermission reports whether the role's grant set contains perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
