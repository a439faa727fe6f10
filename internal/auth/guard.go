package auth

import "fmt"

// Requirement declares the access rules for one operation: an allow-list of
// roles and a set of required permissions. Both use OR semantics and an
// empty list always permits, so the zero Requirement describes an endpoint
// open to any authenticated caller.
type Requirement struct {
	Roles       []Role
	Permissions []Permission
}

// CheckRoles enforces the role allow-list. An empty list permits.
func CheckRoles(principal Principal, allowed []Role) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if principal.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s is not permitted", ErrForbidden, principal.Role)
}

// CheckPermissions enforces the required-permission set. An empty set
// permits; otherwise any single matching permission suffices.
func CheckPermissions(principal Principal, required []Permission) error {
	if len(required) == 0 {
		return nil
	}
	for _, perm := range required {
		if principal.HasPermission(perm) {
			return nil
		}
	}
	return fmt.Errorf("%w: insufficient permissions", ErrForbidden)
}

// CheckOrganization compares the organization a resource claims to belong to
// against the principal's own. A zero resourceOrgID means the request did not
// carry an organization reference (for example a bare path id); such requests
// are unscoped here and the service layer does the real scoping. Every role
// gets an exact-equality check only: descendant organizations are not
// considered at the guard layer even for owners and admins.
func CheckOrganization(principal Principal, resourceOrgID int64) error {
	if resourceOrgID == 0 {
		return nil
	}
	if principal.OrganizationID == resourceOrgID {
		return nil
	}
	return fmt.Errorf("%w: resource belongs to different organization or hierarchy", ErrForbidden)
}

// Authorize runs the role guard and then the permission guard for one
// operation. Pure function of the principal, the requirement and the static
// catalog; repeated evaluation always yields the same result.
func Authorize(principal Principal, req Requirement) error {
	if err := CheckRoles(principal, req.Roles); err != nil {
		return err
	}
	return CheckPermissions(principal, req.Permissions)
}
