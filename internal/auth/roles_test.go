package auth

import "testing"

func TestCatalogShape(t *testing.T) {
	if got := len(PermissionsFor(RoleOwner)); got != 14 {
		t.Fatalf("owner should hold all 14 permissions, got %d", got)
	}

	for _, perm := range []Permission{PermOrgCreate, PermOrgUpdate, PermOrgDelete} {
		if HasPermission(RoleAdmin, perm) {
			t.Fatalf("admin must not hold %s", perm)
		}
	}
	if !HasPermission(RoleAdmin, PermAuditRead) {
		t.Fatalf("admin should hold audit:read")
	}

	viewerAllowed := map[Permission]bool{
		PermTaskRead: true, PermTaskUpdate: true, PermUserRead: true, PermOrgRead: true,
	}
	for _, perm := range PermissionsFor(RoleViewer) {
		if !viewerAllowed[perm] {
			t.Fatalf("viewer unexpectedly holds %s", perm)
		}
	}
	if HasPermission(RoleViewer, PermAuditRead) {
		t.Fatalf("viewer must not hold audit:read")
	}
	if HasPermission(RoleViewer, PermTaskDelete) || HasPermission(RoleViewer, PermTaskCreate) {
		t.Fatalf("viewer must not hold create/delete permissions")
	}
}

func TestOwnerSupersetOfAdmin(t *testing.T) {
	for _, perm := range PermissionsFor(RoleAdmin) {
		if !HasPermission(RoleOwner, perm) {
			t.Fatalf("owner missing admin permission %s", perm)
		}
	}
}

func TestUnknownRoleHoldsNothing(t *testing.T) {
	if perms := PermissionsFor(Role("manager")); perms != nil {
		t.Fatalf("unknown role should hold no permissions, got %v", perms)
	}
}

func TestParseRole(t *testing.T) {
	if role, ok := ParseRole("  ADMIN "); !ok || role != RoleAdmin {
		t.Fatalf("expected admin, got %q (%v)", role, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("root must not parse")
	}
}
