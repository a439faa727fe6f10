package httpapi

import (
	"net/http"
	"strings"

	"securetask.org/internal/auth"
)

var adminRequirement = auth.Requirement{
	Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
	Permissions: []auth.Permission{auth.PermUserRead},
}

func (a *API) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	switch strings.TrimPrefix(r.URL.Path, "/api/admin/") {
	case "stats":
		a.adminStats(w, r)
	case "dashboard":
		a.adminDashboard(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) adminStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, adminRequirement); !ok {
		return
	}
	stats, err := a.admin.Stats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) adminDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, adminRequirement); !ok {
		return
	}
	dash, err := a.admin.DashboardData(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
