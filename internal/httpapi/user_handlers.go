package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"securetask.org/internal/auth"
	"securetask.org/internal/user"
)

type setRoleRequest struct {
	Role auth.Role `json:"role"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	switch path {
	case "":
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	case "stats":
		a.userStats(w, r)
		return
	case "for-assignment":
		a.usersForAssignment(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, id)
		case http.MethodPatch, http.MethodPut:
			a.updateUser(w, r, id)
		case http.MethodDelete:
			a.deleteUser(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "role":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setUserRole(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermUserCreate},
	})
	if !ok {
		return
	}
	var params user.CreateParams
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.users.Create(r.Context(), principal, params)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/users/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermUserRead},
	})
	if !ok {
		return
	}
	scope, err := a.scope(r, principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	users, err := a.users.List(r.Context(), scope)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermUserRead},
	}); !ok {
		return
	}
	stats, err := a.users.Stats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) usersForAssignment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermUserRead},
	})
	if !ok {
		return
	}
	scope, err := a.scope(r, principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	options, err := a.users.ListForAssignment(r.Context(), scope)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if options == nil {
		options = []user.AssignmentOption{}
	}
	writeJSON(w, http.StatusOK, options)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermUserRead},
	}); !ok {
		return
	}
	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermUserUpdate},
	}); !ok {
		return
	}
	var req struct {
		Email          *string    `json:"email"`
		FirstName      *string    `json:"firstName"`
		LastName       *string    `json:"lastName"`
		Password       *string    `json:"password"`
		Role           *auth.Role `json:"role"`
		OrganizationID *int64     `json:"organizationId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.users.Apply(r.Context(), id, user.Update{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Password:       req.Password,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id int64) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner},
		Permissions: []auth.Permission{auth.PermUserDelete},
	})
	if !ok {
		return
	}
	if err := a.users.Delete(r.Context(), principal, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) setUserRole(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermUserUpdate},
	}); !ok {
		return
	}
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.users.SetRole(r.Context(), id, req.Role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
