package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"securetask.org/internal/auth"
	"securetask.org/internal/org"
)

type createOrgRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parentId"`
}

type updateOrgRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parentId"`
}

var (
	orgReadRequirement = auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermOrgRead},
	}
	orgCreateRequirement = auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner},
		Permissions: []auth.Permission{auth.PermOrgCreate},
	}
	orgUpdateRequirement = auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner},
		Permissions: []auth.Permission{auth.PermOrgUpdate},
	}
	orgDeleteRequirement = auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner},
		Permissions: []auth.Permission{auth.PermOrgDelete},
	}
)

func (a *API) handleOrgsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrg(w, r)
	case http.MethodGet:
		a.listOrgs(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleOrgResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/organizations/"), "/")
	switch path {
	case "":
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	case "stats":
		a.orgStats(w, r)
		return
	case "hierarchy":
		a.orgHierarchy(w, r)
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
			a.getOrg(w, r, id)
		case http.MethodPatch:
			a.updateOrg(w, r, id)
		case http.MethodDelete:
			a.deleteOrg(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "children":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.orgChildren(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createOrg(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, orgCreateRequirement); !ok {
		return
	}
	var req createOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.orgs.Create(r.Context(), req.Name, req.Description, req.ParentID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/organizations/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listOrgs(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, orgReadRequirement); !ok {
		return
	}
	orgs, err := a.orgs.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orgs == nil {
		orgs = []org.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (a *API) getOrg(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, orgReadRequirement); !ok {
		return
	}
	o, err := a.orgs.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) updateOrg(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, orgUpdateRequirement); !ok {
		return
	}
	var req updateOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.orgs.Update(r.Context(), id, org.Update{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteOrg(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, orgDeleteRequirement); !ok {
		return
	}
	if err := a.orgs.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) orgStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, orgReadRequirement); !ok {
		return
	}
	stats, err := a.orgs.Stats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) orgHierarchy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, orgReadRequirement); !ok {
		return
	}
	nodes, err := a.orgs.Hierarchy(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []org.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (a *API) orgChildren(w http.ResponseWriter, r *http.Request, id int64) {
	if _, ok := a.authorize(w, r, orgReadRequirement); !ok {
		return
	}
	node, err := a.orgs.Children(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}
