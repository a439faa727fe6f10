package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"securetask.org/internal/auth"
	"securetask.org/internal/task"
)

type taskListResponse struct {
	Items []task.Task `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func (a *API) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createTask(w, r)
	case http.MethodGet:
		a.listTasks(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(raw)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getTask(w, r, id)
	case http.MethodPatch:
		a.updateTask(w, r, id)
	case http.MethodDelete:
		a.deleteTask(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermTaskCreate},
	})
	if !ok {
		return
	}
	var params task.CreateParams
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.tasks.Create(r.Context(), principal, params)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermTaskRead},
	})
	if !ok {
		return
	}
	scope, err := a.scope(r, principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	f := taskFilterFromQuery(r)
	items, total, err := a.tasks.List(r.Context(), principal, scope, f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []task.Task{}
	}
	f.Normalize()
	writeJSON(w, http.StatusOK, taskListResponse{
		Items: items, Total: total, Page: f.Page, Limit: f.Limit,
	})
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request, id int64) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermTaskRead},
	})
	if !ok {
		return
	}
	scope, err := a.scope(r, principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	t, err := a.tasks.Get(r.Context(), principal, scope, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) updateTask(w http.ResponseWriter, r *http.Request, id int64) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermTaskUpdate},
	})
	if !ok {
		return
	}
	scope, err := a.scope(r, principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var upd task.Update
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.tasks.Apply(r.Context(), principal, scope, id, upd)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request, id int64) {
	principal, ok := a.authorize(w, r, auth.Requirement{
		Roles:       []auth.Role{auth.RoleOwner, auth.RoleAdmin},
		Permissions: []auth.Permission{auth.PermTaskDelete},
	})
	if !ok {
		return
	}
	scope, err := a.scope(r, principal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := a.tasks.Delete(r.Context(), principal, scope, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskFilterFromQuery(r *http.Request) task.Filter {
	q := r.URL.Query()
	f := task.Filter{
		Search:    q.Get("search"),
		Status:    task.Status(q.Get("status")),
		Category:  task.Category(q.Get("category")),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	f.Priority, _ = strconv.Atoi(q.Get("priority"))
	f.AssignedToID, _ = strconv.ParseInt(q.Get("assignedToId"), 10, 64)
	f.CreatedByID, _ = strconv.ParseInt(q.Get("createdById"), 10, 64)
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("dateFrom"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.DateFrom = t
		}
	}
	if raw := q.Get("dateTo"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.DateTo = t
		}
	}
	return f
}
