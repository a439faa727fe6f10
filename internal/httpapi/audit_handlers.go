package httpapi

import (
	"net/http"
	"strconv"

	"securetask.org/internal/audit"
	"securetask.org/internal/auth"
)

type auditListResponse struct {
	Items []audit.Entry `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.authorize(w, r, auth.Requirement{
		Permissions: []auth.Permission{auth.PermAuditRead},
	})
	if !ok {
		return
	}

	q := auditQueryFromRequest(r)
	// Callers below admin see only their own trail.
	if principal.Role != auth.RoleOwner && principal.Role != auth.RoleAdmin {
		q.UserID = principal.UserID
	}
	items, total, err := a.recorder.List(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []audit.Entry{}
	}
	q.Normalize()
	writeJSON(w, http.StatusOK, auditListResponse{
		Items: items, Total: total, Page: q.Page, Limit: q.Limit,
	})
}

func auditQueryFromRequest(r *http.Request) audit.Query {
	values := r.URL.Query()
	q := audit.Query{
		Action:   audit.Action(values.Get("action")),
		Resource: audit.Resource(values.Get("resource")),
	}
	q.UserID, _ = strconv.ParseInt(values.Get("userId"), 10, 64)
	q.Page, _ = strconv.Atoi(values.Get("page"))
	q.Limit, _ = strconv.Atoi(values.Get("limit"))
	return q
}
