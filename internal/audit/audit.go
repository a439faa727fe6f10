// Package audit keeps an append-only record of actions principals take
// against resources. Entries are derived heuristically from the HTTP method
// and URL; recording is best-effort and never fails the request that
// triggered it.
package audit

import (
	"context"
	"errors"
	"time"

	"securetask.org/internal/obs"
)

var ErrNotFound = errors.New("audit: not found")

// Action is what happened.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionLogin, ActionLogout:
		return true
	}
	return false
}

// Resource is what it happened to.
type Resource string

const (
	ResourceTask         Resource = "task"
	ResourceUser         Resource = "user"
	ResourceOrganization Resource = "organization"
	ResourceAuth         Resource = "auth"
)

func (r Resource) Valid() bool {
	switch r {
	case ResourceTask, ResourceUser, ResourceOrganization, ResourceAuth:
		return true
	}
	return false
}

// Entry is one immutable audit record.
type Entry struct {
	ID         int64     `json:"id"`
	Action     Action    `json:"action"`
	Resource   Resource  `json:"resource"`
	ResourceID *int64    `json:"resourceId,omitempty"`
	UserID     int64     `json:"userId"`
	Details    string    `json:"details,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Query narrows and pages an audit listing. CreatedAt descending always.
type Query struct {
	UserID   int64
	Action   Action
	Resource Resource
	Page     int
	Limit    int
}

// Normalize clamps pagination to page >= 1 and limit in [1,100] with
// defaults 1/10.
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, q Query) ([]Entry, int, error)
}

// Recorder writes entries and swallows failures: an audit write error is
// reported to operator diagnostics and never surfaces to the caller, and the
// audit commit is independent of the business write it describes.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	return &Recorder{store: store}, nil
}

// Record appends one entry. Errors are logged, not returned.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := r.store.Append(ctx, &e); err != nil {
		obs.LogError("audit append failed", map[string]any{
			"action":   string(e.Action),
			"resource": string(e.Resource),
			"user_id":  e.UserID,
			"error":    err.Error(),
		})
	}
}

// List returns entries matching the query, newest first, plus the total
// match count.
func (r *Recorder) List(ctx context.Context, q Query) ([]Entry, int, error) {
	q.Normalize()
	return r.store.List(ctx, q)
}
