// Package task implements tasks and the row-level access rules layered on
// top of the role/permission guards: organization scoping for everyone and
// assignment-based restrictions for viewers.
package task

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("task: not found")

// Status is the lifecycle state of a task. open → in_progress → done;
// cancelled is reachable from any state and terminal by convention.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every known status, in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusDone, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Category groups tasks on the board.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryUrgent   Category = "urgent"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryUrgent:
		return true
	}
	return false
}

// Task is one unit of work scoped to an organization.
type Task struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	Category       Category  `json:"category"`
	Priority       int       `json:"priority"`
	DueDate        time.Time `json:"dueDate"`
	CreatedByID    int64     `json:"createdById"`
	AssignedToID   *int64    `json:"assignedToId,omitempty"`
	OrganizationID int64     `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateParams carries the fields accepted on task creation.
type CreateParams struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	Priority     int       `json:"priority"`
	DueDate      time.Time `json:"dueDate"`
	AssignedToID *int64    `json:"assignedToId"`
}

// Update is a partial task change. Decoding records which JSON fields were
// present so the viewer field-subset rule can reject a payload as a whole;
// a nil pointer alone cannot distinguish "absent" from "set to null".
type Update struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *Status    `json:"status"`
	Category     *Category  `json:"category"`
	Priority     *int       `json:"priority"`
	DueDate      *time.Time `json:"dueDate"`
	AssignedToID *int64     `json:"assignedToId"`

	fields []string
}

func (u *Update) UnmarshalJSON(data []byte) error {
	type plain Update
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*u = Update(p)
	for key := range keys {
		u.fields = append(u.fields, key)
	}
	return nil
}

// Fields returns the JSON field names present in the decoded payload.
func (u *Update) Fields() []string { return u.fields }

// SetFields overrides the present-field record; used by callers that build
// updates programmatically instead of decoding JSON.
func (u *Update) SetFields(fields ...string) { u.fields = fields }

// viewerUpdatableFields is the whole set of fields a viewer may touch.
var viewerUpdatableFields = map[string]bool{
	"status":      true,
	"description": true,
}

// SortField validates and normalizes the sort key; unknown keys fall back to
// createdAt.
func SortField(raw string) string {
	switch raw {
	case "title", "createdAt", "updatedAt", "priority", "status", "dueDate":
		return raw
	default:
		return "createdAt"
	}
}

// Filter narrows and pages a task listing.
type Filter struct {
	Search       string
	Status       Status
	Category     Category
	Priority     int
	AssignedToID int64
	CreatedByID  int64
	DateFrom     time.Time
	DateTo       time.Time
	SortBy       string
	SortOrder    string
	Page         int
	Limit        int

	// OrgIDs is the caller's accessible organization set; ViewerUserID,
	// when non-zero, restricts rows to tasks assigned to that user.
	OrgIDs       []int64
	ViewerUserID int64
}

// Normalize applies listing defaults and clamps.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}
	f.SortBy = SortField(f.SortBy)
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
	f.Search = strings.TrimSpace(f.Search)
}
