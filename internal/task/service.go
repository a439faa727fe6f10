package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"securetask.org/internal/auth"
)

// Store describes persistence operations required by the task subsystem.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Find(ctx context.Context, id int64) (Task, error)
	List(ctx context.Context, f Filter) ([]Task, int, error)
	Update(ctx context.Context, id int64, upd Update) (Task, error)
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
	Recent(ctx context.Context, limit int) ([]Task, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// Service applies the row-level visibility and mutation rules. The caller's
// accessible organization set is threaded in explicitly; the service never
// resolves it itself.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("task store is required")
	}
	return &Service{store: store}, nil
}

// Create adds a task in the principal's own organization. Role restrictions
// (owner/admin only) are enforced by the route requirements before this is
// reached.
func (s *Service) Create(ctx context.Context, principal auth.Principal, params CreateParams) (Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: task title is required", auth.ErrInvalidInput)
	}
	category := params.Category
	if category == "" {
		category = CategoryWork
	}
	if !category.Valid() {
		return Task{}, fmt.Errorf("%w: unsupported category %q", auth.ErrInvalidInput, category)
	}
	priority := params.Priority
	if priority == 0 {
		priority = 1
	}
	if priority < 1 || priority > 5 {
		return Task{}, fmt.Errorf("%w: priority must be between 1 and 5", auth.ErrInvalidInput)
	}
	due := params.DueDate
	if due.IsZero() {
		due = time.Now().UTC()
	}
	t := Task{
		Title:          title,
		Description:    params.Description,
		Status:         StatusOpen,
		Category:       category,
		Priority:       priority,
		DueDate:        due,
		CreatedByID:    principal.UserID,
		AssignedToID:   params.AssignedToID,
		OrganizationID: principal.OrganizationID,
	}
	if err := s.store.Create(ctx, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// List returns tasks visible to the principal within the accessible
// organization set, with filters and pagination applied. Viewers only see
// tasks assigned to them.
func (s *Service) List(ctx context.Context, principal auth.Principal, accessibleOrgIDs []int64, f Filter) ([]Task, int, error) {
	f.Normalize()
	f.OrgIDs = accessibleOrgIDs
	if principal.Role == auth.RoleViewer {
		f.ViewerUserID = principal.UserID
	}
	return s.store.List(ctx, f)
}

// Get fetches one task after the organization and assignment checks.
func (s *Service) Get(ctx context.Context, principal auth.Principal, accessibleOrgIDs []int64, id int64) (Task, error) {
	t, err := s.store.Find(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if !containsID(accessibleOrgIDs, t.OrganizationID) {
		return Task{}, fmt.Errorf("%w: task belongs to different organization", auth.ErrForbidden)
	}
	if principal.Role == auth.RoleViewer && !assignedTo(t, principal.UserID) {
		return Task{}, fmt.Errorf("%w: you can only view tasks assigned to you", auth.ErrForbidden)
	}
	return t, nil
}

// Apply updates a task. Rules run in order: organization scope, viewer
// assignment, viewer field subset. A viewer payload touching any field
// outside status/description denies the entire update; nothing is partially
// applied. The denial is reported as forbidden rather than a validation
// error so field names are not leaked.
func (s *Service) Apply(ctx context.Context, principal auth.Principal, accessibleOrgIDs []int64, id int64, upd Update) (Task, error) {
	t, err := s.Get(ctx, principal, accessibleOrgIDs, id)
	if err != nil {
		return Task{}, err
	}

	if principal.Role == auth.RoleViewer {
		for _, field := range upd.Fields() {
			if !viewerUpdatableFields[field] {
				return Task{}, fmt.Errorf("%w: you can only update status and description", auth.ErrForbidden)
			}
		}
	}

	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return Task{}, fmt.Errorf("%w: task title is required", auth.ErrInvalidInput)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return Task{}, fmt.Errorf("%w: unsupported status %q", auth.ErrInvalidInput, *upd.Status)
	}
	if upd.Category != nil && !upd.Category.Valid() {
		return Task{}, fmt.Errorf("%w: unsupported category %q", auth.ErrInvalidInput, *upd.Category)
	}
	if upd.Priority != nil && (*upd.Priority < 1 || *upd.Priority > 5) {
		return Task{}, fmt.Errorf("%w: priority must be between 1 and 5", auth.ErrInvalidInput)
	}

	updated, err := s.store.Update(ctx, t.ID, upd)
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// Delete removes a task. Viewers can never delete, regardless of
// assignment.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, accessibleOrgIDs []int64, id int64) error {
	if _, err := s.Get(ctx, principal, accessibleOrgIDs, id); err != nil {
		return err
	}
	if principal.Role == auth.RoleViewer {
		return fmt.Errorf("%w: you cannot delete tasks", auth.ErrForbidden)
	}
	return s.store.Delete(ctx, id)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func assignedTo(t Task, userID int64) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}
