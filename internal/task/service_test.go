package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"securetask.org/internal/auth"
)

type stubStore struct {
	tasks   map[int64]Task
	updated map[int64]Update
	deleted []int64
	nextID  int64
	lastF   Filter
}

func newStubStore() *stubStore {
	return &stubStore{tasks: map[int64]Task{}, updated: map[int64]Update{}, nextID: 1}
}

func (s *stubStore) add(t Task) Task {
	if t.ID == 0 {
		t.ID = s.nextID
		s.nextID++
	}
	s.tasks[t.ID] = t
	return t
}

func (s *stubStore) Create(_ context.Context, t *Task) error {
	*t = s.add(*t)
	return nil
}

func (s *stubStore) Find(_ context.Context, id int64) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *stubStore) List(_ context.Context, f Filter) ([]Task, int, error) {
	s.lastF = f
	var out []Task
	for _, t := range s.tasks {
		inOrg := false
		for _, id := range f.OrgIDs {
			if t.OrganizationID == id {
				inOrg = true
			}
		}
		if !inOrg {
			continue
		}
		if f.ViewerUserID != 0 && (t.AssignedToID == nil || *t.AssignedToID != f.ViewerUserID) {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (s *stubStore) Update(_ context.Context, id int64, upd Update) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	s.updated[id] = upd
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.AssignedToID != nil {
		t.AssignedToID = upd.AssignedToID
	}
	s.tasks[id] = t
	return t, nil
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubStore) CountByStatus(_ context.Context) (map[Status]int, error) { return nil, nil }
func (s *stubStore) Recent(_ context.Context, _ int) ([]Task, error)         { return nil, nil }
func (s *stubStore) CountSince(_ context.Context, _ time.Time) (int, error)  { return 0, nil }
func (s *stubStore) Count(_ context.Context) (int, error)                    { return len(s.tasks), nil }

func intPtr(v int64) *int64 { return &v }

var (
	ownerP  = auth.Principal{UserID: 1, Role: auth.RoleOwner, OrganizationID: 10}
	adminP  = auth.Principal{UserID: 2, Role: auth.RoleAdmin, OrganizationID: 10}
	viewerP = auth.Principal{UserID: 3, Role: auth.RoleViewer, OrganizationID: 10}

	orgScope = []int64{10, 11}
)

func newService(t *testing.T, store *stubStore) *Service {
	t.Helper()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGetDeniesForeignOrganization(t *testing.T) {
	store := newStubStore()
	foreign := store.add(Task{Title: "other tenant", OrganizationID: 99, AssignedToID: intPtr(viewerP.UserID)})
	svc := newService(t, store)

	for _, principal := range []auth.Principal{ownerP, adminP, viewerP} {
		_, err := svc.Get(context.Background(), principal, orgScope, foreign.ID)
		if !errors.Is(err, auth.ErrForbidden) {
			t.Fatalf("%s should be denied cross-org read, got %v", principal.Role, err)
		}
	}
}

func TestViewerSeesOnlyAssignedTasks(t *testing.T) {
	store := newStubStore()
	mine := store.add(Task{Title: "mine", OrganizationID: 10, AssignedToID: intPtr(viewerP.UserID)})
	other := store.add(Task{Title: "not mine", OrganizationID: 10, AssignedToID: intPtr(77)})
	svc := newService(t, store)

	if _, err := svc.Get(context.Background(), viewerP, orgScope, mine.ID); err != nil {
		t.Fatalf("assigned task should be readable: %v", err)
	}
	if _, err := svc.Get(context.Background(), viewerP, orgScope, other.ID); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("unassigned task should be forbidden, got %v", err)
	}
	// Admins bypass the assignment check.
	if _, err := svc.Get(context.Background(), adminP, orgScope, other.ID); err != nil {
		t.Fatalf("admin should read any in-org task: %v", err)
	}
}

func TestViewerUpdateFieldSubset(t *testing.T) {
	store := newStubStore()
	mine := store.add(Task{Title: "mine", OrganizationID: 10, AssignedToID: intPtr(viewerP.UserID)})
	svc := newService(t, store)

	var allowed Update
	if err := json.Unmarshal([]byte(`{"status":"done","description":"wrapped up"}`), &allowed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	updated, err := svc.Apply(context.Background(), viewerP, orgScope, mine.ID, allowed)
	if err != nil {
		t.Fatalf("status/description update should pass: %v", err)
	}
	if updated.Status != StatusDone {
		t.Fatalf("expected status done, got %s", updated.Status)
	}

	var mixed Update
	if err := json.Unmarshal([]byte(`{"status":"done","priority":5}`), &mixed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := svc.Apply(context.Background(), viewerP, orgScope, mine.ID, mixed); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("payload with priority should deny whole update, got %v", err)
	}
	// The denied update must not have been partially applied.
	if got := store.tasks[mine.ID].Priority; got != 0 {
		t.Fatalf("priority leaked through: %d", got)
	}
	if len(store.updated) != 1 {
		t.Fatalf("store should have seen exactly one update, saw %d", len(store.updated))
	}
}

func TestAdminUpdatesAnyField(t *testing.T) {
	store := newStubStore()
	tk := store.add(Task{Title: "board item", OrganizationID: 10})
	svc := newService(t, store)

	var upd Update
	if err := json.Unmarshal([]byte(`{"status":"in_progress","assignedToId":3,"priority":4}`), &upd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	updated, err := svc.Apply(context.Background(), adminP, orgScope, tk.ID, upd)
	if err != nil {
		t.Fatalf("admin update should pass: %v", err)
	}
	if updated.AssignedToID == nil || *updated.AssignedToID != 3 {
		t.Fatalf("assignment change not applied: %+v", updated)
	}
}

func TestViewerCanNeverDelete(t *testing.T) {
	store := newStubStore()
	mine := store.add(Task{Title: "assigned to viewer", OrganizationID: 10, AssignedToID: intPtr(viewerP.UserID)})
	svc := newService(t, store)

	err := svc.Delete(context.Background(), viewerP, orgScope, mine.ID)
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("viewer delete must be forbidden even when assigned, got %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("task must not be deleted")
	}

	if err := svc.Delete(context.Background(), ownerP, orgScope, mine.ID); err != nil {
		t.Fatalf("owner delete should pass: %v", err)
	}
}

func TestListScopesAndFilters(t *testing.T) {
	store := newStubStore()
	store.add(Task{Title: "in scope", OrganizationID: 10, AssignedToID: intPtr(viewerP.UserID)})
	store.add(Task{Title: "child org", OrganizationID: 11})
	store.add(Task{Title: "foreign", OrganizationID: 99})
	svc := newService(t, store)

	items, total, err := svc.List(context.Background(), adminP, orgScope, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("admin should see both in-scope tasks, got %d", total)
	}
	if store.lastF.Page != 1 || store.lastF.Limit != 50 {
		t.Fatalf("expected normalized pagination, got page=%d limit=%d", store.lastF.Page, store.lastF.Limit)
	}
	if store.lastF.SortBy != "createdAt" || store.lastF.SortOrder != "desc" {
		t.Fatalf("expected default sort, got %s %s", store.lastF.SortBy, store.lastF.SortOrder)
	}

	items, total, err = svc.List(context.Background(), viewerP, orgScope, Filter{})
	if err != nil {
		t.Fatalf("List viewer: %v", err)
	}
	if total != 1 || items[0].Title != "in scope" {
		t.Fatalf("viewer should see only assigned tasks, got %d", total)
	}
}

func TestCreateDefaults(t *testing.T) {
	store := newStubStore()
	svc := newService(t, store)

	created, err := svc.Create(context.Background(), adminP, CreateParams{Title: "  triage inbox  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != StatusOpen {
		t.Fatalf("new tasks must start open, got %s", created.Status)
	}
	if created.Category != CategoryWork || created.Priority != 1 {
		t.Fatalf("expected defaults, got %+v", created)
	}
	if created.OrganizationID != adminP.OrganizationID || created.CreatedByID != adminP.UserID {
		t.Fatalf("ownership fields wrong: %+v", created)
	}
	if created.Title != "triage inbox" {
		t.Fatalf("title should be trimmed, got %q", created.Title)
	}

	if _, err := svc.Create(context.Background(), adminP, CreateParams{Title: "x", Priority: 9}); err == nil {
		t.Fatalf("priority out of range should fail")
	}
	if _, err := svc.Create(context.Background(), adminP, CreateParams{Title: "x", Category: "chore"}); err == nil {
		t.Fatalf("unknown category should fail")
	}
}

func TestUpdateFieldTracking(t *testing.T) {
	var upd Update
	if err := json.Unmarshal([]byte(`{"status":"done","description":null}`), &upd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fields := map[string]bool{}
	for _, f := range upd.Fields() {
		fields[f] = true
	}
	// A field explicitly set to null still counts as present.
	if !fields["status"] || !fields["description"] {
		t.Fatalf("expected both fields recorded, got %v", upd.Fields())
	}
}
