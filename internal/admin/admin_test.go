package admin

import (
	"context"
	"testing"
	"time"

	"securetask.org/internal/auth"
	"securetask.org/internal/org"
	"securetask.org/internal/task"
	"securetask.org/internal/user"
)

type fakeUserStore struct {
	total   int
	byRole  map[auth.Role]int
	recent  []user.User
	lastN   int
	created int
}

func (f *fakeUserStore) Create(_ context.Context, _ *user.User) error { return nil }
func (f *fakeUserStore) Find(_ context.Context, _ int64) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (f *fakeUserStore) FindByEmail(_ context.Context, _ string) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (f *fakeUserStore) List(_ context.Context, _ []int64) ([]user.User, error) { return nil, nil }
func (f *fakeUserStore) Update(_ context.Context, _ int64, _ user.Update) (user.User, error) {
	return user.User{}, user.ErrNotFound
}
func (f *fakeUserStore) Delete(_ context.Context, _ int64) error { return nil }
func (f *fakeUserStore) Count(_ context.Context) (int, error)    { return f.total, nil }
func (f *fakeUserStore) CountByRole(_ context.Context) (map[auth.Role]int, error) {
	return f.byRole, nil
}
func (f *fakeUserStore) Recent(_ context.Context, n int) ([]user.User, error) {
	f.lastN = n
	return f.recent, nil
}
func (f *fakeUserStore) CountSince(_ context.Context, _ time.Time) (int, error) {
	return f.created, nil
}
func (f *fakeUserStore) HasElevated(_ context.Context) (bool, error) { return true, nil }

type fakeTaskStore struct {
	total    int
	byStatus map[task.Status]int
	recent   []task.Task
	created  int
}

func (f *fakeTaskStore) Create(_ context.Context, _ *task.Task) error { return nil }
func (f *fakeTaskStore) Find(_ context.Context, _ int64) (task.Task, error) {
	return task.Task{}, task.ErrNotFound
}
func (f *fakeTaskStore) List(_ context.Context, _ task.Filter) ([]task.Task, int, error) {
	return nil, 0, nil
}
func (f *fakeTaskStore) Update(_ context.Context, _ int64, _ task.Update) (task.Task, error) {
	return task.Task{}, task.ErrNotFound
}
func (f *fakeTaskStore) Delete(_ context.Context, _ int64) error { return nil }
func (f *fakeTaskStore) CountByStatus(_ context.Context) (map[task.Status]int, error) {
	return f.byStatus, nil
}
func (f *fakeTaskStore) Recent(_ context.Context, _ int) ([]task.Task, error) {
	return f.recent, nil
}
func (f *fakeTaskStore) CountSince(_ context.Context, _ time.Time) (int, error) {
	return f.created, nil
}
func (f *fakeTaskStore) Count(_ context.Context) (int, error) { return f.total, nil }

type fakeOrgStore struct {
	orgs   []org.Organization
	counts map[int64]int
}

func (f *fakeOrgStore) Create(_ context.Context, _ *org.Organization) error { return nil }
func (f *fakeOrgStore) Find(_ context.Context, id int64) (org.Organization, error) {
	for _, o := range f.orgs {
		if o.ID == id {
			return o, nil
		}
	}
	return org.Organization{}, org.ErrNotFound
}
func (f *fakeOrgStore) List(_ context.Context) ([]org.Organization, error) { return f.orgs, nil }
func (f *fakeOrgStore) ListRoots(_ context.Context) ([]org.Organization, error) {
	return f.orgs, nil
}
func (f *fakeOrgStore) ListChildren(_ context.Context, _ int64) ([]org.Organization, error) {
	return nil, nil
}
func (f *fakeOrgStore) Update(_ context.Context, _ int64, _ org.Update) (org.Organization, error) {
	return org.Organization{}, org.ErrNotFound
}
func (f *fakeOrgStore) Delete(_ context.Context, _ int64) error { return nil }
func (f *fakeOrgStore) EarliestID(_ context.Context) (int64, error) {
	return 0, org.ErrNotFound
}
func (f *fakeOrgStore) CountMembers(_ context.Context, _ int64) (int, error) { return 0, nil }
func (f *fakeOrgStore) MemberCounts(_ context.Context) (map[int64]int, error) {
	return f.counts, nil
}

func newService(t *testing.T, users *fakeUserStore, tasks *fakeTaskStore, orgs *fakeOrgStore) *Service {
	t.Helper()
	orgSvc, err := org.NewService(orgs)
	if err != nil {
		t.Fatalf("org.NewService: %v", err)
	}
	svc, err := NewService(users, tasks, orgSvc)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestStatsAggregates(t *testing.T) {
	users := &fakeUserStore{
		total:  7,
		byRole: map[auth.Role]int{auth.RoleOwner: 1, auth.RoleAdmin: 2, auth.RoleViewer: 4},
		recent: []user.User{{ID: 7, Email: "new@example.com", PasswordHash: "must-not-leak"}},
	}
	tasks := &fakeTaskStore{
		total:    20,
		byStatus: map[task.Status]int{task.StatusOpen: 12, task.StatusDone: 8},
		recent:   []task.Task{{ID: 20, Title: "latest"}},
	}
	orgs := &fakeOrgStore{orgs: []org.Organization{{ID: 1, Name: "Root"}, {ID: 2, Name: "Child"}}}

	stats, err := newService(t, users, tasks, orgs).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalUsers != 7 || stats.TotalTasks != 20 || stats.TotalOrganizations != 2 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.UsersByRole[auth.RoleViewer] != 4 || stats.TasksByStatus[task.StatusOpen] != 12 {
		t.Fatalf("unexpected distributions %+v", stats)
	}
	if users.lastN != recentLimit {
		t.Fatalf("recent limit should be %d, got %d", recentLimit, users.lastN)
	}
	if len(stats.RecentUsers) != 1 || stats.RecentUsers[0].PasswordHash != "" {
		t.Fatalf("password hash leaked: %+v", stats.RecentUsers)
	}
}

func TestDashboardIncludesActivityWindow(t *testing.T) {
	users := &fakeUserStore{total: 3, byRole: map[auth.Role]int{}, created: 2}
	tasks := &fakeTaskStore{total: 5, byStatus: map[task.Status]int{}, created: 4}
	orgs := &fakeOrgStore{
		orgs:   []org.Organization{{ID: 1, Name: "Root"}},
		counts: map[int64]int{1: 3},
	}

	dash, err := newService(t, users, tasks, orgs).DashboardData(context.Background())
	if err != nil {
		t.Fatalf("DashboardData: %v", err)
	}
	if dash.Activity.WindowDays != 7 || dash.Activity.NewUsers != 2 || dash.Activity.NewTasks != 4 {
		t.Fatalf("unexpected activity %+v", dash.Activity)
	}
	if dash.Organizations.TotalOrganizations != 1 || dash.Organizations.AverageUsersPerOrg != 3 {
		t.Fatalf("unexpected org stats %+v", dash.Organizations)
	}
}
