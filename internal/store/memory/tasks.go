package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"securetask.org/internal/task"
)

// Tasks implements task.Store on the shared in-memory state.
type Tasks struct {
	s *Store
}

var _ task.Store = (*Tasks)(nil)

func (m *Tasks) Create(_ context.Context, t *task.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.taskSeq++
	t.ID = m.s.taskSeq
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.s.tasks[t.ID] = *t
	return nil
}

func (m *Tasks) Find(_ context.Context, id int64) (task.Task, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	t, ok := m.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (m *Tasks) List(_ context.Context, f task.Filter) ([]task.Task, int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	scope := map[int64]bool{}
	for _, id := range f.OrgIDs {
		scope[id] = true
	}

	var matched []task.Task
	for _, t := range m.s.tasks {
		if !scope[t.OrganizationID] {
			continue
		}
		if f.ViewerUserID != 0 && (t.AssignedToID == nil || *t.AssignedToID != f.ViewerUserID) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Priority != 0 && t.Priority != f.Priority {
			continue
		}
		if f.AssignedToID != 0 && (t.AssignedToID == nil || *t.AssignedToID != f.AssignedToID) {
			continue
		}
		if f.CreatedByID != 0 && t.CreatedByID != f.CreatedByID {
			continue
		}
		if !f.DateFrom.IsZero() && t.DueDate.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && t.DueDate.After(f.DateTo) {
			continue
		}
		if f.Search != "" && !matchesSearch(t, f.Search) {
			continue
		}
		matched = append(matched, t)
	}

	sortTasks(matched, f.SortBy, f.SortOrder)
	total := len(matched)

	start := (f.Page - 1) * f.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesSearch(t task.Task, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(t.Title), search) ||
		strings.Contains(strings.ToLower(t.Description), search)
}

func sortTasks(tasks []task.Task, sortBy, sortOrder string) {
	less := func(a, b task.Task) bool {
		switch sortBy {
		case "title":
			return a.Title < b.Title
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "priority":
			return a.Priority < b.Priority
		case "status":
			return a.Status < b.Status
		case "dueDate":
			return a.DueDate.Before(b.DueDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if sortOrder == "asc" {
			return less(tasks[i], tasks[j])
		}
		return less(tasks[j], tasks[i])
	})
}

func (m *Tasks) Update(_ context.Context, id int64, upd task.Update) (task.Task, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Category != nil {
		t.Category = *upd.Category
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		t.DueDate = *upd.DueDate
	}
	if upd.AssignedToID != nil {
		t.AssignedToID = upd.AssignedToID
	}
	t.UpdatedAt = time.Now().UTC()
	m.s.tasks[id] = t
	return t, nil
}

func (m *Tasks) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(m.s.tasks, id)
	return nil
}

func (m *Tasks) CountByStatus(_ context.Context) (map[task.Status]int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	counts := map[task.Status]int{}
	for _, t := range m.s.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

func (m *Tasks) Recent(_ context.Context, limit int) ([]task.Task, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []task.Task
	for _, t := range m.s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Tasks) CountSince(_ context.Context, since time.Time) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	n := 0
	for _, t := range m.s.tasks {
		if !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *Tasks) Count(_ context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.tasks), nil
}
