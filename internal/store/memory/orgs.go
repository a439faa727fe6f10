package memory

import (
	"context"
	"sort"
	"time"

	"securetask.org/internal/org"
)

// Orgs implements org.Store on the shared in-memory state.
type Orgs struct {
	s *Store
}

var _ org.Store = (*Orgs)(nil)

func (m *Orgs) Create(_ context.Context, o *org.Organization) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if o.ParentID != nil {
		if _, ok := m.s.orgs[*o.ParentID]; !ok {
			return org.ErrNotFound
		}
	}
	m.s.orgSeq++
	o.ID = m.s.orgSeq
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	m.s.orgs[o.ID] = *o
	return nil
}

func (m *Orgs) Find(_ context.Context, id int64) (org.Organization, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	o, ok := m.s.orgs[id]
	if !ok {
		return org.Organization{}, org.ErrNotFound
	}
	return o, nil
}

func (m *Orgs) List(_ context.Context) ([]org.Organization, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.collect(func(org.Organization) bool { return true }), nil
}

func (m *Orgs) ListRoots(_ context.Context) ([]org.Organization, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.collect(func(o org.Organization) bool { return o.ParentID == nil }), nil
}

func (m *Orgs) ListChildren(_ context.Context, parentID int64) ([]org.Organization, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.collect(func(o org.Organization) bool {
		return o.ParentID != nil && *o.ParentID == parentID
	}), nil
}

// collect filters and orders by id; callers must hold the lock.
func (m *Orgs) collect(keep func(org.Organization) bool) []org.Organization {
	var out []org.Organization
	for _, o := range m.s.orgs {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Orgs) Update(_ context.Context, id int64, upd org.Update) (org.Organization, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orgs[id]
	if !ok {
		return org.Organization{}, org.ErrNotFound
	}
	if upd.Name != nil {
		o.Name = *upd.Name
	}
	if upd.Description != nil {
		o.Description = *upd.Description
	}
	if upd.ParentID != nil {
		if _, ok := m.s.orgs[*upd.ParentID]; !ok {
			return org.Organization{}, org.ErrNotFound
		}
		o.ParentID = upd.ParentID
	}
	o.UpdatedAt = time.Now().UTC()
	m.s.orgs[id] = o
	return o, nil
}

func (m *Orgs) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.orgs[id]; !ok {
		return org.ErrNotFound
	}
	for _, u := range m.s.users {
		if u.OrganizationID == id {
			return org.ErrHasMembers
		}
	}
	delete(m.s.orgs, id)
	return nil
}

func (m *Orgs) EarliestID(_ context.Context) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var earliest int64
	for id := range m.s.orgs {
		if earliest == 0 || id < earliest {
			earliest = id
		}
	}
	if earliest == 0 {
		return 0, org.ErrNotFound
	}
	return earliest, nil
}

func (m *Orgs) CountMembers(_ context.Context, id int64) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	n := 0
	for _, u := range m.s.users {
		if u.OrganizationID == id {
			n++
		}
	}
	return n, nil
}

func (m *Orgs) MemberCounts(_ context.Context) (map[int64]int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	counts := map[int64]int{}
	for _, u := range m.s.users {
		counts[u.OrganizationID]++
	}
	return counts, nil
}
