package org

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubStore struct {
	orgs     map[int64]Organization
	children map[int64][]Organization
	members  map[int64]int
	deleted  []int64
	nextID   int64
}

func newStubStore() *stubStore {
	return &stubStore{
		orgs:     map[int64]Organization{},
		children: map[int64][]Organization{},
		members:  map[int64]int{},
		nextID:   1,
	}
}

func (s *stubStore) add(o Organization) Organization {
	if o.ID == 0 {
		o.ID = s.nextID
		s.nextID++
	}
	o.CreatedAt = time.Now().UTC()
	s.orgs[o.ID] = o
	if o.ParentID != nil {
		s.children[*o.ParentID] = append(s.children[*o.ParentID], o)
	}
	return o
}

func (s *stubStore) Create(_ context.Context, o *Organization) error {
	*o = s.add(*o)
	return nil
}

func (s *stubStore) Find(_ context.Context, id int64) (Organization, error) {
	o, ok := s.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return o, nil
}

func (s *stubStore) List(_ context.Context) ([]Organization, error) {
	var out []Organization
	for _, o := range s.orgs {
		out = append(out, o)
	}
	return out, nil
}

func (s *stubStore) ListRoots(_ context.Context) ([]Organization, error) {
	var out []Organization
	for _, o := range s.orgs {
		if o.ParentID == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubStore) ListChildren(_ context.Context, parentID int64) ([]Organization, error) {
	return s.children[parentID], nil
}

func (s *stubStore) Update(_ context.Context, id int64, upd Update) (Organization, error) {
	o, ok := s.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	if upd.Name != nil {
		o.Name = *upd.Name
	}
	if upd.Description != nil {
		o.Description = *upd.Description
	}
	s.orgs[id] = o
	return o, nil
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.orgs[id]; !ok {
		return ErrNotFound
	}
	delete(s.orgs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubStore) EarliestID(_ context.Context) (int64, error) {
	if len(s.orgs) == 0 {
		return 0, ErrNotFound
	}
	var min int64 = 1<<63 - 1
	for id := range s.orgs {
		if id < min {
			min = id
		}
	}
	return min, nil
}

func (s *stubStore) CountMembers(_ context.Context, id int64) (int, error) {
	return s.members[id], nil
}

func (s *stubStore) MemberCounts(_ context.Context) (map[int64]int, error) {
	return s.members, nil
}

func intPtr(v int64) *int64 { return &v }

func TestAccessibleIncludesSelfAndDirectChildren(t *testing.T) {
	store := newStubStore()
	root := store.add(Organization{Name: "HQ"})
	child1 := store.add(Organization{Name: "East", ParentID: intPtr(root.ID)})
	child2 := store.add(Organization{Name: "West", ParentID: intPtr(root.ID)})
	// Grandchild must NOT appear: expansion is one level deep.
	store.add(Organization{Name: "East-Annex", ParentID: intPtr(child1.ID)})

	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ids, err := svc.Accessible(context.Background(), root.ID)
	if err != nil {
		t.Fatalf("Accessible: %v", err)
	}
	want := []int64{root.ID, child1.ID, child2.ID}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	if ids[0] != root.ID {
		t.Fatalf("own org id must come first, got %v", ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestAccessibleLeafOrganization(t *testing.T) {
	store := newStubStore()
	leaf := store.add(Organization{Name: "Solo"})

	svc, _ := NewService(store)
	ids, err := svc.Accessible(context.Background(), leaf.ID)
	if err != nil {
		t.Fatalf("Accessible: %v", err)
	}
	if len(ids) != 1 || ids[0] != leaf.ID {
		t.Fatalf("leaf org should see only itself, got %v", ids)
	}
}

func TestAccessibleUnknownOrgFailsOpen(t *testing.T) {
	svc, _ := NewService(newStubStore())
	ids, err := svc.Accessible(context.Background(), 999)
	if err != nil {
		t.Fatalf("Accessible: %v", err)
	}
	if len(ids) != 1 || ids[0] != 999 {
		t.Fatalf("unknown org should yield singleton of itself, got %v", ids)
	}
}

func TestDeleteRefusesNonEmptyOrganization(t *testing.T) {
	store := newStubStore()
	o := store.add(Organization{Name: "Staffed"})
	store.members[o.ID] = 3

	svc, _ := NewService(store)
	if err := svc.Delete(context.Background(), o.ID); !errors.Is(err, ErrHasMembers) {
		t.Fatalf("expected ErrHasMembers, got %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("organization must not be deleted")
	}

	store.members[o.ID] = 0
	if err := svc.Delete(context.Background(), o.ID); err != nil {
		t.Fatalf("empty org should delete: %v", err)
	}
}

func TestCreateValidatesNameAndParent(t *testing.T) {
	store := newStubStore()
	svc, _ := NewService(store)

	if _, err := svc.Create(context.Background(), "   ", "", nil); err == nil {
		t.Fatalf("blank name should fail")
	}
	if _, err := svc.Create(context.Background(), "Orphans", "", intPtr(123)); err == nil {
		t.Fatalf("unknown parent should fail")
	}
	o, err := svc.Create(context.Background(), "  Ops  ", " core team ", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Name != "Ops" || o.Description != "core team" {
		t.Fatalf("expected trimmed fields, got %+v", o)
	}
}

func TestStats(t *testing.T) {
	store := newStubStore()
	a := store.add(Organization{Name: "A"})
	b := store.add(Organization{Name: "B"})
	store.members[a.ID] = 4
	store.members[b.ID] = 2

	svc, _ := NewService(store)
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalOrganizations != 2 {
		t.Fatalf("expected 2 orgs, got %d", stats.TotalOrganizations)
	}
	if stats.AverageUsersPerOrg != 3 {
		t.Fatalf("expected average 3, got %f", stats.AverageUsersPerOrg)
	}
}
