package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"securetask.org/internal/auth"
	"securetask.org/internal/user"
)

// Users implements user.Store on the shared in-memory state.
type Users struct {
	s *Store
}

var _ user.Store = (*Users)(nil)

func (m *Users) Create(_ context.Context, u *user.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email already registered", auth.ErrConflict)
		}
	}
	m.s.userSeq++
	u.ID = m.s.userSeq
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.s.users[u.ID] = *u
	return nil
}

func (m *Users) Find(_ context.Context, id int64) (user.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (m *Users) FindByEmail(_ context.Context, email string) (user.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (m *Users) List(_ context.Context, orgIDs []int64) ([]user.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	scope := map[int64]bool{}
	for _, id := range orgIDs {
		scope[id] = true
	}
	var out []user.User
	for _, u := range m.s.users {
		if scope[u.OrganizationID] {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Users) Update(_ context.Context, id int64, upd user.Update) (user.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if upd.Email != nil {
		for otherID, other := range m.s.users {
			if otherID != id && other.Email == *upd.Email {
				return user.User{}, fmt.Errorf("%w: email already registered", auth.ErrConflict)
			}
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.OrganizationID != nil {
		u.OrganizationID = *upd.OrganizationID
	}
	u.UpdatedAt = time.Now().UTC()
	m.s.users[id] = u
	return u, nil
}

func (m *Users) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(m.s.users, id)
	return nil
}

func (m *Users) Count(_ context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.users), nil
}

func (m *Users) CountByRole(_ context.Context) (map[auth.Role]int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	counts := map[auth.Role]int{}
	for _, u := range m.s.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (m *Users) Recent(_ context.Context, limit int) ([]user.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []user.User
	for _, u := range m.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Users) CountSince(_ context.Context, since time.Time) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	n := 0
	for _, u := range m.s.users {
		if !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *Users) HasElevated(_ context.Context) (bool, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if u.Role == auth.RoleAdmin || u.Role == auth.RoleOwner {
			return true, nil
		}
	}
	return false, nil
}
