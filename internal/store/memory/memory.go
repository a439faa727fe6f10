// Package memory implements the persistence interfaces on in-process maps.
// It backs local development without a database and the HTTP handler tests.
package memory

import (
	"sync"

	"securetask.org/internal/audit"
	"securetask.org/internal/org"
	"securetask.org/internal/task"
	"securetask.org/internal/user"
)

// Store holds every subsystem's data behind one lock. Contention is not a
// concern at the scale this backend is meant for.
type Store struct {
	mu sync.RWMutex

	orgs     map[int64]org.Organization
	users    map[int64]user.User
	tasks    map[int64]task.Task
	auditLog []audit.Entry
	orgSeq   int64
	userSeq  int64
	taskSeq  int64
	auditSeq int64
}

func New() *Store {
	return &Store{
		orgs:  map[int64]org.Organization{},
		users: map[int64]user.User{},
		tasks: map[int64]task.Task{},
	}
}

// Orgs returns the organization store view.
func (s *Store) Orgs() *Orgs { return &Orgs{s} }

// Users returns the user store view.
func (s *Store) Users() *Users { return &Users{s} }

// Tasks returns the task store view.
func (s *Store) Tasks() *Tasks { return &Tasks{s} }

// Audit returns the audit store view.
func (s *Store) Audit() *Audit { return &Audit{s} }
