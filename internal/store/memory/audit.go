package memory

import (
	"context"

	"securetask.org/internal/audit"
)

// Audit implements audit.Store on the shared in-memory state.
type Audit struct {
	s *Store
}

var _ audit.Store = (*Audit)(nil)

func (m *Audit) Append(_ context.Context, e *audit.Entry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.auditSeq++
	e.ID = m.s.auditSeq
	m.s.auditLog = append(m.s.auditLog, *e)
	return nil
}

func (m *Audit) List(_ context.Context, q audit.Query) ([]audit.Entry, int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var matched []audit.Entry
	// Walk newest-first; the log is append-only so reverse id order is
	// reverse createdAt order.
	for i := len(m.s.auditLog) - 1; i >= 0; i-- {
		e := m.s.auditLog[i]
		if q.UserID != 0 && e.UserID != q.UserID {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.Resource != "" && e.Resource != q.Resource {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	start := (q.Page - 1) * q.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
