package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"securetask.org/internal/audit"
)

// Audit implements audit.Store on PostgreSQL. The table is append-only;
// there are no update or delete paths.
type Audit struct {
	db *sql.DB
}

var _ audit.Store = (*Audit)(nil)

func (s *Audit) Append(ctx context.Context, e *audit.Entry) error {
	row := s.db.QueryRowContext(ctx, `
		insert into audit_logs (action, resource, resource_id, user_id, details, ip_address, user_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, e.Action, e.Resource, e.ResourceID, e.UserID, e.Details, e.IPAddress, e.UserAgent, e.CreatedAt)
	return row.Scan(&e.ID)
}

func (s *Audit) List(ctx context.Context, q audit.Query) ([]audit.Entry, int, error) {
	var (
		where []string
		args  []any
	)
	cond := func(format string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(format, len(args)))
	}
	if q.UserID != 0 {
		cond("user_id = $%d", q.UserID)
	}
	if q.Action != "" {
		cond("action = $%d", q.Action)
	}
	if q.Resource != "" {
		cond("resource = $%d", q.Resource)
	}
	clause := "true"
	if len(where) > 0 {
		clause = strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from audit_logs where `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`
		select id, action, resource, resource_id, user_id, details, ip_address, user_agent, created_at
		from audit_logs where %s
		order by created_at desc, id desc
		limit $%d offset $%d
	`, clause, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			resourceID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Resource, &resourceID, &e.UserID,
			&e.Details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if resourceID.Valid {
			e.ResourceID = &resourceID.Int64
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
