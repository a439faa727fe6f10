package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"securetask.org/internal/org"
)

// Orgs implements org.Store on PostgreSQL.
type Orgs struct {
	db *sql.DB
}

var _ org.Store = (*Orgs)(nil)

const orgColumns = `id, name, description, parent_id, created_at, updated_at`

func scanOrg(row interface{ Scan(...any) error }) (org.Organization, error) {
	var (
		o      org.Organization
		parent sql.NullInt64
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Description, &parent, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return org.Organization{}, err
	}
	if parent.Valid {
		o.ParentID = &parent.Int64
	}
	return o, nil
}

func (s *Orgs) Create(ctx context.Context, o *org.Organization) error {
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (name, description, parent_id)
		values ($1, $2, $3)
		returning id, created_at, updated_at
	`, o.Name, o.Description, o.ParentID)
	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return org.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Orgs) Find(ctx context.Context, id int64) (org.Organization, error) {
	o, err := scanOrg(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return org.Organization{}, org.ErrNotFound
	}
	return o, err
}

func (s *Orgs) List(ctx context.Context) ([]org.Organization, error) {
	return s.list(ctx, `select `+orgColumns+` from organizations order by created_at, id`)
}

func (s *Orgs) ListRoots(ctx context.Context) ([]org.Organization, error) {
	return s.list(ctx, `select `+orgColumns+` from organizations where parent_id is null order by created_at, id`)
}

func (s *Orgs) ListChildren(ctx context.Context, parentID int64) ([]org.Organization, error) {
	return s.list(ctx, `select `+orgColumns+` from organizations where parent_id = $1 order by created_at, id`, parentID)
}

func (s *Orgs) list(ctx context.Context, query string, args ...any) ([]org.Organization, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []org.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Orgs) Update(ctx context.Context, id int64, upd org.Update) (org.Organization, error) {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if upd.ParentID != nil {
		args = append(args, *upd.ParentID)
		sets = append(sets, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		args = append(args, id)
		query := fmt.Sprintf(`update organizations set %s where id = $%d`, strings.Join(sets, ", "), len(args))
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return org.Organization{}, org.ErrNotFound
			}
			return org.Organization{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return org.Organization{}, err
		}
		if aff == 0 {
			return org.Organization{}, org.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *Orgs) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from organizations where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return org.ErrHasMembers
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return org.ErrNotFound
	}
	return nil
}

func (s *Orgs) EarliestID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`select id from organizations order by created_at, id limit 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, org.ErrNotFound
	}
	return id, err
}

func (s *Orgs) CountMembers(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where organization_id = $1`, id).Scan(&n)
	return n, err
}

func (s *Orgs) MemberCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`select organization_id, count(*) from users group by organization_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int64]int{}
	for rows.Next() {
		var (
			id int64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
