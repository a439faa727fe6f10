package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"securetask.org/internal/task"
)

// Tasks implements task.Store on PostgreSQL.
type Tasks struct {
	db *sql.DB
}

var _ task.Store = (*Tasks)(nil)

const taskColumns = `id, title, description, status, category, priority, due_date,
	created_by_id, assigned_to_id, organization_id, created_at, updated_at`

// sortColumns maps API sort keys onto columns. Keys outside this map never
// reach the query builder; Filter.Normalize rejects them first.
var sortColumns = map[string]string{
	"title":     "title",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"priority":  "priority",
	"status":    "status",
	"dueDate":   "due_date",
}

func scanTask(row interface{ Scan(...any) error }) (task.Task, error) {
	var (
		t        task.Task
		assigned sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Category, &t.Priority,
		&t.DueDate, &t.CreatedByID, &assigned, &t.OrganizationID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return task.Task{}, err
	}
	if assigned.Valid {
		t.AssignedToID = &assigned.Int64
	}
	return t, nil
}

func (s *Tasks) Create(ctx context.Context, t *task.Task) error {
	row := s.db.QueryRowContext(ctx, `
		insert into tasks (title, description, status, category, priority, due_date,
			created_by_id, assigned_to_id, organization_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id, created_at, updated_at
	`, t.Title, t.Description, t.Status, t.Category, t.Priority, t.DueDate,
		t.CreatedByID, t.AssignedToID, t.OrganizationID)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return task.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Tasks) Find(ctx context.Context, id int64) (task.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`select `+taskColumns+` from tasks where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, task.ErrNotFound
	}
	return t, err
}

func (s *Tasks) List(ctx context.Context, f task.Filter) ([]task.Task, int, error) {
	if len(f.OrgIDs) == 0 {
		return nil, 0, nil
	}

	var (
		where []string
		args  []any
	)
	cond := func(format string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(format, len(args)))
	}

	where = append(where, inClause("organization_id", f.OrgIDs, &args))
	if f.ViewerUserID != 0 {
		cond("assigned_to_id = $%d", f.ViewerUserID)
	}
	if f.Status != "" {
		cond("status = $%d", f.Status)
	}
	if f.Category != "" {
		cond("category = $%d", f.Category)
	}
	if f.Priority != 0 {
		cond("priority = $%d", f.Priority)
	}
	if f.AssignedToID != 0 {
		cond("assigned_to_id = $%d", f.AssignedToID)
	}
	if f.CreatedByID != 0 {
		cond("created_by_id = $%d", f.CreatedByID)
	}
	if !f.DateFrom.IsZero() {
		cond("due_date >= $%d", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		cond("due_date <= $%d", f.DateTo)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(title ilike $%d or description ilike $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from tasks where `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortColumns[f.SortBy]
	if order == "" {
		order = "created_at"
	}
	dir := "desc"
	if f.SortOrder == "asc" {
		dir = "asc"
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(`select %s from tasks where %s order by %s %s, id %s limit $%d offset $%d`,
		taskColumns, clause, order, dir, dir, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

func (s *Tasks) Update(ctx context.Context, id int64, upd task.Update) (task.Task, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}
	if upd.Priority != nil {
		set("priority", *upd.Priority)
	}
	if upd.DueDate != nil {
		set("due_date", *upd.DueDate)
	}
	if upd.AssignedToID != nil {
		set("assigned_to_id", *upd.AssignedToID)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		args = append(args, id)
		query := fmt.Sprintf(`update tasks set %s where id = $%d`, strings.Join(sets, ", "), len(args))
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return task.Task{}, task.ErrNotFound
			}
			return task.Task{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return task.Task{}, err
		}
		if aff == 0 {
			return task.Task{}, task.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *Tasks) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (s *Tasks) CountByStatus(ctx context.Context) (map[task.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `select status, count(*) from tasks group by status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[task.Status]int{}
	for rows.Next() {
		var (
			status task.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Tasks) Recent(ctx context.Context, limit int) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+taskColumns+` from tasks order by created_at desc, id desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Tasks) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from tasks where created_at >= $1`, since).Scan(&n)
	return n, err
}

func (s *Tasks) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from tasks`).Scan(&n)
	return n, err
}
