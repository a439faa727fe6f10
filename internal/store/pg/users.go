package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"securetask.org/internal/auth"
	"securetask.org/internal/user"
)

// Users implements user.Store on PostgreSQL.
type Users struct {
	db *sql.DB
}

var _ user.Store = (*Users)(nil)

const userColumns = `id, email, first_name, last_name, role, organization_id, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role,
		&u.OrganizationID, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Users) Create(ctx context.Context, u *user.User) error {
	row := s.db.QueryRowContext(ctx, `
		insert into users (email, first_name, last_name, role, organization_id, password_hash)
		values ($1, $2, $3, $4, $5, $6)
		returning id, created_at, updated_at
	`, u.Email, u.FirstName, u.LastName, u.Role, u.OrganizationID, u.PasswordHash)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return fmt.Errorf("%w: email already registered", auth.ErrConflict)
			case pgErrForeignKeyViolation:
				return fmt.Errorf("%w: organization does not exist", auth.ErrNotFound)
			}
		}
		return err
	}
	return nil
}

func (s *Users) Find(ctx context.Context, id int64) (user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

func (s *Users) FindByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

func (s *Users) List(ctx context.Context, orgIDs []int64) ([]user.User, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	var args []any
	query := `select ` + userColumns + ` from users where ` +
		inClause("organization_id", orgIDs, &args) + ` order by created_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Users) Update(ctx context.Context, id int64, upd user.Update) (user.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.FirstName != nil {
		set("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		set("last_name", *upd.LastName)
	}
	if upd.Password != nil {
		set("password_hash", *upd.Password)
	}
	if upd.Role != nil {
		set("role", *upd.Role)
	}
	if upd.OrganizationID != nil {
		set("organization_id", *upd.OrganizationID)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		args = append(args, id)
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), len(args))
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return user.User{}, fmt.Errorf("%w: email already registered", auth.ErrConflict)
			}
			return user.User{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return user.User{}, err
		}
		if aff == 0 {
			return user.User{}, user.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *Users) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Users) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n)
	return n, err
}

func (s *Users) CountByRole(ctx context.Context) (map[auth.Role]int, error) {
	rows, err := s.db.QueryContext(ctx, `select role, count(*) from users group by role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[auth.Role]int{}
	for rows.Next() {
		var (
			role auth.Role
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

func (s *Users) Recent(ctx context.Context, limit int) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by created_at desc, id desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Users) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where created_at >= $1`, since).Scan(&n)
	return n, err
}

func (s *Users) HasElevated(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where role in ('admin', 'owner'))`).Scan(&exists)
	return exists, err
}
