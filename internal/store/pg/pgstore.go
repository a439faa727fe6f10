// Package pg implements the persistence interfaces on PostgreSQL through
// database/sql with the pgx driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Orgs returns the organization store backed by this connection.
func (s *Store) Orgs() *Orgs { return &Orgs{db: s.db} }

// Users returns the user store backed by this connection.
func (s *Store) Users() *Users { return &Users{db: s.db} }

// Tasks returns the task store backed by this connection.
func (s *Store) Tasks() *Tasks { return &Tasks{db: s.db} }

// Audit returns the audit store backed by this connection.
func (s *Store) Audit() *Audit { return &Audit{db: s.db} }

// --- helpers ---

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// inClause renders "col in ($n,$n+1,...)" for the given ids, appending them
// to args. Placeholders are numbered from the current args length plus one.
func inClause(col string, ids []int64, args *[]any) string {
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		*args = append(*args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
	}
	return fmt.Sprintf("%s in (%s)", col, strings.Join(placeholders, ","))
}
