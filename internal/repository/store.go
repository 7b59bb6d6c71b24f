package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"taskboard/internal/models"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Store runs the single-statement queries behind every API operation.
// Queries use $n placeholders, which both postgres and sqlite accept.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the clock used for created_at and updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// timestamp is truncated to microseconds, the precision postgres keeps.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// uniqueViolation reports whether err is a unique constraint failure and,
// if so, whether the email column caused it.
func uniqueViolation(err error) (violated, onEmail bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true, strings.Contains(pqErr.Constraint, "email")
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true, strings.Contains(liteErr.Error(), "users.email")
	}
	return false, false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}
