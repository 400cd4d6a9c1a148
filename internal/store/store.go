package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MediSynth-io/casetracker/internal/database"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// UniqueViolationError reports an insert that collided with a unique column.
type UniqueViolationError struct {
	Field string
	Err   error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("duplicate value for %s: %v", e.Field, e.Err)
}

func (e *UniqueViolationError) Unwrap() error { return e.Err }

// Store handles all database operations
type Store struct {
	db *database.DB
	q  database.Querier
}

// New creates a new store instance
func New(db *database.DB) *Store {
	return &Store{db: db, q: db.DB}
}

// WithTx runs fn with a Store bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		return fn(ctx, &Store{db: s.db, q: q})
	})
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

// uniqueViolation converts driver unique-constraint errors into a
// *UniqueViolationError naming the column. Other errors are returned as is.
func uniqueViolation(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		// "UNIQUE constraint failed: users.username"
		msg := sqliteErr.Error()
		field := msg[strings.LastIndex(msg, ".")+1:]
		return &UniqueViolationError{Field: field, Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// "users_username_key"
		field := strings.TrimSuffix(strings.TrimPrefix(pqErr.Constraint, pqErr.Table+"_"), "_key")
		return &UniqueViolationError{Field: field, Err: err}
	}

	return err
}
