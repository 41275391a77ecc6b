// Package db provides CRUD operations for the Cragbook data models.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/stevoh213/cragbook/internal/errors"
)

// ErrNotFound is returned when a record does not exist locally.
var ErrNotFound = apperrors.New(apperrors.ErrNotFound, "record not found")

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Store operations take a Querier so the sync coordinator decides the
// transaction boundary.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner abstracts *sql.Row and *sql.Rows for table scan funcs.
type RowScanner interface {
	Scan(dest ...any) error
}

// Store owns the database handle and the transaction boundary.
type Store struct {
	db *DB
}

// NewStore creates a Store over an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Handle returns the underlying handle for non-transactional reads.
func (s *Store) Handle() Querier {
	return s.db
}

// WithTx runs fn inside one transaction, committing on nil error and
// rolling back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Begin starts a transaction the caller commits explicitly. The push
// pass uses this directly because it must commit acknowledged work even
// when the pass aborts midway.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Timestamps are stored as unix nanoseconds, UTC. Sub-second precision
// matters: last-write-wins compares timestamps strictly.

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toNullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
