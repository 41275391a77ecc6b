package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/models"
)

// Table maps one synced entity kind onto its SQLite table. The first
// six columns are always the shared sync columns (id, owner_id,
// created_at, updated_at, deleted_at, dirty); scan and args handle the
// full column list in declaration order.
type Table[T models.Syncable] struct {
	kind models.EntityKind
	name string
	cols []string
	scan func(RowScanner) (T, error)
	args func(T) []any

	selectSQL string
	upsertSQL string
}

// NewTable builds the table mapping and precomputes its SQL. The
// upsert is a full-record write keyed by id: INSERT .. ON CONFLICT(id)
// DO UPDATE over every non-key column.
func NewTable[T models.Syncable](
	kind models.EntityKind,
	name string,
	cols []string,
	scan func(RowScanner) (T, error),
	args func(T) []any,
) *Table[T] {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	sets := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	return &Table[T]{
		kind: kind,
		name: name,
		cols: cols,
		scan: scan,
		args: args,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), name),
		upsertSQL: fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
			name, strings.Join(cols, ", "), placeholders, strings.Join(sets, ", "),
		),
	}
}

// Kind returns the entity kind this table stores.
func (t *Table[T]) Kind() models.EntityKind {
	return t.kind
}

// Name returns the SQLite table name.
func (t *Table[T]) Name() string {
	return t.name
}

// FetchByID returns the record with the given id, ErrNotFound when it
// does not exist. Soft-deleted records are returned; deleted_at is an
// ordinary field for sync purposes.
func (t *Table[T]) FetchByID(ctx context.Context, q Querier, id uuid.UUID) (T, error) {
	var zero T

	row := q.QueryRowContext(ctx, t.selectSQL+" WHERE id = ?", id.String())
	rec, err := t.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to fetch %s by id: %w", t.name, err)
	}
	return rec, nil
}

// FetchDirty returns every record of the owner with unconfirmed local
// edits, in stable (created_at, id) order.
func (t *Table[T]) FetchDirty(ctx context.Context, q Querier, ownerID uuid.UUID) ([]T, error) {
	query := t.selectSQL + " WHERE owner_id = ? AND dirty = 1 ORDER BY created_at, id"

	rows, err := q.QueryContext(ctx, query, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty %s: %w", t.name, err)
	}
	defer rows.Close()

	var recs []T
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.name, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", t.name, err)
	}
	return recs, nil
}

// CountDirty returns the number of records with unconfirmed local
// edits for the owner.
func (t *Table[T]) CountDirty(ctx context.Context, q Querier, ownerID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE owner_id = ? AND dirty = 1", t.name),
		ownerID.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count dirty %s: %w", t.name, err)
	}
	return n, nil
}

// Upsert writes the full record keyed by id. Idempotent: writing the
// same record twice leaves one row.
func (t *Table[T]) Upsert(ctx context.Context, q Querier, rec T) error {
	if _, err := q.ExecContext(ctx, t.upsertSQL, t.args(rec)...); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", t.name, err)
	}
	return nil
}

// MarkClean clears the dirty flag after an acknowledged push and stamps
// the push time as updated_at.
func (t *Table[T]) MarkClean(ctx context.Context, q Querier, id uuid.UUID, pushedAt time.Time) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET dirty = 0, updated_at = ? WHERE id = ?", t.name),
		toNanos(pushedAt), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s clean: %w", t.name, err)
	}
	return nil
}
