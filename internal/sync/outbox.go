package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/db"
	"github.com/stevoh213/cragbook/internal/models"
)

const (
	defaultRetryBase  = time.Second
	defaultRetryCap   = 60 * time.Second
	defaultMaxRetries = 5
)

// RetryScheduler computes per-operation retry delays: exponential
// backoff doubling from Base, capped at Cap. Operations that fail more
// than MaxRetries times are marked dead and left for manual requeue.
type RetryScheduler struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
}

// DefaultRetryScheduler returns the production schedule: 2s, 4s, 8s,
// 16s, 32s after each failure, then dead.
func DefaultRetryScheduler() RetryScheduler {
	return RetryScheduler{Base: defaultRetryBase, Cap: defaultRetryCap, MaxRetries: defaultMaxRetries}
}

// Delay returns the wait after an operation's retryCount-th failure:
// Base * 2^retryCount, capped at Cap.
func (r RetryScheduler) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// Shift overflows past ~62 doublings; anything that far gone is
	// capped anyway.
	if retryCount > 32 {
		return r.Cap
	}
	d := r.Base << retryCount
	if d > r.Cap {
		return r.Cap
	}
	return d
}

// Due reports whether the operation's backoff delay has elapsed.
func (r RetryScheduler) Due(op *models.SyncOperation, now time.Time) bool {
	if op.LastAttemptAt == nil {
		return true
	}
	return !now.Before(op.LastAttemptAt.Add(r.Delay(op.RetryCount)))
}

// Exhausted reports whether retryCount has passed the retry budget.
func (r RetryScheduler) Exhausted(retryCount int) bool {
	return retryCount > r.MaxRetries
}

// Outbox is the durable queue of outstanding local changes, backed by
// the sync_ops table. It is the source of truth for what the push pass
// sends; the dirty flags on records are a derived view.
//
// At most one live operation exists per record: enqueues coalesce on
// (entity_kind, entity_id), so ten edits to one session before a sync
// push once.
type Outbox struct {
	retry RetryScheduler
}

// NewOutbox creates an Outbox with the given retry schedule.
func NewOutbox(retry RetryScheduler) *Outbox {
	return &Outbox{retry: retry}
}

// Retry exposes the schedule for callers that need Exhausted checks.
func (o *Outbox) Retry() RetryScheduler {
	return o.retry
}

// Enqueue records the intent to propagate a change, coalescing with any
// existing operation for the same record. Kind merging: a delete
// replaces anything, an update after an unpushed insert stays an
// insert. A fresh edit resets the retry budget, which also revives a
// dead operation.
func (o *Outbox) Enqueue(ctx context.Context, q db.Querier, kind models.EntityKind, entityID uuid.UUID, op models.OpKind, now time.Time) error {
	_, err := q.ExecContext(ctx, `
	INSERT INTO sync_ops (id, entity_kind, entity_id, kind, status, created_at, retry_count, last_attempt_at, last_error)
	VALUES (?, ?, ?, ?, 'pending', ?, 0, NULL, '')
	ON CONFLICT(entity_kind, entity_id) DO UPDATE SET
		kind = CASE
			WHEN excluded.kind = 'delete' THEN 'delete'
			WHEN sync_ops.kind = 'insert' THEN 'insert'
			ELSE excluded.kind
		END,
		status = 'pending',
		retry_count = 0,
		last_attempt_at = NULL,
		last_error = ''`,
		uuid.New().String(), string(kind), entityID.String(), string(op), now.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sync op: %w", err)
	}
	return nil
}

// EnqueueIfAbsent inserts an operation only when the record has none,
// live or dead. The push pass uses it to repair the outbox from dirty
// flags without reviving dead operations or resetting retry budgets.
func (o *Outbox) EnqueueIfAbsent(ctx context.Context, q db.Querier, kind models.EntityKind, entityID uuid.UUID, op models.OpKind, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `
	INSERT INTO sync_ops (id, entity_kind, entity_id, kind, status, created_at, retry_count, last_attempt_at, last_error)
	VALUES (?, ?, ?, ?, 'pending', ?, 0, NULL, '')
	ON CONFLICT(entity_kind, entity_id) DO NOTHING`,
		uuid.New().String(), string(kind), entityID.String(), string(op), now.UTC().UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue sync op: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue sync op: %w", err)
	}
	return n > 0, nil
}

// DequeueDue returns the pending operations whose backoff delay has
// elapsed, in stable (created_at, id) order so parents push before the
// children created after them.
func (o *Outbox) DequeueDue(ctx context.Context, q db.Querier, now time.Time) ([]*models.SyncOperation, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, entity_kind, entity_id, kind, status, created_at, retry_count, last_attempt_at, last_error
	FROM sync_ops WHERE status = 'pending' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync ops: %w", err)
	}
	defer rows.Close()

	var due []*models.SyncOperation
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, err
		}
		if o.retry.Due(op, now) {
			due = append(due, op)
		}
	}
	return due, rows.Err()
}

// Ack removes a confirmed operation.
func (o *Outbox) Ack(ctx context.Context, q db.Querier, id uuid.UUID) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM sync_ops WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to ack sync op: %w", err)
	}
	return nil
}

// Nack records a failed attempt: increments the retry count, stamps the
// attempt time, keeps the cause for diagnostics. Returns the new retry
// count so the caller can check the budget.
func (o *Outbox) Nack(ctx context.Context, q db.Querier, id uuid.UUID, now time.Time, cause string) (int, error) {
	_, err := q.ExecContext(ctx,
		"UPDATE sync_ops SET retry_count = retry_count + 1, last_attempt_at = ?, last_error = ? WHERE id = ?",
		now.UTC().UnixNano(), cause, id.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to nack sync op: %w", err)
	}

	var count int
	err = q.QueryRowContext(ctx, "SELECT retry_count FROM sync_ops WHERE id = ?", id.String()).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, db.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sync op retry count: %w", err)
	}
	return count, nil
}

// MarkDead parks an operation that exhausted its retry budget. Dead
// operations are skipped by DequeueDue until RequeueDead or a fresh
// edit to the record revives them.
func (o *Outbox) MarkDead(ctx context.Context, q db.Querier, id uuid.UUID) error {
	if _, err := q.ExecContext(ctx, "UPDATE sync_ops SET status = 'dead' WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to mark sync op dead: %w", err)
	}
	return nil
}

// RequeueDead revives every dead operation with a fresh retry budget.
// Surfaced to the user as "retry failed changes". Returns the number
// revived.
func (o *Outbox) RequeueDead(ctx context.Context, q db.Querier) (int, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE sync_ops SET status = 'pending', retry_count = 0, last_attempt_at = NULL WHERE status = 'dead'")
	if err != nil {
		return 0, fmt.Errorf("failed to requeue dead sync ops: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue dead sync ops: %w", err)
	}
	return int(n), nil
}

// PendingCount returns the number of live queued operations.
func (o *Outbox) PendingCount(ctx context.Context, q db.Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_ops WHERE status = 'pending'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending sync ops: %w", err)
	}
	return n, nil
}

// DeadCount returns the number of parked operations.
func (o *Outbox) DeadCount(ctx context.Context, q db.Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_ops WHERE status = 'dead'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead sync ops: %w", err)
	}
	return n, nil
}

// ListDead returns the parked operations, oldest first, for the UI's
// failed-changes view.
func (o *Outbox) ListDead(ctx context.Context, q db.Querier) ([]*models.SyncOperation, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, entity_kind, entity_id, kind, status, created_at, retry_count, last_attempt_at, last_error
	FROM sync_ops WHERE status = 'dead' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead sync ops: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncOperation
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func scanOp(s db.RowScanner) (*models.SyncOperation, error) {
	var (
		op               models.SyncOperation
		id, kind, entity string
		opKind, status   string
		createdAt        int64
		lastAttempt      sql.NullInt64
	)
	if err := s.Scan(&id, &kind, &entity, &opKind, &status, &createdAt, &op.RetryCount, &lastAttempt, &op.LastError); err != nil {
		return nil, fmt.Errorf("failed to scan sync op: %w", err)
	}

	opID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid sync op id %q: %w", id, err)
	}
	entityID, err := uuid.Parse(entity)
	if err != nil {
		return nil, fmt.Errorf("invalid sync op entity id %q: %w", entity, err)
	}

	op.ID = opID
	op.EntityKind = models.EntityKind(kind)
	op.EntityID = entityID
	op.Kind = models.OpKind(opKind)
	op.Status = models.OpStatus(status)
	op.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastAttempt.Valid {
		t := time.Unix(0, lastAttempt.Int64).UTC()
		op.LastAttemptAt = &t
	}
	return &op, nil
}
