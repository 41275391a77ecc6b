package sync

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/db"
	apperrors "github.com/stevoh213/cragbook/internal/errors"
	"github.com/stevoh213/cragbook/internal/models"
)

// Tracker is the write path the app layer mutates records through.
// Every save or delete marks the record dirty and enqueues its outbox
// operation in the same transaction, so the queue can never miss a
// change.
type Tracker struct {
	store  *db.Store
	outbox *Outbox
	clock  func() time.Time
}

// NewTracker creates a Tracker. A nil clock means time.Now.
func NewTracker(store *db.Store, outbox *Outbox, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{store: store, outbox: outbox, clock: clock}
}

// Save writes a new or edited record. The caller generates the id; a
// record with the nil id is rejected. The record is stamped dirty with
// the save time, so a save during an in-flight push stays dirty after
// that push completes.
func Save[T models.Syncable](ctx context.Context, t *Tracker, table *db.Table[T], rec T) error {
	if rec.RecordID() == uuid.Nil {
		return apperrors.New(apperrors.ErrInvalid, "record has no id")
	}
	if rec.RecordOwner() == uuid.Nil {
		return apperrors.New(apperrors.ErrInvalid, "record has no owner")
	}

	now := t.clock()
	return t.store.WithTx(ctx, func(tx *sql.Tx) error {
		op := models.OpUpdate
		if _, err := table.FetchByID(ctx, tx, rec.RecordID()); errors.Is(err, db.ErrNotFound) {
			op = models.OpInsert
		} else if err != nil {
			return err
		}

		rec.MarkDirty(now)
		if err := table.Upsert(ctx, tx, rec); err != nil {
			return err
		}
		return t.outbox.Enqueue(ctx, tx, table.Kind(), rec.RecordID(), op, now)
	})
}

// Delete soft-deletes a record: sets its deletion marker as a local
// edit and queues the delete for propagation. The row stays in the
// local table so other devices can learn of the deletion.
func Delete[T models.Syncable](ctx context.Context, t *Tracker, table *db.Table[T], id uuid.UUID) error {
	now := t.clock()
	return t.store.WithTx(ctx, func(tx *sql.Tx) error {
		rec, err := table.FetchByID(ctx, tx, id)
		if err != nil {
			return err
		}

		rec.MarkDeleted(now)
		if err := table.Upsert(ctx, tx, rec); err != nil {
			return err
		}
		return t.outbox.Enqueue(ctx, tx, table.Kind(), id, models.OpDelete, now)
	})
}
