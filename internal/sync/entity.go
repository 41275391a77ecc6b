package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/db"
	"github.com/stevoh213/cragbook/internal/models"
)

// remoteTable is the wire contract one entity kind syncs through,
// satisfied by the adapters in internal/remote.
type remoteTable[T models.Syncable] interface {
	FetchChangedSince(ctx context.Context, since time.Time, ownerID uuid.UUID) ([]T, error)
	Upsert(ctx context.Context, rec T) (T, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedAt, pushedAt time.Time) error
}

// Syncer is the type-erased per-kind surface the coordinator drives.
// One Syncer per entity kind, created with Bind.
type Syncer interface {
	Kind() models.EntityKind

	// Fetch pulls the owner's remote changes since the watermark. The
	// returned MergeSet is applied later, inside the merge transaction.
	Fetch(ctx context.Context, since time.Time, ownerID uuid.UUID) (MergeSet, error)

	// Push propagates one outbox operation and, on success, clears the
	// record's dirty flag with the push timestamp.
	Push(ctx context.Context, q db.Querier, op *models.SyncOperation, pushedAt time.Time) error

	// SweepDirty enqueues an operation for every dirty record that has
	// none, repairing the outbox if the two ever diverge. Returns the
	// number of operations added.
	SweepDirty(ctx context.Context, q db.Querier, ownerID uuid.UUID, outbox *Outbox, now time.Time) (int, error)

	// CountDirty reports the owner's unconfirmed local edits.
	CountDirty(ctx context.Context, q db.Querier, ownerID uuid.UUID) (int, error)
}

// MergeStats summarizes one applied MergeSet.
type MergeStats struct {
	Fetched   int
	Inserted  int
	Updated   int
	KeptDirty int
	Unchanged int
}

// MergeSet is a batch of fetched remote rows for one kind, decoupled
// from its application so the coordinator can fetch all kinds over the
// network first and then merge everything in a single transaction.
type MergeSet interface {
	Kind() models.EntityKind
	Len() int
	Apply(ctx context.Context, q db.Querier, now time.Time) (MergeStats, error)
}

// Bind pairs a local table with its remote adapter into a Syncer.
func Bind[T models.Syncable](table *db.Table[T], remote remoteTable[T]) Syncer {
	return &entity[T]{table: table, remote: remote}
}

type entity[T models.Syncable] struct {
	table  *db.Table[T]
	remote remoteTable[T]
}

func (e *entity[T]) Kind() models.EntityKind {
	return e.table.Kind()
}

func (e *entity[T]) Fetch(ctx context.Context, since time.Time, ownerID uuid.UUID) (MergeSet, error) {
	rows, err := e.remote.FetchChangedSince(ctx, since, ownerID)
	if err != nil {
		return nil, err
	}
	return &mergeSet[T]{entity: e, rows: rows}, nil
}

func (e *entity[T]) Push(ctx context.Context, q db.Querier, op *models.SyncOperation, pushedAt time.Time) error {
	switch op.Kind {
	case models.OpDelete:
		return e.pushDelete(ctx, q, op, pushedAt)
	case models.OpInsert, models.OpUpdate:
		return e.pushUpsert(ctx, q, op, pushedAt)
	default:
		return fmt.Errorf("unknown sync op kind %q", op.Kind)
	}
}

// pushUpsert sends the current local state of the record. The op only
// says that the record changed; what gets pushed is whatever the record
// looks like now, which is how coalesced edits collapse into one write.
func (e *entity[T]) pushUpsert(ctx context.Context, q db.Querier, op *models.SyncOperation, pushedAt time.Time) error {
	local, err := e.table.FetchByID(ctx, q, op.EntityID)
	if errors.Is(err, db.ErrNotFound) {
		// Record vanished locally; nothing left to propagate.
		return nil
	}
	if err != nil {
		return err
	}
	if !local.IsDirty() {
		// Already confirmed by an earlier pass.
		return nil
	}

	// Stamp the push time before encoding so the remote row carries it;
	// the write below only lands locally if the upsert succeeds.
	local.MarkClean(pushedAt)
	if _, err := e.remote.Upsert(ctx, local); err != nil {
		return err
	}
	return e.table.MarkClean(ctx, q, op.EntityID, pushedAt)
}

func (e *entity[T]) pushDelete(ctx context.Context, q db.Querier, op *models.SyncOperation, pushedAt time.Time) error {
	deletedAt := pushedAt
	local, err := e.table.FetchByID(ctx, q, op.EntityID)
	if err == nil {
		if t := local.RecordDeletedAt(); t != nil {
			deletedAt = *t
		}
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	if err := e.remote.SoftDelete(ctx, op.EntityID, deletedAt, pushedAt); err != nil {
		return err
	}
	return e.table.MarkClean(ctx, q, op.EntityID, pushedAt)
}

func (e *entity[T]) SweepDirty(ctx context.Context, q db.Querier, ownerID uuid.UUID, outbox *Outbox, now time.Time) (int, error) {
	recs, err := e.table.FetchDirty(ctx, q, ownerID)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, rec := range recs {
		op := models.OpUpdate
		if rec.RecordDeletedAt() != nil {
			op = models.OpDelete
		}
		inserted, err := outbox.EnqueueIfAbsent(ctx, q, e.Kind(), rec.RecordID(), op, now)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

func (e *entity[T]) CountDirty(ctx context.Context, q db.Querier, ownerID uuid.UUID) (int, error) {
	return e.table.CountDirty(ctx, q, ownerID)
}

type mergeSet[T models.Syncable] struct {
	entity *entity[T]
	rows   []T
}

func (m *mergeSet[T]) Kind() models.EntityKind {
	return m.entity.Kind()
}

func (m *mergeSet[T]) Len() int {
	return len(m.rows)
}

// Apply merges the fetched rows into the local table. Remote rows for
// unknown ids are inserted as-is; known ids go through Resolve. A dirty
// local record surviving a genuinely newer remote version is recorded
// in the conflict log.
func (m *mergeSet[T]) Apply(ctx context.Context, q db.Querier, now time.Time) (MergeStats, error) {
	stats := MergeStats{Fetched: len(m.rows)}

	for _, remote := range m.rows {
		local, err := m.entity.table.FetchByID(ctx, q, remote.RecordID())
		if errors.Is(err, db.ErrNotFound) {
			if err := m.entity.table.Upsert(ctx, q, remote); err != nil {
				return stats, err
			}
			stats.Inserted++
			continue
		}
		if err != nil {
			return stats, err
		}

		switch Resolve(local, remote) {
		case TakeRemote:
			if err := m.entity.table.Upsert(ctx, q, remote); err != nil {
				return stats, err
			}
			stats.Updated++
		case KeepLocal:
			if local.IsDirty() && remote.RecordUpdatedAt().After(local.RecordUpdatedAt()) {
				conflict := &models.ConflictResolution{
					EntityKind:      m.Kind(),
					EntityID:        remote.RecordID(),
					LocalUpdatedAt:  local.RecordUpdatedAt(),
					RemoteUpdatedAt: remote.RecordUpdatedAt(),
					Resolution:      "dirty_wins",
					DetectedAt:      now,
				}
				if err := db.InsertConflict(ctx, q, conflict); err != nil {
					return stats, err
				}
				stats.KeptDirty++
			} else {
				stats.Unchanged++
			}
		}
	}
	return stats, nil
}
