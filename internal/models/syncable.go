// Package models provides data model definitions for the Cragbook core.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies one synced entity type. Each kind maps to one
// local table and one remote table.
type EntityKind string

const (
	KindSession   EntityKind = "session"
	KindClimb     EntityKind = "climb"
	KindAttempt   EntityKind = "attempt"
	KindTagImpact EntityKind = "tag_impact"
	KindProfile   EntityKind = "profile"
	KindFollow    EntityKind = "follow"
)

// Kinds lists every synced entity kind in sync order. Parents sync
// before children so pulled foreign keys resolve.
var Kinds = []EntityKind{
	KindProfile,
	KindSession,
	KindClimb,
	KindAttempt,
	KindTagImpact,
	KindFollow,
}

// Syncable is the shape every synced record shares. Implemented by
// embedding SyncFields.
type Syncable interface {
	RecordID() uuid.UUID
	RecordOwner() uuid.UUID
	RecordUpdatedAt() time.Time
	RecordDeletedAt() *time.Time
	IsDirty() bool

	// MarkDirty stamps a local edit: UpdatedAt = now, Dirty = true.
	MarkDirty(now time.Time)
	// MarkClean clears the dirty flag after an acknowledged push and
	// stamps the push time as UpdatedAt.
	MarkClean(pushedAt time.Time)
	// MarkDeleted soft-deletes the record as a local edit.
	MarkDeleted(now time.Time)
}

// SyncFields carries the common sync bookkeeping columns. Dirty is
// local-only and never serialized to the wire. Invariant: a record with
// Dirty=true is never overwritten by an incoming remote version until
// the push that clears Dirty has been acknowledged.
type SyncFields struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	Dirty     bool
}

func (f *SyncFields) RecordID() uuid.UUID         { return f.ID }
func (f *SyncFields) RecordOwner() uuid.UUID      { return f.OwnerID }
func (f *SyncFields) RecordUpdatedAt() time.Time  { return f.UpdatedAt }
func (f *SyncFields) RecordDeletedAt() *time.Time { return f.DeletedAt }
func (f *SyncFields) IsDirty() bool               { return f.Dirty }

// MarkDirty stamps a local edit. CreatedAt is set on first touch so
// client-generated inserts carry a creation time.
func (f *SyncFields) MarkDirty(now time.Time) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	f.Dirty = true
}

// MarkClean clears the dirty flag and stamps the push time, so a later
// pull from this device sees its own write as authoritative.
func (f *SyncFields) MarkClean(pushedAt time.Time) {
	f.UpdatedAt = pushedAt
	f.Dirty = false
}

// MarkDeleted soft-deletes the record. DeletedAt participates in the
// normal field-level overwrite during merge; it is not special-cased.
func (f *SyncFields) MarkDeleted(now time.Time) {
	f.DeletedAt = &now
	f.MarkDirty(now)
}
