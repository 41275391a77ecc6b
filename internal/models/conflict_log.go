// Package models provides data model definitions for the Cragbook core.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolution records a concurrent-edit conflict the resolver
// settled during a pull, for user awareness. Audit only; nothing reads
// these rows for control flow.
type ConflictResolution struct {
	ID              uuid.UUID
	EntityKind      EntityKind
	EntityID        uuid.UUID
	LocalUpdatedAt  time.Time
	RemoteUpdatedAt time.Time
	Resolution      string // dirty_wins, remote_wins
	DetectedAt      time.Time
}

// TableName returns the table name for ConflictResolution.
func (ConflictResolution) TableName() string {
	return "conflict_log"
}
