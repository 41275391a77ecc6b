// Package models provides data model definitions for the Cragbook core.
package models

import (
	"time"

	"github.com/google/uuid"
)

// OpKind is the kind of mutation a sync operation propagates.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// OpStatus is the outbox lifecycle state of a sync operation.
type OpStatus string

const (
	// OpPending operations are eligible for push once their backoff
	// delay has elapsed.
	OpPending OpStatus = "pending"
	// OpDead operations exhausted their retry budget and are never
	// retried automatically again.
	OpDead OpStatus = "dead"
)

// SyncOperation represents one outstanding intent to propagate a local
// change to the remote backend. Created when a local mutation occurs,
// removed on confirmed success, retained with an incremented retry
// count on failure.
type SyncOperation struct {
	ID            uuid.UUID
	EntityKind    EntityKind
	EntityID      uuid.UUID
	Kind          OpKind
	Status        OpStatus
	CreatedAt     time.Time
	RetryCount    int
	LastAttemptAt *time.Time
	LastError     string
}
