// Package models provides data model definitions for the Cragbook core.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AttemptResult is the outcome of a single attempt on a climb.
type AttemptResult string

const (
	ResultFlash  AttemptResult = "flash"
	ResultSend   AttemptResult = "send"
	ResultFall   AttemptResult = "fall"
	ResultRepeat AttemptResult = "repeat"
)

// Attempt represents one attempt on a climb.
type Attempt struct {
	SyncFields
	ClimbID     uuid.UUID
	Result      AttemptResult
	AttemptedAt time.Time
}

// TableName returns the table name for Attempt.
func (Attempt) TableName() string {
	return "attempts"
}
