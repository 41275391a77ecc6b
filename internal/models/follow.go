// Package models provides data model definitions for the Cragbook core.
package models

import "github.com/google/uuid"

// Follow records that the owner follows another user.
type Follow struct {
	SyncFields
	FolloweeID uuid.UUID
}

// TableName returns the table name for Follow.
func (Follow) TableName() string {
	return "follows"
}
