// Package models provides data model definitions for the Cragbook core.
package models

import "github.com/google/uuid"

// TagImpact records how strongly a training tag applied to a session,
// e.g. {Tag: "crimps", Impact: 3}.
type TagImpact struct {
	SyncFields
	SessionID uuid.UUID
	Tag       string
	Impact    int
}

// TableName returns the table name for TagImpact.
func (TagImpact) TableName() string {
	return "tag_impacts"
}
