// Package models provides data model definitions for the Cragbook core.
package models

import "time"

// Session represents one climbing session in the logbook.
type Session struct {
	SyncFields
	CragName  string
	StartedAt time.Time
	EndedAt   *time.Time
	RPE       int // rate of perceived exertion, 1-10
	Notes     string
}

// TableName returns the table name for Session.
func (Session) TableName() string {
	return "sessions"
}
