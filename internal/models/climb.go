// Package models provides data model definitions for the Cragbook core.
package models

import "github.com/google/uuid"

// Discipline is the style of climbing a climb was logged under.
type Discipline string

const (
	DisciplineBoulder Discipline = "boulder"
	DisciplineSport   Discipline = "sport"
	DisciplineTrad    Discipline = "trad"
)

// Climb represents one route or problem logged within a session. The
// grade is an opaque string; parsing grade systems is out of scope for
// the core.
type Climb struct {
	SyncFields
	SessionID  uuid.UUID
	Name       string
	Grade      string
	Discipline Discipline
	Notes      string
}

// TableName returns the table name for Climb.
func (Climb) TableName() string {
	return "climbs"
}
