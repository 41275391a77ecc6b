// Package models provides data model definitions for the Cragbook core.
package models

// Profile is the public profile of a user. Its ID equals the owner's
// user id, so each user syncs exactly one profile row.
type Profile struct {
	SyncFields
	DisplayName string
	Bio         string
	AvatarURL   string
}

// TableName returns the table name for Profile.
func (Profile) TableName() string {
	return "profiles"
}
