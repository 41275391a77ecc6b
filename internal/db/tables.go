package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/models"
)

// Table definitions for every synced entity kind. Column order matches
// the schema in migrations/0001_init.sql.

var syncCols = []string{"id", "owner_id", "created_at", "updated_at", "deleted_at", "dirty"}

func withSyncCols(domain ...string) []string {
	return append(append([]string{}, syncCols...), domain...)
}

func syncArgs(f *models.SyncFields) []any {
	dirty := 0
	if f.Dirty {
		dirty = 1
	}
	return []any{
		f.ID.String(),
		f.OwnerID.String(),
		toNanos(f.CreatedAt),
		toNanos(f.UpdatedAt),
		toNullNanos(f.DeletedAt),
		dirty,
	}
}

// syncDest holds scan targets for the shared sync columns.
type syncDest struct {
	id        string
	ownerID   string
	createdAt int64
	updatedAt int64
	deletedAt sql.NullInt64
	dirty     int
}

func (d *syncDest) targets() []any {
	return []any{&d.id, &d.ownerID, &d.createdAt, &d.updatedAt, &d.deletedAt, &d.dirty}
}

func (d *syncDest) apply(f *models.SyncFields) error {
	id, err := uuid.Parse(d.id)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", d.id, err)
	}
	owner, err := uuid.Parse(d.ownerID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", d.ownerID, err)
	}

	f.ID = id
	f.OwnerID = owner
	f.CreatedAt = fromNanos(d.createdAt)
	f.UpdatedAt = fromNanos(d.updatedAt)
	f.DeletedAt = fromNullNanos(d.deletedAt)
	f.Dirty = d.dirty != 0
	return nil
}

// Sessions maps models.Session onto the sessions table.
var Sessions = NewTable(
	models.KindSession,
	"sessions",
	withSyncCols("crag_name", "started_at", "ended_at", "rpe", "notes"),
	func(row RowScanner) (*models.Session, error) {
		var (
			s       models.Session
			d       syncDest
			started int64
			ended   sql.NullInt64
		)
		dest := append(d.targets(), &s.CragName, &started, &ended, &s.RPE, &s.Notes)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		if err := d.apply(&s.SyncFields); err != nil {
			return nil, err
		}
		s.StartedAt = fromNanos(started)
		s.EndedAt = fromNullNanos(ended)
		return &s, nil
	},
	func(s *models.Session) []any {
		return append(syncArgs(&s.SyncFields),
			s.CragName, toNanos(s.StartedAt), toNullNanos(s.EndedAt), s.RPE, s.Notes)
	},
)

// Climbs maps models.Climb onto the climbs table.
var Climbs = NewTable(
	models.KindClimb,
	"climbs",
	withSyncCols("session_id", "name", "grade", "discipline", "notes"),
	func(row RowScanner) (*models.Climb, error) {
		var (
			c         models.Climb
			d         syncDest
			sessionID string
		)
		dest := append(d.targets(), &sessionID, &c.Name, &c.Grade, (*string)(&c.Discipline), &c.Notes)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		if err := d.apply(&c.SyncFields); err != nil {
			return nil, err
		}
		sid, err := uuid.Parse(sessionID)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
		}
		c.SessionID = sid
		return &c, nil
	},
	func(c *models.Climb) []any {
		return append(syncArgs(&c.SyncFields),
			c.SessionID.String(), c.Name, c.Grade, string(c.Discipline), c.Notes)
	},
)

// Attempts maps models.Attempt onto the attempts table.
var Attempts = NewTable(
	models.KindAttempt,
	"attempts",
	withSyncCols("climb_id", "result", "attempted_at"),
	func(row RowScanner) (*models.Attempt, error) {
		var (
			a         models.Attempt
			d         syncDest
			climbID   string
			attempted int64
		)
		dest := append(d.targets(), &climbID, (*string)(&a.Result), &attempted)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		if err := d.apply(&a.SyncFields); err != nil {
			return nil, err
		}
		cid, err := uuid.Parse(climbID)
		if err != nil {
			return nil, fmt.Errorf("invalid climb id %q: %w", climbID, err)
		}
		a.ClimbID = cid
		a.AttemptedAt = fromNanos(attempted)
		return &a, nil
	},
	func(a *models.Attempt) []any {
		return append(syncArgs(&a.SyncFields),
			a.ClimbID.String(), string(a.Result), toNanos(a.AttemptedAt))
	},
)

// TagImpacts maps models.TagImpact onto the tag_impacts table.
var TagImpacts = NewTable(
	models.KindTagImpact,
	"tag_impacts",
	withSyncCols("session_id", "tag", "impact"),
	func(row RowScanner) (*models.TagImpact, error) {
		var (
			t         models.TagImpact
			d         syncDest
			sessionID string
		)
		dest := append(d.targets(), &sessionID, &t.Tag, &t.Impact)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		if err := d.apply(&t.SyncFields); err != nil {
			return nil, err
		}
		sid, err := uuid.Parse(sessionID)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
		}
		t.SessionID = sid
		return &t, nil
	},
	func(t *models.TagImpact) []any {
		return append(syncArgs(&t.SyncFields),
			t.SessionID.String(), t.Tag, t.Impact)
	},
)

// Profiles maps models.Profile onto the profiles table.
var Profiles = NewTable(
	models.KindProfile,
	"profiles",
	withSyncCols("display_name", "bio", "avatar_url"),
	func(row RowScanner) (*models.Profile, error) {
		var (
			p models.Profile
			d syncDest
		)
		dest := append(d.targets(), &p.DisplayName, &p.Bio, &p.AvatarURL)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		if err := d.apply(&p.SyncFields); err != nil {
			return nil, err
		}
		return &p, nil
	},
	func(p *models.Profile) []any {
		return append(syncArgs(&p.SyncFields), p.DisplayName, p.Bio, p.AvatarURL)
	},
)

// Follows maps models.Follow onto the follows table.
var Follows = NewTable(
	models.KindFollow,
	"follows",
	withSyncCols("followee_id"),
	func(row RowScanner) (*models.Follow, error) {
		var (
			f        models.Follow
			d        syncDest
			followee string
		)
		dest := append(d.targets(), &followee)
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		if err := d.apply(&f.SyncFields); err != nil {
			return nil, err
		}
		fid, err := uuid.Parse(followee)
		if err != nil {
			return nil, fmt.Errorf("invalid followee id %q: %w", followee, err)
		}
		f.FolloweeID = fid
		return &f, nil
	},
	func(f *models.Follow) []any {
		return append(syncArgs(&f.SyncFields), f.FolloweeID.String())
	},
)
