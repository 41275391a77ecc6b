package remote

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/models"
)

// Adapter constructors, one per synced entity kind.

// NewSessionAdapter adapts the sessions table.
func NewSessionAdapter(c *Client) *Adapter[*models.Session, sessionDTO] {
	return NewAdapter(c, models.KindSession, "sessions",
		func(s *models.Session) sessionDTO {
			return sessionDTO{
				baseDTO:   encodeBase(&s.SyncFields),
				CragName:  s.CragName,
				StartedAt: formatWireTime(s.StartedAt),
				EndedAt:   formatWireTimePtr(s.EndedAt),
				RPE:       s.RPE,
				Notes:     s.Notes,
			}
		},
		func(d sessionDTO) (*models.Session, error) {
			var s models.Session
			if err := decodeBase(d.baseDTO, &s.SyncFields); err != nil {
				return nil, err
			}
			startedAt, err := parseWireTime(d.StartedAt)
			if err != nil {
				return nil, err
			}
			endedAt, err := parseWireTimePtr(d.EndedAt)
			if err != nil {
				return nil, err
			}
			s.CragName = d.CragName
			s.StartedAt = startedAt
			s.EndedAt = endedAt
			s.RPE = d.RPE
			s.Notes = d.Notes
			return &s, nil
		},
	)
}

// NewClimbAdapter adapts the climbs table.
func NewClimbAdapter(c *Client) *Adapter[*models.Climb, climbDTO] {
	return NewAdapter(c, models.KindClimb, "climbs",
		func(cl *models.Climb) climbDTO {
			return climbDTO{
				baseDTO:    encodeBase(&cl.SyncFields),
				SessionID:  cl.SessionID.String(),
				Name:       cl.Name,
				Grade:      cl.Grade,
				Discipline: string(cl.Discipline),
				Notes:      cl.Notes,
			}
		},
		func(d climbDTO) (*models.Climb, error) {
			var cl models.Climb
			if err := decodeBase(d.baseDTO, &cl.SyncFields); err != nil {
				return nil, err
			}
			sid, err := uuid.Parse(d.SessionID)
			if err != nil {
				return nil, fmt.Errorf("malformed session_id %q: %w", d.SessionID, err)
			}
			cl.SessionID = sid
			cl.Name = d.Name
			cl.Grade = d.Grade
			cl.Discipline = models.Discipline(d.Discipline)
			cl.Notes = d.Notes
			return &cl, nil
		},
	)
}

// NewAttemptAdapter adapts the attempts table.
func NewAttemptAdapter(c *Client) *Adapter[*models.Attempt, attemptDTO] {
	return NewAdapter(c, models.KindAttempt, "attempts",
		func(a *models.Attempt) attemptDTO {
			return attemptDTO{
				baseDTO:     encodeBase(&a.SyncFields),
				ClimbID:     a.ClimbID.String(),
				Result:      string(a.Result),
				AttemptedAt: formatWireTime(a.AttemptedAt),
			}
		},
		func(d attemptDTO) (*models.Attempt, error) {
			var a models.Attempt
			if err := decodeBase(d.baseDTO, &a.SyncFields); err != nil {
				return nil, err
			}
			cid, err := uuid.Parse(d.ClimbID)
			if err != nil {
				return nil, fmt.Errorf("malformed climb_id %q: %w", d.ClimbID, err)
			}
			attemptedAt, err := parseWireTime(d.AttemptedAt)
			if err != nil {
				return nil, err
			}
			a.ClimbID = cid
			a.Result = models.AttemptResult(d.Result)
			a.AttemptedAt = attemptedAt
			return &a, nil
		},
	)
}

// NewTagImpactAdapter adapts the tag_impacts table.
func NewTagImpactAdapter(c *Client) *Adapter[*models.TagImpact, tagImpactDTO] {
	return NewAdapter(c, models.KindTagImpact, "tag_impacts",
		func(t *models.TagImpact) tagImpactDTO {
			return tagImpactDTO{
				baseDTO:   encodeBase(&t.SyncFields),
				SessionID: t.SessionID.String(),
				Tag:       t.Tag,
				Impact:    t.Impact,
			}
		},
		func(d tagImpactDTO) (*models.TagImpact, error) {
			var t models.TagImpact
			if err := decodeBase(d.baseDTO, &t.SyncFields); err != nil {
				return nil, err
			}
			sid, err := uuid.Parse(d.SessionID)
			if err != nil {
				return nil, fmt.Errorf("malformed session_id %q: %w", d.SessionID, err)
			}
			t.SessionID = sid
			t.Tag = d.Tag
			t.Impact = d.Impact
			return &t, nil
		},
	)
}

// NewProfileAdapter adapts the profiles table.
func NewProfileAdapter(c *Client) *Adapter[*models.Profile, profileDTO] {
	return NewAdapter(c, models.KindProfile, "profiles",
		func(p *models.Profile) profileDTO {
			return profileDTO{
				baseDTO:     encodeBase(&p.SyncFields),
				DisplayName: p.DisplayName,
				Bio:         p.Bio,
				AvatarURL:   p.AvatarURL,
			}
		},
		func(d profileDTO) (*models.Profile, error) {
			var p models.Profile
			if err := decodeBase(d.baseDTO, &p.SyncFields); err != nil {
				return nil, err
			}
			p.DisplayName = d.DisplayName
			p.Bio = d.Bio
			p.AvatarURL = d.AvatarURL
			return &p, nil
		},
	)
}

// NewFollowAdapter adapts the follows table.
func NewFollowAdapter(c *Client) *Adapter[*models.Follow, followDTO] {
	return NewAdapter(c, models.KindFollow, "follows",
		func(f *models.Follow) followDTO {
			return followDTO{
				baseDTO:    encodeBase(&f.SyncFields),
				FolloweeID: f.FolloweeID.String(),
			}
		},
		func(d followDTO) (*models.Follow, error) {
			var f models.Follow
			if err := decodeBase(d.baseDTO, &f.SyncFields); err != nil {
				return nil, err
			}
			fid, err := uuid.Parse(d.FolloweeID)
			if err != nil {
				return nil, fmt.Errorf("malformed followee_id %q: %w", d.FolloweeID, err)
			}
			f.FolloweeID = fid
			return &f, nil
		},
	)
}
