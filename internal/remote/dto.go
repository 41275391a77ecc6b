package remote

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/models"
)

// Wire format: timestamps are ISO-8601 with fractional seconds, UTC;
// ids are uuids, client-generated, so inserts never collide across
// devices. The dirty flag never leaves the device.

func formatWireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseWireTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed wire timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func formatWireTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatWireTime(*t)
	return &s
}

func parseWireTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseWireTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// baseDTO carries the columns every remote table shares.
type baseDTO struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"deleted_at"`
}

func encodeBase(f *models.SyncFields) baseDTO {
	return baseDTO{
		ID:        f.ID.String(),
		OwnerID:   f.OwnerID.String(),
		CreatedAt: formatWireTime(f.CreatedAt),
		UpdatedAt: formatWireTime(f.UpdatedAt),
		DeletedAt: formatWireTimePtr(f.DeletedAt),
	}
}

func decodeBase(d baseDTO, f *models.SyncFields) error {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return fmt.Errorf("malformed id %q: %w", d.ID, err)
	}
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return fmt.Errorf("malformed owner_id %q: %w", d.OwnerID, err)
	}
	createdAt, err := parseWireTime(d.CreatedAt)
	if err != nil {
		return err
	}
	updatedAt, err := parseWireTime(d.UpdatedAt)
	if err != nil {
		return err
	}
	deletedAt, err := parseWireTimePtr(d.DeletedAt)
	if err != nil {
		return err
	}

	f.ID = id
	f.OwnerID = owner
	f.CreatedAt = createdAt
	f.UpdatedAt = updatedAt
	f.DeletedAt = deletedAt
	f.Dirty = false
	return nil
}

type sessionDTO struct {
	baseDTO
	CragName  string  `json:"crag_name"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at"`
	RPE       int     `json:"rpe"`
	Notes     string  `json:"notes"`
}

type climbDTO struct {
	baseDTO
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Grade      string `json:"grade"`
	Discipline string `json:"discipline"`
	Notes      string `json:"notes"`
}

type attemptDTO struct {
	baseDTO
	ClimbID     string `json:"climb_id"`
	Result      string `json:"result"`
	AttemptedAt string `json:"attempted_at"`
}

type tagImpactDTO struct {
	baseDTO
	SessionID string `json:"session_id"`
	Tag       string `json:"tag"`
	Impact    int    `json:"impact"`
}

type profileDTO struct {
	baseDTO
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

type followDTO struct {
	baseDTO
	FolloweeID string `json:"followee_id"`
}
