package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/models"
)

// InsertConflict records a resolved concurrent-edit conflict.
func InsertConflict(ctx context.Context, q Querier, c *models.ConflictResolution) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	_, err := q.ExecContext(ctx, `
	INSERT INTO conflict_log (id, entity_kind, entity_id, local_updated_at, remote_updated_at, resolution, detected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), string(c.EntityKind), c.EntityID.String(),
		toNanos(c.LocalUpdatedAt), toNanos(c.RemoteUpdatedAt), c.Resolution, toNanos(c.DetectedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conflict log: %w", err)
	}
	return nil
}

// ListConflicts returns the most recent resolved conflicts, newest
// first, for the UI's sync-awareness view.
func ListConflicts(ctx context.Context, q Querier, limit int) ([]*models.ConflictResolution, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT id, entity_kind, entity_id, local_updated_at, remote_updated_at, resolution, detected_at
	FROM conflict_log ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflict log: %w", err)
	}
	defer rows.Close()

	var out []*models.ConflictResolution
	for rows.Next() {
		var (
			c                    models.ConflictResolution
			id, kind, entityID   string
			local, remote, found int64
		)
		if err := rows.Scan(&id, &kind, &entityID, &local, &remote, &c.Resolution, &found); err != nil {
			return nil, fmt.Errorf("failed to scan conflict log: %w", err)
		}
		cid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid conflict id %q: %w", id, err)
		}
		eid, err := uuid.Parse(entityID)
		if err != nil {
			return nil, fmt.Errorf("invalid conflict entity id %q: %w", entityID, err)
		}
		c.ID = cid
		c.EntityKind = models.EntityKind(kind)
		c.EntityID = eid
		c.LocalUpdatedAt = fromNanos(local)
		c.RemoteUpdatedAt = fromNanos(remote)
		c.DetectedAt = fromNanos(found)
		out = append(out, &c)
	}
	return out, rows.Err()
}
