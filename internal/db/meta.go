package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Sync bookkeeping keys in the sync_meta table.
const (
	// MetaLastSyncAt is the pull watermark: all remote changes at or
	// before it are assumed already pulled.
	MetaLastSyncAt = "last_sync_at"
)

// GetMetaTime reads a timestamp from sync_meta; the zero time means
// the key was never set.
func GetMetaTime(ctx context.Context, q Querier, key string) (time.Time, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM sync_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync_meta %s: %w", key, err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed sync_meta %s: %w", key, err)
	}
	return t.UTC(), nil
}

// SetMetaTime writes a timestamp to sync_meta.
func SetMetaTime(ctx context.Context, q Querier, key string, t time.Time) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO sync_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, t.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write sync_meta %s: %w", key, err)
	}
	return nil
}
