package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/stevoh213/cragbook/internal/models"
)

func record(updatedAt time.Time, dirty bool) *models.Session {
	return &models.Session{
		SyncFields: models.SyncFields{
			ID:        uuid.New(),
			OwnerID:   uuid.New(),
			CreatedAt: updatedAt,
			UpdatedAt: updatedAt,
			Dirty:     dirty,
		},
	}
}

func TestResolveDirtyLocalWins(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	local := record(base, true)
	remote := record(base.Add(time.Hour), false)

	// Remote is strictly newer, but unpushed local edits take priority.
	assert.Equal(t, KeepLocal, Resolve(local, remote))
}

func TestResolveNewerRemoteWins(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	local := record(base, false)
	remote := record(base.Add(time.Second), false)

	assert.Equal(t, TakeRemote, Resolve(local, remote))
}

func TestResolveNewerLocalWins(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	local := record(base.Add(time.Second), false)
	remote := record(base, false)

	assert.Equal(t, KeepLocal, Resolve(local, remote))
}

func TestResolveTieKeepsLocal(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	local := record(base, false)
	remote := record(base, false)

	// Equal timestamps mean re-applying an already-merged row; keeping
	// local makes that a no-op.
	assert.Equal(t, KeepLocal, Resolve(local, remote))
}

func TestResolveSubSecondPrecision(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	local := record(base, false)
	remote := record(base.Add(time.Millisecond), false)

	assert.Equal(t, TakeRemote, Resolve(local, remote))
}
