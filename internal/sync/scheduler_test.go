package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevoh213/cragbook/internal/db"
)

func newTestScheduler(t *testing.T, remote *fakeSessionRemote, interval time.Duration) (*Scheduler, *Coordinator) {
	t.Helper()

	store := newTestStore(t)
	outbox := NewOutbox(DefaultRetryScheduler())
	coord := NewCoordinator(Config{
		Store:    store,
		Entities: []Syncer{Bind(db.Sessions, remote)},
		Outbox:   outbox,
		Logger:   zerolog.Nop(),
	})
	return NewScheduler(coord, uuid.New(), SchedulerConfig{Interval: interval, Logger: zerolog.Nop()}), coord
}

func TestTriggerSyncRunsAPass(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, _ := newTestScheduler(t, remote, time.Hour)

	assert.True(t, sched.TriggerSync(context.Background()))

	require.Eventually(t, func() bool {
		fetches, _, _ := remote.counts()
		return fetches == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTriggerSyncIgnoredWhileOffline(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, _ := newTestScheduler(t, remote, time.Hour)

	sched.SetOnline(context.Background(), false)
	assert.False(t, sched.TriggerSync(context.Background()))

	fetches, _, _ := remote.counts()
	assert.Zero(t, fetches)
}

func TestComingOnlineTriggersSync(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, _ := newTestScheduler(t, remote, time.Hour)

	ctx := context.Background()
	sched.SetOnline(ctx, false)
	sched.SetOnline(ctx, true)

	require.Eventually(t, func() bool {
		fetches, _, _ := remote.counts()
		return fetches == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPeriodicLoopSyncs(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, _ := newTestScheduler(t, remote, 20*time.Millisecond)

	sched.Start(context.Background())
	defer sched.Stop()

	require.Eventually(t, func() bool {
		fetches, _, _ := remote.counts()
		return fetches >= 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSyncNowIsSynchronous(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, _ := newTestScheduler(t, remote, time.Hour)

	require.NoError(t, sched.SyncNow(context.Background()))

	fetches, _, _ := remote.counts()
	assert.Equal(t, 1, fetches)
}

func TestStartStopIdempotent(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, _ := newTestScheduler(t, remote, time.Hour)

	sched.Start(context.Background())
	sched.Start(context.Background())
	assert.True(t, sched.IsRunning())

	sched.Stop()
	assert.False(t, sched.IsRunning())
	sched.Stop()
}

func TestTriggerDroppedWhileInFlight(t *testing.T) {
	remote := newFakeSessionRemote()
	sched, coord := newTestScheduler(t, remote, time.Hour)

	require.True(t, coord.begin())
	defer coord.end()

	assert.False(t, sched.TriggerSync(context.Background()))
}
