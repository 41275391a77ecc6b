package sync

import (
	"context"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevoh213/cragbook/internal/db"
	apperrors "github.com/stevoh213/cragbook/internal/errors"
	"github.com/stevoh213/cragbook/internal/models"
)

type fakeClock struct {
	mu  stdsync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSessionRemote is an in-memory stand-in for the sessions table
// adapter.
type fakeSessionRemote struct {
	mu           stdsync.Mutex
	rows         map[uuid.UUID]*models.Session
	fetchErr     error
	upsertErrFor map[uuid.UUID]error
	lastSince    time.Time
	fetches      int
	upserts      int
	deletes      int
}

func newFakeSessionRemote() *fakeSessionRemote {
	return &fakeSessionRemote{
		rows:         make(map[uuid.UUID]*models.Session),
		upsertErrFor: make(map[uuid.UUID]error),
	}
}

func (f *fakeSessionRemote) FetchChangedSince(ctx context.Context, since time.Time, ownerID uuid.UUID) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	f.lastSince = since
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	var out []*models.Session
	for _, s := range f.rows {
		if s.OwnerID != ownerID {
			continue
		}
		if !since.IsZero() && !s.UpdatedAt.After(since) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeSessionRemote) Upsert(ctx context.Context, rec *models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upserts++
	if err := f.upsertErrFor[rec.ID]; err != nil {
		return nil, err
	}

	cp := *rec
	f.rows[rec.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeSessionRemote) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt, pushedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes++
	if s, ok := f.rows[id]; ok {
		t := deletedAt
		s.DeletedAt = &t
		s.UpdatedAt = pushedAt
	}
	return nil
}

func (f *fakeSessionRemote) get(id uuid.UUID) *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.rows[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

func (f *fakeSessionRemote) put(s *models.Session) {
	f.mu.Lock()
	cp := *s
	f.rows[s.ID] = &cp
	f.mu.Unlock()
}

func (f *fakeSessionRemote) counts() (fetches, upserts, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.upserts, f.deletes
}

func newSession(owner uuid.UUID, rpe int, at time.Time, dirty bool) *models.Session {
	return &models.Session{
		SyncFields: models.SyncFields{
			ID:        uuid.New(),
			OwnerID:   owner,
			CreatedAt: at,
			UpdatedAt: at,
			Dirty:     dirty,
		},
		CragName:  "Fontainebleau",
		StartedAt: at,
		RPE:       rpe,
	}
}

func newTestCoordinator(t *testing.T, remote *fakeSessionRemote, clock *fakeClock, retry RetryScheduler) (*Coordinator, *db.Store, *Outbox) {
	t.Helper()

	store := newTestStore(t)
	outbox := NewOutbox(retry)
	coord := NewCoordinator(Config{
		Store:    store,
		Entities: []Syncer{Bind(db.Sessions, remote)},
		Outbox:   outbox,
		Clock:    clock.Now,
		Logger:   zerolog.Nop(),
	})
	return coord, store, outbox
}

func TestPerformSyncPullsRemoteRows(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	mine := newSession(owner, 6, base.Add(-time.Hour), false)
	theirs := newSession(uuid.New(), 8, base.Add(-time.Hour), false)
	remote.put(mine)
	remote.put(theirs)

	coord, store, _ := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())
	require.NoError(t, coord.PerformSync(ctx, owner))

	got, err := db.Sessions.FetchByID(ctx, store.Handle(), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.RPE)
	assert.False(t, got.Dirty, "pulled rows arrive clean")

	_, err = db.Sessions.FetchByID(ctx, store.Handle(), theirs.ID)
	assert.ErrorIs(t, err, db.ErrNotFound, "other owners' rows are not pulled")

	wm, err := db.GetMetaTime(ctx, store.Handle(), db.MetaLastSyncAt)
	require.NoError(t, err)
	assert.True(t, wm.Equal(base), "watermark is the pass start time")
}

func TestPerformSyncPushesDirtyRecords(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	local := newSession(owner, 7, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), local))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, local.ID, models.OpInsert, base.Add(-time.Minute)))

	require.NoError(t, coord.PerformSync(ctx, owner))

	pushed := remote.get(local.ID)
	require.NotNil(t, pushed)
	assert.Equal(t, 7, pushed.RPE)
	assert.True(t, pushed.UpdatedAt.Equal(base), "pushed row carries the push timestamp")

	got, err := db.Sessions.FetchByID(ctx, store.Handle(), local.ID)
	require.NoError(t, err)
	assert.False(t, got.Dirty)
	assert.True(t, got.UpdatedAt.Equal(base))

	pending, err := outbox.PendingCount(ctx, store.Handle())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

// A session edited offline to RPE 7 must survive a pull that carries a
// newer remote RPE 9, then overwrite the remote on push. Both sides end
// at 7.
func TestDirtyLocalSurvivesNewerRemote(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	local := newSession(owner, 7, base.Add(-2*time.Hour), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), local))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, local.ID, models.OpUpdate, base.Add(-2*time.Hour)))

	// Another device pushed RPE 9 more recently.
	remoteVersion := *local
	remoteVersion.RPE = 9
	remoteVersion.UpdatedAt = base.Add(-time.Hour)
	remoteVersion.Dirty = false
	remote.put(&remoteVersion)

	require.NoError(t, coord.PerformSync(ctx, owner))

	got, err := db.Sessions.FetchByID(ctx, store.Handle(), local.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.RPE, "unpushed local edit survives the pull")
	assert.False(t, got.Dirty, "push confirmed the edit")

	pushed := remote.get(local.ID)
	require.NotNil(t, pushed)
	assert.Equal(t, 7, pushed.RPE, "push overwrote the remote version")

	conflicts, err := db.ListConflicts(ctx, store.Handle(), 10)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "dirty_wins", conflicts[0].Resolution)
	assert.Equal(t, local.ID, conflicts[0].EntityID)
}

func TestFailedPullKeepsWatermark(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, _ := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	remote.fetchErr = apperrors.New(apperrors.ErrTransport, "connection refused")
	require.Error(t, coord.PerformSync(ctx, owner))

	wm, err := db.GetMetaTime(ctx, store.Handle(), db.MetaLastSyncAt)
	require.NoError(t, err)
	assert.True(t, wm.IsZero(), "failed pull must not advance the watermark")

	state, err := coord.State(ctx, owner)
	require.NoError(t, err)
	require.Error(t, state.LastError)
	assert.Equal(t, apperrors.ErrTransport, apperrors.CodeOf(state.LastError))

	// Recovery: the next pass re-fetches the same window and succeeds.
	remote.fetchErr = nil
	require.NoError(t, coord.PerformSync(ctx, owner))

	wm, err = db.GetMetaTime(ctx, store.Handle(), db.MetaLastSyncAt)
	require.NoError(t, err)
	assert.True(t, wm.Equal(base))

	state, err = coord.State(ctx, owner)
	require.NoError(t, err)
	assert.NoError(t, state.LastError)
}

func TestPullWindowOverlapsForClockSkew(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, _ := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	require.NoError(t, coord.PerformSync(ctx, owner))

	// A row stamped slightly before the watermark by a skewed clock.
	straggler := newSession(owner, 5, base.Add(-2*time.Minute), false)
	remote.put(straggler)

	clock.Advance(10 * time.Minute)
	require.NoError(t, coord.PerformSync(ctx, owner))

	assert.True(t, remote.lastSince.Equal(base.Add(-defaultClockSkew)),
		"pull window starts skew before the watermark")

	got, err := db.Sessions.FetchByID(ctx, store.Handle(), straggler.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RPE)
}

func TestTransportAbortKeepsRetryBudget(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	first := newSession(owner, 6, base.Add(-2*time.Minute), true)
	second := newSession(owner, 7, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), first))
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), second))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, first.ID, models.OpUpdate, base.Add(-2*time.Minute)))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, second.ID, models.OpUpdate, base.Add(-time.Minute)))

	remote.upsertErrFor[second.ID] = apperrors.New(apperrors.ErrServer, "backend returned 502")

	err := coord.PerformSync(ctx, owner)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrServer, apperrors.CodeOf(err))

	// The record pushed before the abort stays confirmed.
	got, err := db.Sessions.FetchByID(ctx, store.Handle(), first.ID)
	require.NoError(t, err)
	assert.False(t, got.Dirty)

	// The aborting record was not nacked; connectivity failures say
	// nothing about the record itself.
	ops, err := outbox.DequeueDue(ctx, store.Handle(), clock.Now())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, second.ID, ops[0].EntityID)
	assert.Equal(t, 0, ops[0].RetryCount)
}

func TestValidationFailureNacksAndContinues(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	bad := newSession(owner, 6, base.Add(-2*time.Minute), true)
	good := newSession(owner, 7, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), bad))
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), good))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, bad.ID, models.OpUpdate, base.Add(-2*time.Minute)))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, good.ID, models.OpUpdate, base.Add(-time.Minute)))

	remote.upsertErrFor[bad.ID] = apperrors.New(apperrors.ErrValidation, "rpe out of range")

	require.NoError(t, coord.PerformSync(ctx, owner), "a rejected record does not fail the pass")

	// The rejected record stays dirty with one failed attempt on the
	// books; the one behind it pushed fine.
	gotBad, err := db.Sessions.FetchByID(ctx, store.Handle(), bad.ID)
	require.NoError(t, err)
	assert.True(t, gotBad.Dirty)

	gotGood, err := db.Sessions.FetchByID(ctx, store.Handle(), good.ID)
	require.NoError(t, err)
	assert.False(t, gotGood.Dirty)

	ops, err := outbox.DequeueDue(ctx, store.Handle(), clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, bad.ID, ops[0].EntityID)
	assert.Equal(t, 1, ops[0].RetryCount)
}

func TestRetriesExhaustedParksOp(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	retry := RetryScheduler{Base: time.Millisecond, Cap: time.Millisecond, MaxRetries: 1}
	coord, store, outbox := newTestCoordinator(t, remote, clock, retry)

	rec := newSession(owner, 6, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), rec))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, rec.ID, models.OpUpdate, base.Add(-time.Minute)))

	remote.upsertErrFor[rec.ID] = apperrors.New(apperrors.ErrValidation, "rpe out of range")

	// First failure spends the budget, second exhausts it.
	require.NoError(t, coord.PerformSync(ctx, owner))
	clock.Advance(time.Second)

	err := coord.PerformSync(ctx, owner)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrRetriesExhausted, apperrors.CodeOf(err))

	dead, err := outbox.DeadCount(ctx, store.Handle())
	require.NoError(t, err)
	assert.Equal(t, 1, dead)

	// Later passes skip the parked op even though the record is dirty.
	_, upsertsBefore, _ := remote.counts()
	clock.Advance(time.Second)
	require.NoError(t, coord.PerformSync(ctx, owner))
	_, upsertsAfter, _ := remote.counts()
	assert.Equal(t, upsertsBefore, upsertsAfter)

	// Until the user retries failed changes.
	revived, err := coord.RequeueDead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, revived)
}

func TestSweepRepairsMissingOps(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, _ := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	// Dirty record with no outbox entry, as after a crash between the
	// record write and a lost queue.
	rec := newSession(owner, 6, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), rec))

	require.NoError(t, coord.PerformSync(ctx, owner))

	pushed := remote.get(rec.ID)
	require.NotNil(t, pushed)
	assert.Equal(t, 6, pushed.RPE)

	got, err := db.Sessions.FetchByID(ctx, store.Handle(), rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Dirty)
}

func TestDeletePropagates(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	rec := newSession(owner, 6, base.Add(-time.Hour), false)
	remote.put(rec)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), rec))

	deletedAt := base.Add(-time.Minute)
	rec.MarkDeleted(deletedAt)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), rec))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, rec.ID, models.OpDelete, deletedAt))

	require.NoError(t, coord.PerformSync(ctx, owner))

	remoteRow := remote.get(rec.ID)
	require.NotNil(t, remoteRow)
	require.NotNil(t, remoteRow.DeletedAt)
	assert.True(t, remoteRow.DeletedAt.Equal(deletedAt))
	assert.True(t, remoteRow.UpdatedAt.Equal(base), "the tombstone carries the push time")

	// The local row survives as a tombstone, clean.
	got, err := db.Sessions.FetchByID(ctx, store.Handle(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.False(t, got.Dirty)
}

// A deletion made offline must reach a device whose watermark has moved
// past the deletion time by the time the tombstone is finally pushed.
func TestDelayedDeleteReachesOtherDevices(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	deviceA, storeA, outboxA := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())
	deviceB, storeB, _ := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	rec := newSession(owner, 6, base.Add(-time.Hour), false)
	remote.put(rec)
	require.NoError(t, deviceA.PerformSync(ctx, owner))
	require.NoError(t, deviceB.PerformSync(ctx, owner))

	// Device A deletes while offline.
	clock.Advance(10 * time.Minute)
	localA, err := db.Sessions.FetchByID(ctx, storeA.Handle(), rec.ID)
	require.NoError(t, err)
	localA.MarkDeleted(clock.Now())
	require.NoError(t, db.Sessions.Upsert(ctx, storeA.Handle(), localA))
	require.NoError(t, outboxA.Enqueue(ctx, storeA.Handle(), models.KindSession, rec.ID, models.OpDelete, clock.Now()))

	// Device B keeps syncing; its watermark moves well past the
	// deletion time.
	clock.Advance(20 * time.Minute)
	require.NoError(t, deviceB.PerformSync(ctx, owner))

	// Device A comes back online and pushes the tombstone.
	clock.Advance(30 * time.Minute)
	require.NoError(t, deviceA.PerformSync(ctx, owner))

	clock.Advance(10 * time.Minute)
	require.NoError(t, deviceB.PerformSync(ctx, owner))

	gotB, err := db.Sessions.FetchByID(ctx, storeB.Handle(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, gotB.DeletedAt, "the delayed deletion reaches the other device")
	assert.True(t, gotB.DeletedAt.Equal(base.Add(10*time.Minute)))
}

func TestSingleFlight(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, _, _ := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	earlier := apperrors.New(apperrors.ErrTransport, "connection refused")
	coord.recordErr(earlier)

	require.True(t, coord.begin())
	assert.True(t, coord.InFlight())

	// A trigger during an in-flight pass is dropped without touching
	// the network or the recorded error.
	require.NoError(t, coord.PerformSync(ctx, owner))
	fetches, _, _ := remote.counts()
	assert.Zero(t, fetches)

	state, err := coord.State(ctx, owner)
	require.NoError(t, err)
	assert.Same(t, earlier, state.LastError, "a dropped trigger leaves lastError alone")

	coord.end()
	require.NoError(t, coord.PerformSync(ctx, owner))
	fetches, _, _ = remote.counts()
	assert.Equal(t, 1, fetches)

	state, err = coord.State(ctx, owner)
	require.NoError(t, err)
	assert.NoError(t, state.LastError)
}

func TestPushPendingChangesSkipsPull(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	rec := newSession(owner, 6, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), rec))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, rec.ID, models.OpInsert, base.Add(-time.Minute)))

	require.NoError(t, coord.PushPendingChanges(ctx, owner))

	fetches, upserts, _ := remote.counts()
	assert.Zero(t, fetches)
	assert.Equal(t, 1, upserts)
}

func TestStateReportsCounts(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	remote := newFakeSessionRemote()

	coord, store, outbox := newTestCoordinator(t, remote, clock, DefaultRetryScheduler())

	rec := newSession(owner, 6, base.Add(-time.Minute), true)
	require.NoError(t, db.Sessions.Upsert(ctx, store.Handle(), rec))
	require.NoError(t, outbox.Enqueue(ctx, store.Handle(), models.KindSession, rec.ID, models.OpInsert, base.Add(-time.Minute)))

	state, err := coord.State(ctx, owner)
	require.NoError(t, err)
	assert.True(t, state.LastSyncAt.IsZero())
	assert.False(t, state.Syncing)
	assert.Equal(t, 1, state.DirtyCount)
	assert.Equal(t, 1, state.PendingOps)
	assert.Zero(t, state.DeadOps)
	assert.NoError(t, state.LastError)

	require.NoError(t, coord.PerformSync(ctx, owner))

	state, err = coord.State(ctx, owner)
	require.NoError(t, err)
	assert.True(t, state.LastSyncAt.Equal(base))
	assert.Zero(t, state.DirtyCount)
	assert.Zero(t, state.PendingOps)
}
