package sync

import (
	"context"
	"database/sql"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stevoh213/cragbook/internal/db"
	apperrors "github.com/stevoh213/cragbook/internal/errors"
	"github.com/stevoh213/cragbook/internal/models"
)

// defaultClockSkew widens the pull window to absorb clock drift between
// devices and the backend. Overlap is safe: merging an already-applied
// row is a no-op.
const defaultClockSkew = 5 * time.Minute

// Config wires a Coordinator. Entities must be listed parents before
// children; merges apply in slice order.
type Config struct {
	Store     *db.Store
	Entities  []Syncer
	Outbox    *Outbox
	Clock     func() time.Time
	ClockSkew time.Duration
	Logger    zerolog.Logger
}

// Coordinator runs sync passes: pull remote changes, merge, then drain
// the outbox. At most one pass runs at a time; a trigger arriving while
// one is in flight is dropped, the running pass already covers it.
type Coordinator struct {
	store    *db.Store
	entities []Syncer
	byKind   map[models.EntityKind]Syncer
	outbox   *Outbox
	clock    func() time.Time
	skew     time.Duration
	log      zerolog.Logger

	mu        stdsync.Mutex
	syncing   bool
	wmLoaded  bool
	watermark time.Time
	lastErr   error
}

// NewCoordinator creates a Coordinator. Clock defaults to time.Now and
// ClockSkew to five minutes.
func NewCoordinator(cfg Config) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	skew := cfg.ClockSkew
	if skew == 0 {
		skew = defaultClockSkew
	}

	byKind := make(map[models.EntityKind]Syncer, len(cfg.Entities))
	for _, ent := range cfg.Entities {
		byKind[ent.Kind()] = ent
	}

	return &Coordinator{
		store:    cfg.Store,
		entities: cfg.Entities,
		byKind:   byKind,
		outbox:   cfg.Outbox,
		clock:    clock,
		skew:     skew,
		log:      cfg.Logger,
	}
}

// PerformSync runs one full pass: pull, merge, push. Returns nil
// without doing anything when a pass is already in flight. Pull runs
// first so conflict resolution sees the freshest remote state before
// local changes go out.
func (c *Coordinator) PerformSync(ctx context.Context, ownerID uuid.UUID) error {
	if !c.begin() {
		c.log.Debug().Msg("sync already in flight, trigger dropped")
		return nil
	}
	defer c.end()

	started := c.clock()
	c.log.Info().Str("owner", ownerID.String()).Msg("sync pass started")

	if err := c.pull(ctx, ownerID); err != nil {
		c.recordErr(err)
		c.log.Error().Err(err).Msg("sync pass failed during pull")
		return err
	}
	if err := c.push(ctx, ownerID); err != nil {
		c.recordErr(err)
		c.log.Error().Err(err).Msg("sync pass failed during push")
		return err
	}

	c.recordErr(nil)
	c.log.Info().Dur("took", c.clock().Sub(started)).Msg("sync pass complete")
	return nil
}

// PullUpdates runs the pull half alone: fetch remote changes and merge
// them locally. Nothing is pushed.
func (c *Coordinator) PullUpdates(ctx context.Context, ownerID uuid.UUID) error {
	if !c.begin() {
		return nil
	}
	defer c.end()

	err := c.pull(ctx, ownerID)
	c.recordErr(err)
	return err
}

// PushPendingChanges drains the outbox without pulling first. Useful
// right after a local edit when the pull interval has not elapsed.
func (c *Coordinator) PushPendingChanges(ctx context.Context, ownerID uuid.UUID) error {
	if !c.begin() {
		return nil
	}
	defer c.end()

	err := c.push(ctx, ownerID)
	c.recordErr(err)
	return err
}

// InFlight reports whether a pass is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// RequeueDead revives operations that exhausted their retry budget.
func (c *Coordinator) RequeueDead(ctx context.Context) (int, error) {
	return c.outbox.RequeueDead(ctx, c.store.Handle())
}

// SyncState is a snapshot of sync health for the UI.
type SyncState struct {
	// LastSyncAt is the watermark of the last error-free pull, zero
	// before the first one.
	LastSyncAt time.Time
	// Syncing reports whether a pass is in flight right now.
	Syncing bool
	// DirtyCount is the number of records with unconfirmed local edits.
	DirtyCount int
	// PendingOps and DeadOps count queued and parked outbox operations.
	PendingOps int
	DeadOps    int
	// LastError is the most recent pass failure, nil after a clean pass.
	LastError error
}

// State reports current sync status.
func (c *Coordinator) State(ctx context.Context, ownerID uuid.UUID) (SyncState, error) {
	wm, err := c.loadWatermark(ctx)
	if err != nil {
		return SyncState{}, err
	}

	q := c.store.Handle()
	dirty := 0
	for _, ent := range c.entities {
		n, err := ent.CountDirty(ctx, q, ownerID)
		if err != nil {
			return SyncState{}, err
		}
		dirty += n
	}
	pending, err := c.outbox.PendingCount(ctx, q)
	if err != nil {
		return SyncState{}, err
	}
	dead, err := c.outbox.DeadCount(ctx, q)
	if err != nil {
		return SyncState{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return SyncState{
		LastSyncAt: wm,
		Syncing:    c.syncing,
		DirtyCount: dirty,
		PendingOps: pending,
		DeadOps:    dead,
		LastError:  c.lastErr,
	}, nil
}

// pull fetches every kind's remote changes concurrently, then applies
// all merges plus the new watermark in one transaction. The watermark
// is the pass start time and only advances on an error-free pull, so a
// failed pull re-fetches the same window next time.
func (c *Coordinator) pull(ctx context.Context, ownerID uuid.UUID) error {
	wm, err := c.loadWatermark(ctx)
	if err != nil {
		return err
	}
	var since time.Time
	if !wm.IsZero() {
		since = wm.Add(-c.skew)
	}
	start := c.clock()

	g, gctx := errgroup.WithContext(ctx)
	merges := make([]MergeSet, len(c.entities))
	for i, ent := range c.entities {
		i, ent := i, ent
		g.Go(func() error {
			ms, err := ent.Fetch(gctx, since, ownerID)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", ent.Kind(), err)
			}
			merges[i] = ms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	err = c.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, ms := range merges {
			stats, err := ms.Apply(ctx, tx, c.clock())
			if err != nil {
				return fmt.Errorf("merge %s: %w", ms.Kind(), err)
			}
			c.log.Debug().
				Str("kind", string(ms.Kind())).
				Int("fetched", stats.Fetched).
				Int("inserted", stats.Inserted).
				Int("updated", stats.Updated).
				Int("kept_dirty", stats.KeptDirty).
				Msg("merged remote changes")
		}
		return db.SetMetaTime(ctx, tx, db.MetaLastSyncAt, start)
	})
	if err != nil {
		return err
	}

	c.storeWatermark(start)
	return nil
}

// push repairs the outbox from dirty flags, then drains due operations
// oldest first. Failures are per-record: a rejected record is nacked
// and the pass moves on, while a connectivity-class failure aborts the
// whole pass since every remaining operation would hit the same wall.
// The transaction commits either way so acknowledged work stays clean.
func (c *Coordinator) push(ctx context.Context, ownerID uuid.UUID) error {
	now := c.clock()

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return err
	}

	abortErr, terminalErr := c.drain(ctx, tx, ownerID, now)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit push pass: %w", err)
	}
	if abortErr != nil {
		return fmt.Errorf("push: %w", abortErr)
	}
	return terminalErr
}

func (c *Coordinator) drain(ctx context.Context, tx *sql.Tx, ownerID uuid.UUID, now time.Time) (abortErr, terminalErr error) {
	for _, ent := range c.entities {
		added, err := ent.SweepDirty(ctx, tx, ownerID, c.outbox, now)
		if err != nil {
			return err, nil
		}
		if added > 0 {
			c.log.Warn().
				Str("kind", string(ent.Kind())).
				Int("added", added).
				Msg("outbox repaired from dirty records")
		}
	}

	ops, err := c.outbox.DequeueDue(ctx, tx, now)
	if err != nil {
		return err, nil
	}

	pushed := 0
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err, terminalErr
		}

		ent, ok := c.byKind[op.EntityKind]
		if !ok {
			// Orphan from a removed entity kind; drop it.
			c.log.Warn().Str("kind", string(op.EntityKind)).Msg("dropping sync op for unknown kind")
			if err := c.outbox.Ack(ctx, tx, op.ID); err != nil {
				return err, terminalErr
			}
			continue
		}

		err := ent.Push(ctx, tx, op, c.clock())
		if err == nil {
			if err := c.outbox.Ack(ctx, tx, op.ID); err != nil {
				return err, terminalErr
			}
			pushed++
			continue
		}

		if apperrors.AbortsPass(err) {
			// Not nacked: the failure says nothing about this record,
			// it keeps its retry budget for when connectivity returns.
			return err, terminalErr
		}

		count, nackErr := c.outbox.Nack(ctx, tx, op.ID, now, err.Error())
		if nackErr != nil {
			return nackErr, terminalErr
		}
		c.log.Warn().
			Str("kind", string(op.EntityKind)).
			Str("entity", op.EntityID.String()).
			Int("retry_count", count).
			Err(err).
			Msg("sync op failed")

		if c.outbox.Retry().Exhausted(count) {
			if err := c.outbox.MarkDead(ctx, tx, op.ID); err != nil {
				return err, terminalErr
			}
			c.log.Error().
				Str("kind", string(op.EntityKind)).
				Str("entity", op.EntityID.String()).
				Msg("sync op exhausted retries, parked")
			terminalErr = apperrors.Wrap(apperrors.ErrRetriesExhausted,
				fmt.Sprintf("%s %s gave up after %d attempts", op.EntityKind, op.EntityID, count), err)
		}
	}

	if pushed > 0 {
		c.log.Info().Int("pushed", pushed).Msg("pushed pending changes")
	}
	return nil, terminalErr
}

func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncing {
		return false
	}
	c.syncing = true
	return true
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.syncing = false
	c.mu.Unlock()
}

func (c *Coordinator) recordErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// loadWatermark reads the pull watermark, hitting the database only
// once; afterwards the in-memory copy is authoritative.
func (c *Coordinator) loadWatermark(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wmLoaded {
		return c.watermark, nil
	}

	wm, err := db.GetMetaTime(ctx, c.store.Handle(), db.MetaLastSyncAt)
	if err != nil {
		return time.Time{}, err
	}
	c.watermark = wm
	c.wmLoaded = true
	return wm, nil
}

func (c *Coordinator) storeWatermark(t time.Time) {
	c.mu.Lock()
	c.watermark = t
	c.wmLoaded = true
	c.mu.Unlock()
}
