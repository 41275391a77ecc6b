package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultSyncInterval = 5 * time.Minute
	syncPassTimeout     = 5 * time.Minute
)

// Scheduler runs periodic background syncs and exposes the trigger
// surface the app layer fires on lifecycle events. All triggers funnel
// into the coordinator, whose single-flight guard drops overlapping
// passes.
type Scheduler struct {
	coord    *Coordinator
	ownerID  uuid.UUID
	interval time.Duration
	log      zerolog.Logger

	stopCh chan struct{}
	wg     stdsync.WaitGroup

	mu      stdsync.RWMutex
	running bool
	online  bool
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Interval time.Duration // periodic sync cadence, default 5 minutes
	Logger   zerolog.Logger
}

// NewScheduler creates a Scheduler for one signed-in user. The
// scheduler assumes online until told otherwise.
func NewScheduler(coord *Coordinator, ownerID uuid.UUID, cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultSyncInterval
	}

	return &Scheduler{
		coord:    coord,
		ownerID:  ownerID,
		interval: interval,
		log:      cfg.Logger,
		stopCh:   make(chan struct{}),
		online:   true,
	}
}

// Start launches the periodic loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info().Dur("interval", s.interval).Msg("sync scheduler started")
}

// Stop halts the periodic loop and waits for it to exit. An in-flight
// pass is not interrupted; its context governs that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.log.Info().Msg("sync scheduler stopped")
}

// SetOnline records connectivity changes. Going offline suspends
// periodic passes; coming back online triggers one immediately, which
// is how queued offline edits drain without waiting out the interval.
func (s *Scheduler) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()

	if was == online {
		return
	}
	s.log.Info().Bool("online", online).Msg("connectivity changed")

	if online {
		s.TriggerSync(ctx)
	}
}

// OnForeground is the app-foreground lifecycle hook: sync immediately
// so the user sees fresh data, rather than waiting for the next tick.
func (s *Scheduler) OnForeground(ctx context.Context) {
	s.TriggerSync(ctx)
}

// TriggerSync starts a sync pass now unless offline or one is already
// in flight. Returns true when a pass was started.
func (s *Scheduler) TriggerSync(ctx context.Context) bool {
	if !s.IsOnline() {
		s.log.Debug().Msg("sync trigger ignored while offline")
		return false
	}
	if s.coord.InFlight() {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSync(ctx)
	}()
	return true
}

// SyncNow runs a pass synchronously, for the pull-to-refresh path that
// wants the result.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	passCtx, cancel := context.WithTimeout(ctx, syncPassTimeout)
	defer cancel()
	return s.coord.PerformSync(passCtx, s.ownerID)
}

// IsOnline reports the last known connectivity state.
func (s *Scheduler) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// IsRunning reports whether the periodic loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.IsOnline() {
				continue
			}
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, syncPassTimeout)
	defer cancel()

	if err := s.coord.PerformSync(passCtx, s.ownerID); err != nil {
		s.log.Error().Err(err).Msg("background sync failed")
	}
}
