// Package main provides the FFI bridge the mobile app embeds the sync
// engine through. Build as shared library: libcragbook.so (Android) /
// cragbook.framework (iOS); the host calls these exports over Dart FFI.
//
// Exported functions use C calling conventions: strings in, JSON
// strings out. Every returned *C.char must be released with FreeString.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"fmt"
	stdsync "sync"
	"time"
	"unsafe"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stevoh213/cragbook/internal/db"
	"github.com/stevoh213/cragbook/internal/logging"
	"github.com/stevoh213/cragbook/internal/models"
	"github.com/stevoh213/cragbook/internal/remote"
	syncpkg "github.com/stevoh213/cragbook/internal/sync"
)

// The bridge holds one engine instance for the process. The host app is
// single-user; re-initialization requires Cleanup first.
var (
	mu        stdsync.Mutex
	database  *db.DB
	store     *db.Store
	client    *remote.Client
	coord     *syncpkg.Coordinator
	tracker   *syncpkg.Tracker
	scheduler *syncpkg.Scheduler
	owner     uuid.UUID

	lastErr string
	lastMu  stdsync.RWMutex
)

const callTimeout = 30 * time.Second

//export Init
// Init wires the engine: opens the local database under dataDir, runs
// migrations, and prepares the remote client. Returns 1 on success,
// 0 on failure (see GetLastError).
func Init(dataDir, baseURL, apiKey, token *C.char) C.int {
	mu.Lock()
	defer mu.Unlock()

	if database != nil {
		setLastError("already initialized")
		return 0
	}

	tok := C.GoString(token)
	ownerID, err := remote.OwnerFromToken(tok)
	if err != nil {
		setLastError(fmt.Sprintf("cannot determine owner: %v", err))
		return 0
	}

	d, err := db.Open(C.GoString(dataDir))
	if err != nil {
		setLastError(fmt.Sprintf("failed to open database: %v", err))
		return 0
	}
	if err := db.Migrate(d); err != nil {
		d.Close()
		setLastError(fmt.Sprintf("failed to apply migrations: %v", err))
		return 0
	}

	log := logging.New(logging.Config{Level: "info"})
	s := db.NewStore(d)
	c := remote.NewClient(remote.Config{
		BaseURL: C.GoString(baseURL),
		APIKey:  C.GoString(apiKey),
		Token:   tok,
		Logger:  log,
	})

	outbox := syncpkg.NewOutbox(syncpkg.DefaultRetryScheduler())
	co := syncpkg.NewCoordinator(syncpkg.Config{
		Store: s,
		Entities: []syncpkg.Syncer{
			syncpkg.Bind(db.Profiles, remote.NewProfileAdapter(c)),
			syncpkg.Bind(db.Sessions, remote.NewSessionAdapter(c)),
			syncpkg.Bind(db.Climbs, remote.NewClimbAdapter(c)),
			syncpkg.Bind(db.Attempts, remote.NewAttemptAdapter(c)),
			syncpkg.Bind(db.TagImpacts, remote.NewTagImpactAdapter(c)),
			syncpkg.Bind(db.Follows, remote.NewFollowAdapter(c)),
		},
		Outbox: outbox,
		Logger: log,
	})

	database = d
	store = s
	client = c
	coord = co
	tracker = syncpkg.NewTracker(s, outbox, nil)
	scheduler = syncpkg.NewScheduler(co, ownerID, syncpkg.SchedulerConfig{Logger: log})
	owner = ownerID

	scheduler.Start(context.Background())
	return 1
}

//export Cleanup
// Cleanup stops background sync and closes the database.
func Cleanup() {
	mu.Lock()
	defer mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
		scheduler = nil
	}
	if database != nil {
		database.Close()
		database = nil
	}
	store, client, coord, tracker = nil, nil, nil, nil
}

//export SetToken
// SetToken replaces the bearer token after the host re-authenticates.
func SetToken(token *C.char) {
	mu.Lock()
	defer mu.Unlock()
	if client != nil {
		client.SetToken(C.GoString(token))
	}
}

//export TriggerSync
// TriggerSync starts a sync pass in the background. Returns 1 if a pass
// was started, 0 if one was already in flight or the engine is offline.
func TriggerSync() C.int {
	if scheduler == nil {
		setLastError("not initialized")
		return 0
	}
	if scheduler.TriggerSync(context.Background()) {
		return 1
	}
	return 0
}

//export SyncNow
// SyncNow runs a sync pass and blocks until it finishes. Returns 1 on
// success.
func SyncNow() C.int {
	if scheduler == nil {
		setLastError("not initialized")
		return 0
	}
	if err := scheduler.SyncNow(context.Background()); err != nil {
		setLastError(fmt.Sprintf("sync failed: %v", err))
		return 0
	}
	return 1
}

//export OnForeground
// OnForeground is the app-foreground lifecycle hook.
func OnForeground() {
	if scheduler != nil {
		scheduler.OnForeground(context.Background())
	}
}

//export SetOnline
// SetOnline reports connectivity changes from the host's reachability
// monitor. Coming back online triggers an immediate sync.
func SetOnline(online C.int) {
	if scheduler != nil {
		scheduler.SetOnline(context.Background(), online != 0)
	}
}

// syncStateDTO is the JSON shape GetSyncState returns to the host UI.
type syncStateDTO struct {
	LastSyncAt     string `json:"last_sync_at,omitempty"`
	Syncing        bool   `json:"syncing"`
	DirtyCount     int    `json:"dirty_count"`
	PendingChanges int    `json:"pending_changes"`
	FailedChanges  int    `json:"failed_changes"`
	LastError      string `json:"last_error,omitempty"`
}

//export GetSyncState
// GetSyncState returns sync health as JSON for the UI's sync indicator.
// Returns nil on failure.
func GetSyncState() *C.char {
	if coord == nil {
		setLastError("not initialized")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	state, err := coord.State(ctx, owner)
	if err != nil {
		setLastError(fmt.Sprintf("failed to read sync state: %v", err))
		return nil
	}

	dto := syncStateDTO{
		Syncing:        state.Syncing,
		DirtyCount:     state.DirtyCount,
		PendingChanges: state.PendingOps,
		FailedChanges:  state.DeadOps,
	}
	if !state.LastSyncAt.IsZero() {
		dto.LastSyncAt = state.LastSyncAt.UTC().Format(time.RFC3339Nano)
	}
	if state.LastError != nil {
		dto.LastError = state.LastError.Error()
	}
	return marshalC(dto)
}

//export RetryFailed
// RetryFailed revives changes that exhausted their retry budget and
// pushes them. Returns the number revived, -1 on failure.
func RetryFailed() C.int {
	if coord == nil {
		setLastError("not initialized")
		return -1
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	revived, err := coord.RequeueDead(ctx)
	if err != nil {
		setLastError(fmt.Sprintf("failed to requeue: %v", err))
		return -1
	}
	if revived > 0 {
		scheduler.TriggerSync(context.Background())
	}
	return C.int(revived)
}

// sessionPayload is the JSON shape the host passes for session writes.
type sessionPayload struct {
	ID        string `json:"id"`
	CragName  string `json:"crag_name"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	RPE       int    `json:"rpe"`
	Notes     string `json:"notes"`
}

//export SessionSave
// SessionSave creates or updates a session from JSON, marks it for
// sync, and returns the record id. Returns nil on failure.
func SessionSave(payload *C.char) *C.char {
	if tracker == nil {
		setLastError("not initialized")
		return nil
	}

	var p sessionPayload
	if err := json.Unmarshal([]byte(C.GoString(payload)), &p); err != nil {
		setLastError(fmt.Sprintf("malformed session payload: %v", err))
		return nil
	}

	session := &models.Session{
		SyncFields: models.SyncFields{OwnerID: owner},
		CragName:   p.CragName,
		RPE:        p.RPE,
		Notes:      p.Notes,
	}
	if p.ID != "" {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			setLastError(fmt.Sprintf("malformed session id: %v", err))
			return nil
		}
		session.ID = id
	} else {
		session.ID = uuid.New()
	}
	startedAt, err := time.Parse(time.RFC3339Nano, p.StartedAt)
	if err != nil {
		setLastError(fmt.Sprintf("malformed started_at: %v", err))
		return nil
	}
	session.StartedAt = startedAt
	if p.EndedAt != "" {
		endedAt, err := time.Parse(time.RFC3339Nano, p.EndedAt)
		if err != nil {
			setLastError(fmt.Sprintf("malformed ended_at: %v", err))
			return nil
		}
		session.EndedAt = &endedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := syncpkg.Save(ctx, tracker, db.Sessions, session); err != nil {
		setLastError(fmt.Sprintf("failed to save session: %v", err))
		return nil
	}
	return C.CString(session.ID.String())
}

//export SessionDelete
// SessionDelete soft-deletes a session and queues the delete for sync.
// Returns 1 on success.
func SessionDelete(id *C.char) C.int {
	if tracker == nil {
		setLastError("not initialized")
		return 0
	}

	sessionID, err := uuid.Parse(C.GoString(id))
	if err != nil {
		setLastError(fmt.Sprintf("malformed session id: %v", err))
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := syncpkg.Delete(ctx, tracker, db.Sessions, sessionID); err != nil {
		setLastError(fmt.Sprintf("failed to delete session: %v", err))
		return 0
	}
	return 1
}

// conflictDTO is the JSON shape ConflictsList returns per entry.
type conflictDTO struct {
	EntityKind      string `json:"entity_kind"`
	EntityID        string `json:"entity_id"`
	LocalUpdatedAt  string `json:"local_updated_at"`
	RemoteUpdatedAt string `json:"remote_updated_at"`
	Resolution      string `json:"resolution"`
	DetectedAt      string `json:"detected_at"`
}

//export ConflictsList
// ConflictsList returns recently resolved edit conflicts as JSON,
// newest first, for the sync-awareness view. Returns nil on failure.
func ConflictsList(limit C.int) *C.char {
	if store == nil {
		setLastError("not initialized")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	conflicts, err := db.ListConflicts(ctx, store.Handle(), int(limit))
	if err != nil {
		setLastError(fmt.Sprintf("failed to list conflicts: %v", err))
		return nil
	}

	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			EntityKind:      string(c.EntityKind),
			EntityID:        c.EntityID.String(),
			LocalUpdatedAt:  c.LocalUpdatedAt.UTC().Format(time.RFC3339Nano),
			RemoteUpdatedAt: c.RemoteUpdatedAt.UTC().Format(time.RFC3339Nano),
			Resolution:      c.Resolution,
			DetectedAt:      c.DetectedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return marshalC(out)
}

//export GetLastError
// GetLastError returns the last error message. The returned string must
// be freed by the caller.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()
	return C.CString(lastErr)
}

//export FreeString
// FreeString releases a string returned by any export.
func FreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func setLastError(msg string) {
	lastMu.Lock()
	lastErr = msg
	lastMu.Unlock()
}

func marshalC(v any) *C.char {
	data, err := json.Marshal(v)
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

func main() {
	// Required for c-shared build mode; never executed when loaded as a
	// shared library.
}
