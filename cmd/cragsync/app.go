package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stevoh213/cragbook/internal/config"
	"github.com/stevoh213/cragbook/internal/db"
	"github.com/stevoh213/cragbook/internal/keystore"
	"github.com/stevoh213/cragbook/internal/logging"
	"github.com/stevoh213/cragbook/internal/remote"
	syncpkg "github.com/stevoh213/cragbook/internal/sync"
)

// app holds the wired engine for one CLI invocation.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	db     *db.DB
	store  *db.Store
	client *remote.Client
	coord  *syncpkg.Coordinator
	owner  uuid.UUID
}

// newApp wires the engine from the environment. The owner id comes out
// of the bearer token, the same id the backend scopes every row by.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: cfg.LogConsole})

	// A token passed through the environment is remembered for later
	// invocations; without one, fall back to the stored copy.
	tokens := keystore.New(cfg.DataDir, cfg.APIKey)
	if cfg.Token == "" {
		stored, err := tokens.LoadToken()
		if err != nil {
			return nil, err
		}
		cfg.Token = stored
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("CRAGBOOK_TOKEN is required to sync")
	}

	owner, err := remote.OwnerFromToken(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("cannot determine owner: %w", err)
	}

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	store := db.NewStore(database)

	if err := tokens.SaveToken(cfg.Token); err != nil {
		log.Warn().Err(err).Msg("failed to persist token")
	}

	client := remote.NewClient(remote.Config{
		BaseURL: cfg.APIURL,
		APIKey:  cfg.APIKey,
		Token:   cfg.Token,
		Logger:  log,
	})

	// Parents before children, so pulled foreign keys resolve.
	entities := []syncpkg.Syncer{
		syncpkg.Bind(db.Profiles, remote.NewProfileAdapter(client)),
		syncpkg.Bind(db.Sessions, remote.NewSessionAdapter(client)),
		syncpkg.Bind(db.Climbs, remote.NewClimbAdapter(client)),
		syncpkg.Bind(db.Attempts, remote.NewAttemptAdapter(client)),
		syncpkg.Bind(db.TagImpacts, remote.NewTagImpactAdapter(client)),
		syncpkg.Bind(db.Follows, remote.NewFollowAdapter(client)),
	}

	coord := syncpkg.NewCoordinator(syncpkg.Config{
		Store:    store,
		Entities: entities,
		Outbox:   syncpkg.NewOutbox(syncpkg.DefaultRetryScheduler()),
		Logger:   log,
	})

	return &app{
		cfg:    cfg,
		log:    log,
		db:     database,
		store:  store,
		client: client,
		coord:  coord,
		owner:  owner,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error().Err(err).Msg("failed to close database")
	}
}
