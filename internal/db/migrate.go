// Package db provides database schema migration management.
package db

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration represents an applied database schema migration.
type Migration struct {
	Version     int
	AppliedAt   time.Time
	Description string
	Checksum    string
}

// Migrator applies the embedded schema migrations in version order.
// Migration sources are named NNNN_description.sql; an applied
// migration's checksum must never change.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Migrate brings the schema up to the latest embedded version.
func Migrate(db *DB) error {
	m := NewMigrator(db.DB)
	if err := m.Initialize(); err != nil {
		return err
	}
	return m.Up()
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum TEXT NOT NULL CHECK(length(checksum) = 64)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Up applies every pending migration in version order. Each migration
// runs in its own transaction; a failure leaves earlier migrations
// applied.
func (m *Migrator) Up() error {
	current, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	sources, err := loadSources()
	if err != nil {
		return err
	}

	for _, src := range sources {
		if src.version <= current {
			if err := m.verifyChecksum(src); err != nil {
				return err
			}
			continue
		}
		if err := m.apply(src); err != nil {
			return fmt.Errorf("migration %04d failed: %w", src.version, err)
		}
	}
	return nil
}

type source struct {
	version     int
	description string
	sql         string
	checksum    string
}

func loadSources() ([]source, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var sources []source
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		// NNNN_description.sql
		base := strings.TrimSuffix(name, ".sql")
		idx := strings.Index(base, "_")
		if idx < 1 {
			return nil, fmt.Errorf("malformed migration name: %s", name)
		}
		version, err := strconv.Atoi(base[:idx])
		if err != nil {
			return nil, fmt.Errorf("malformed migration version in %s: %w", name, err)
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		sum := sha256.Sum256(data)
		sources = append(sources, source{
			version:     version,
			description: base[idx+1:],
			sql:         string(data),
			checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].version < sources[j].version })
	return sources, nil
}

func (m *Migrator) apply(src source) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(src.sql); err != nil {
		return err
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
		src.version, time.Now().Unix(), src.description, src.checksum,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// verifyChecksum guards against edited migration sources: an applied
// version must match the embedded file byte for byte.
func (m *Migrator) verifyChecksum(src source) error {
	var applied string
	err := m.db.QueryRow("SELECT checksum FROM schema_migrations WHERE version = ?", src.version).Scan(&applied)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if applied != src.checksum {
		return fmt.Errorf("migration %04d checksum mismatch: applied %s, embedded %s", src.version, applied, src.checksum)
	}
	return nil
}
