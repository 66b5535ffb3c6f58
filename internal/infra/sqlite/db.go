// Package sqlite provides SQLite-based persistent storage for the
// governance engine. Uses WAL mode for concurrent reads and crash-safe
// writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations. It implements
// domain.Store: entity rows carry indexed key columns plus a JSON document
// with the full value, so nested structures (ballot choices, escalation
// chains, deputy lists) round-trip without a table per nesting level.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/governance.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "governance.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id         TEXT PRIMARY KEY,
			society_id TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			data       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_society ON campaigns(society_id)`,

		// One ballot per (campaign, voter token): the primary key is the
		// duplicate-vote backstop beneath the in-memory check.
		`CREATE TABLE IF NOT EXISTS ballots (
			campaign_id TEXT NOT NULL,
			voter_token TEXT NOT NULL,
			choice_id   TEXT NOT NULL,
			cast_at     INTEGER NOT NULL,
			PRIMARY KEY (campaign_id, voter_token)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ballots_campaign ON ballots(campaign_id)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id          TEXT PRIMARY KEY,
			society_id  TEXT NOT NULL,
			status      TEXT NOT NULL,
			declared_at INTEGER NOT NULL,
			data        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status)`,

		`CREATE TABLE IF NOT EXISTS succession_plans (
			id         TEXT PRIMARY KEY,
			society_id TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			data       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_society ON succession_plans(society_id)`,

		`CREATE TABLE IF NOT EXISTS policy_proposals (
			id         TEXT PRIMARY KEY,
			society_id TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			data       TEXT NOT NULL
		)`,

		// Append-only. (ts, sequence) keeps ordering stable when two
		// entries share a timestamp.
		`CREATE TABLE IF NOT EXISTS audit_entries (
			ts            INTEGER NOT NULL,
			sequence      INTEGER NOT NULL,
			actor_id      TEXT NOT NULL,
			action        TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id   TEXT NOT NULL,
			details       TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (ts, sequence)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_entries(resource_type, resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor_id)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
