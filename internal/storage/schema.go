package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to the metadata table on creation.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for the history database.
// Uses a transaction so schema creation succeeds or fails as a whole.
// Safe to call on an existing database.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"snapshots", createSnapshotsTable},
		{"snapshot_items", createSnapshotItemsTable},
		{"capabilities", createCapabilitiesTable},
		{"metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
		INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,       -- Publication order
    snapshot_id TEXT NOT NULL UNIQUE,            -- UUID
    item_count INTEGER NOT NULL DEFAULT 0,
    prompt TEXT NOT NULL,                        -- Rendered prompt at publication time
    created_at TEXT NOT NULL                     -- ISO 8601
)
`

const createSnapshotItemsTable = `
CREATE TABLE IF NOT EXISTS snapshot_items (
    snapshot_seq INTEGER NOT NULL,
    position INTEGER NOT NULL,                   -- Index in the relevance-sorted list
    item_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    relevance REAL NOT NULL,
    PRIMARY KEY (snapshot_seq, position),
    FOREIGN KEY (snapshot_seq) REFERENCES snapshots(seq) ON DELETE CASCADE
)
`

const createCapabilitiesTable = `
CREATE TABLE IF NOT EXISTS capabilities (
    name TEXT PRIMARY KEY,
    status TEXT NOT NULL,                        -- queued
    request_count INTEGER NOT NULL DEFAULT 1,
    requested_at TEXT NOT NULL,                  -- ISO 8601, first request
    updated_at TEXT NOT NULL                     -- ISO 8601, latest request
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`
