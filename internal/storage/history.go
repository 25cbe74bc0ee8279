// Package storage persists published contexts and capability requests in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/workbench-context/internal/summary"
)

var (
	// ErrNoSnapshots is returned by Latest when nothing has been recorded.
	ErrNoSnapshots = errors.New("no snapshots recorded")

	// ErrSchemaMismatch is returned by Open when the database was written
	// with a different schema version.
	ErrSchemaMismatch = errors.New("unsupported history schema version")
)

// CapabilityQueued is the status recorded for a new capability request.
const CapabilityQueued = "queued"

// Snapshot is one published context.
type Snapshot struct {
	ID        string         `json:"id"`
	Items     []summary.Item `json:"items"`
	Prompt    string         `json:"prompt"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Capability is a ledger entry for an implement-capability request.
type Capability struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	RequestCount int       `json:"requestCount"`
	RequestedAt  time.Time `json:"requestedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// History is the SQLite-backed record of published contexts.
type History struct {
	db    *sql.DB
	limit int
}

// Open opens (or creates) the history database at path. limit bounds the
// number of snapshots kept; zero keeps everything. Use ":memory:" for an
// ephemeral database.
func Open(path string, limit int) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases and PRAGMAs consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: %s has version %s, want %s", ErrSchemaMismatch, path, version, SchemaVersion)
	}

	return &History{db: db, limit: limit}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores items with their rendered prompt and trims old snapshots.
// Returns the new snapshot ID.
func (h *History) Record(ctx context.Context, items []summary.Item, prompt string) (string, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (snapshot_id, item_count, prompt, created_at) VALUES (?, ?, ?, ?)`,
		id, len(items), prompt, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_items (snapshot_seq, position, item_id, kind, title, content, relevance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, seq, i, item.ID, string(item.Kind), item.Title, item.Content, item.Relevance); err != nil {
			return "", fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
	}

	if h.limit > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM snapshots WHERE seq NOT IN (
				SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?
			)
		`, h.limit); err != nil {
			return "", fmt.Errorf("failed to trim history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return id, nil
}

// Latest returns the most recently recorded snapshot.
func (h *History) Latest(ctx context.Context) (*Snapshot, error) {
	var (
		seq       int64
		snap      Snapshot
		createdAt string
	)
	err := h.db.QueryRowContext(ctx,
		`SELECT seq, snapshot_id, prompt, created_at FROM snapshots ORDER BY seq DESC LIMIT 1`,
	).Scan(&seq, &snap.ID, &snap.Prompt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshots
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT item_id, kind, title, content, relevance
		FROM snapshot_items WHERE snapshot_seq = ? ORDER BY position
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item summary.Item
		var kind string
		if err := rows.Scan(&item.ID, &kind, &item.Title, &item.Content, &item.Relevance); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot item: %w", err)
		}
		item.Kind = summary.Kind(kind)
		snap.Items = append(snap.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot items: %w", err)
	}

	return &snap, nil
}

// Count returns the number of retained snapshots.
func (h *History) Count(ctx context.Context) (int, error) {
	var n int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// RecordCapability adds a capability request to the ledger, or bumps the
// request count of an existing entry.
func (h *History) RecordCapability(ctx context.Context, name string) (*Capability, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO capabilities (name, status, request_count, requested_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			request_count = request_count + 1,
			updated_at = excluded.updated_at
	`, name, CapabilityQueued, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record capability: %w", err)
	}

	caps, err := h.queryCapabilities(ctx, `WHERE name = ?`, name)
	if err != nil {
		return nil, err
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("capability %s missing after insert", name)
	}
	return &caps[0], nil
}

// Capabilities lists the ledger, oldest request first.
func (h *History) Capabilities(ctx context.Context) ([]Capability, error) {
	return h.queryCapabilities(ctx, "")
}

func (h *History) queryCapabilities(ctx context.Context, where string, args ...any) ([]Capability, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT name, status, request_count, requested_at, updated_at
		FROM capabilities `+where+` ORDER BY requested_at, name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query capabilities: %w", err)
	}
	defer rows.Close()

	var caps []Capability
	for rows.Next() {
		var c Capability
		var requestedAt, updatedAt string
		if err := rows.Scan(&c.Name, &c.Status, &c.RequestCount, &requestedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		if c.RequestedAt, err = time.Parse(time.RFC3339Nano, requestedAt); err != nil {
			return nil, fmt.Errorf("failed to parse requested_at: %w", err)
		}
		if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}
