package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current layout of the snapshot database.
const SchemaVersion = "1.0"

// CreateSchema creates all tables and indexes for the snapshot database.
// Uses a transaction so schema creation succeeds or fails as a whole.
// Safe to call on a database that already has the schema.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"snapshot", createSnapshotTable},
		{"nodes", createNodesTable},
		{"edges", createEdgesTable},
		{"umbra_metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(
		"INSERT OR IGNORE INTO umbra_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from umbra_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='umbra_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check umbra_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM umbra_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in umbra_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS snapshot (
    snapshot_id TEXT PRIMARY KEY,                -- UUID stamped by the analysis
    version TEXT NOT NULL,                       -- Graph format version
    root TEXT NOT NULL,                          -- Analyzed root directory
    generated_at TEXT NOT NULL,                  -- RFC 3339
    node_count INTEGER NOT NULL,
    edge_count INTEGER NOT NULL
)
`

const createNodesTable = `
CREATE TABLE IF NOT EXISTS nodes (
    node_id TEXT PRIMARY KEY,                    -- relPath or relPath::name
    kind TEXT NOT NULL,                          -- file, function, class
    label TEXT NOT NULL,
    parent_id TEXT,                              -- NULL for files
    args TEXT NOT NULL,                          -- JSON array of "name (type)"
    returns TEXT NOT NULL,
    line INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL                    -- Export order
)
`

const createEdgesTable = `
CREATE TABLE IF NOT EXISTS edges (
    position INTEGER PRIMARY KEY,                -- Export order
    edge_id TEXT NOT NULL,                       -- source-target
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    label TEXT NOT NULL,
    FOREIGN KEY (source_id) REFERENCES nodes(node_id) ON DELETE CASCADE,
    FOREIGN KEY (target_id) REFERENCES nodes(node_id) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS umbra_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind)",
		"CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label)",
		"CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)",
		"CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)",
	}
}
