package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/umbra/internal/graph"
)

// Writer writes analysis snapshots to SQLite.
type Writer struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
}

// OpenDB opens the SQLite database at path with foreign keys enabled and the
// schema created.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open creates a Writer that owns a connection to the database at path.
func Open(path string) (*Writer, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return &Writer{db: db, ownsDB: true}, nil
}

// NewWriter creates a Writer using an existing database connection.
// The caller is responsible for the database lifecycle (schema, close).
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db, ownsDB: false}
}

// Close closes the database connection if owned by this writer.
func (w *Writer) Close() error {
	if !w.ownsDB {
		return nil
	}
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// WriteSnapshot replaces the stored snapshot with snap in a single transaction.
// Edges whose endpoints are not nodes of snap are skipped.
func (w *Writer) WriteSnapshot(snap *graph.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Reverse dependency order
	for _, table := range []string{"edges", "nodes", "snapshot"} {
		if _, err := sq.Delete(table).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to clear existing data (%s): %w", table, err)
		}
	}

	meta := snap.Metadata
	_, err = sq.Insert("snapshot").
		Columns("snapshot_id", "version", "root", "generated_at", "node_count", "edge_count").
		Values(meta.SnapshotID, meta.Version, meta.Root, meta.GeneratedAt.UTC().Format(time.RFC3339Nano), meta.NodeCount, meta.EdgeCount).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	valid, err := writeNodes(tx, snap.Nodes)
	if err != nil {
		return fmt.Errorf("failed to write nodes: %w", err)
	}
	if err := writeEdges(tx, snap.Edges, valid); err != nil {
		return fmt.Errorf("failed to write edges: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writeNodes(tx *sql.Tx, nodes []graph.NodeView) (map[string]bool, error) {
	valid := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		args := n.Args
		if args == nil {
			args = []string{}
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode args of %s: %w", n.ID, err)
		}

		var parent interface{}
		if n.ParentID != "" {
			parent = n.ParentID
		}

		_, err = sq.Insert("nodes").
			Columns("node_id", "kind", "label", "parent_id", "args", "returns", "line", "position").
			Values(n.ID, string(n.Kind), n.Label, parent, string(encoded), n.Returns, n.Line, i).
			RunWith(tx).
			Exec()
		if err != nil {
			return nil, fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
		valid[n.ID] = true
	}
	return valid, nil
}

func writeEdges(tx *sql.Tx, edges []graph.EdgeView, valid map[string]bool) error {
	for i, e := range edges {
		if !valid[e.Source] || !valid[e.Target] {
			continue
		}
		_, err := sq.Insert("edges").
			Columns("position", "edge_id", "source_id", "target_id", "label").
			Values(i, e.ID, e.Source, e.Target, e.Label).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}
