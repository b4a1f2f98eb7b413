package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/umbra/internal/graph"
)

// ErrNoSnapshot is returned when the database holds no snapshot.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Reader loads snapshots written by Writer.
type Reader struct {
	db *sql.DB
}

// NewReader creates a Reader using an existing database connection.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// ReadSnapshot loads the stored snapshot with nodes and edges in export order.
func (r *Reader) ReadSnapshot() (*graph.Snapshot, error) {
	meta, err := r.ReadMetadata()
	if err != nil {
		return nil, err
	}
	view, err := r.ReadView()
	if err != nil {
		return nil, err
	}
	return &graph.Snapshot{Metadata: *meta, View: *view}, nil
}

// ReadMetadata loads the snapshot metadata row.
func (r *Reader) ReadMetadata() (*graph.Metadata, error) {
	meta := &graph.Metadata{}
	var generatedAt string
	err := sq.Select("snapshot_id", "version", "root", "generated_at", "node_count", "edge_count").
		From("snapshot").
		Limit(1).
		RunWith(r.db).
		QueryRow().
		Scan(&meta.SnapshotID, &meta.Version, &meta.Root, &generatedAt, &meta.NodeCount, &meta.EdgeCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	meta.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot timestamp %q: %w", generatedAt, err)
	}
	return meta, nil
}

// ReadView loads all nodes and edges.
func (r *Reader) ReadView() (*graph.View, error) {
	nodes, err := r.ReadNodes()
	if err != nil {
		return nil, err
	}
	edges, err := r.ReadEdges()
	if err != nil {
		return nil, err
	}
	return &graph.View{Nodes: nodes, Edges: edges}, nil
}

// ReadNodes loads all nodes in export order.
func (r *Reader) ReadNodes() ([]graph.NodeView, error) {
	rows, err := sq.Select("node_id", "kind", "label", "parent_id", "args", "returns", "line").
		From("nodes").
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []graph.NodeView{}
	for rows.Next() {
		var n graph.NodeView
		var kind, args string
		var parent sql.NullString
		if err := rows.Scan(&n.ID, &kind, &n.Label, &parent, &args, &n.Returns, &n.Line); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Kind = graph.NodeKind(kind)
		n.ParentID = parent.String
		if err := json.Unmarshal([]byte(args), &n.Args); err != nil {
			return nil, fmt.Errorf("failed to decode args of %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

// ReadEdges loads all edges in export order.
func (r *Reader) ReadEdges() ([]graph.EdgeView, error) {
	rows, err := sq.Select("edge_id", "source_id", "target_id", "label").
		From("edges").
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	edges := []graph.EdgeView{}
	for rows.Next() {
		var e graph.EdgeView
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Label); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return edges, nil
}
