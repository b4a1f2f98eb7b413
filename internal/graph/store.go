package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the process-wide graph. Every analysis clears and rebuilds it;
// rebuild and export happen under one lock so readers never observe a
// half-built graph.
type Store struct {
	mu       sync.Mutex
	graph    *Graph
	builder  *Builder
	metadata Metadata
}

// NewStore creates an empty store that rebuilds with builder.
func NewStore(builder *Builder) *Store {
	return &Store{
		graph:   NewGraph(),
		builder: builder,
	}
}

// Analyze rebuilds the graph from root and returns the exported snapshot.
// On error the graph is left empty.
func (s *Store) Analyze(ctx context.Context, root string) (*Snapshot, *BuildStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.builder.Populate(ctx, s.graph, root)
	if err != nil {
		s.graph.Clear()
		s.metadata = Metadata{}
		return nil, nil, err
	}

	s.metadata = Metadata{
		Version:     GraphVersion,
		SnapshotID:  uuid.NewString(),
		Root:        root,
		GeneratedAt: time.Now(),
	}
	return s.snapshotLocked(), stats, nil
}

// Snapshot exports the current graph. Before any analysis it is empty.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *Snapshot {
	view := Export(s.graph)
	meta := s.metadata
	meta.NodeCount = len(view.Nodes)
	meta.EdgeCount = len(view.Edges)
	return &Snapshot{Metadata: meta, View: *view}
}
