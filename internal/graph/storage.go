package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// GraphFileName is the name of the graph snapshot file
	GraphFileName = "code-graph.json"
	// GraphVersion is the current version of the snapshot format
	GraphVersion = "1.0"
)

// Storage handles reading and writing graph snapshots to disk.
type Storage interface {
	// Load loads the snapshot from disk. Returns nil if file doesn't exist.
	Load() (*Snapshot, error)

	// Save saves the snapshot to disk using atomic write pattern.
	Save(snapshot *Snapshot) error

	// Exists checks if the snapshot file exists.
	Exists() bool
}

// storage implements Storage with atomic write support.
type storage struct {
	graphDir string // Directory containing the snapshot file (.umbra/ by default)
}

// NewStorage creates a new graph storage instance.
func NewStorage(graphDir string) (Storage, error) {
	if err := os.MkdirAll(graphDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}

	// Temp directory for atomic writes
	tempDir := filepath.Join(graphDir, ".tmp")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &storage{graphDir: graphDir}, nil
}

// Load loads the snapshot from disk.
func (s *storage) Load() (*Snapshot, error) {
	filePath := s.graphFilePath()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil // Not an error, just no snapshot yet
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse graph JSON: %w", err)
	}
	if snapshot.Metadata.Version != "" && snapshot.Metadata.Version != GraphVersion {
		return nil, fmt.Errorf("unsupported graph version %q (want %s)", snapshot.Metadata.Version, GraphVersion)
	}

	return &snapshot, nil
}

// Save saves the snapshot to disk using atomic write pattern.
func (s *storage) Save(snapshot *Snapshot) error {
	snapshot.Metadata.Version = GraphVersion
	snapshot.Metadata.NodeCount = len(snapshot.Nodes)
	snapshot.Metadata.EdgeCount = len(snapshot.Edges)

	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph snapshot: %w", err)
	}

	tempPath := filepath.Join(s.graphDir, ".tmp", GraphFileName)
	if err := os.WriteFile(tempPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp graph file: %w", err)
	}

	// Atomic rename (POSIX guarantees atomicity)
	if err := os.Rename(tempPath, s.graphFilePath()); err != nil {
		return fmt.Errorf("failed to rename temp graph file: %w", err)
	}

	return nil
}

// Exists checks if the snapshot file exists.
func (s *storage) Exists() bool {
	_, err := os.Stat(s.graphFilePath())
	return err == nil
}

// graphFilePath returns the full path to the snapshot file.
func (s *storage) graphFilePath() string {
	return filepath.Join(s.graphDir, GraphFileName)
}
