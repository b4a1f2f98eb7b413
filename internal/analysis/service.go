// Package analysis wires scanning, parsing and graph building into the
// service used by the CLI, HTTP and MCP surfaces.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mvp-joe/umbra/internal/config"
	"github.com/mvp-joe/umbra/internal/graph"
	"github.com/mvp-joe/umbra/internal/parsers"
	"github.com/mvp-joe/umbra/internal/scanner"
	"github.com/mvp-joe/umbra/internal/storage"
)

// ErrNotFound is returned by ReadSourceFile for paths that are absent, are
// directories, or resolve outside the analyzed root.
var ErrNotFound = errors.New("file not found")

// Service owns the process-wide graph store and answers analysis, file and
// graph queries against one codebase root.
type Service struct {
	cfg     *config.Config
	store   *graph.Store
	metrics *Metrics
	reg     *prometheus.Registry

	// analyzeMu spans the store rebuild and the searcher swap so both
	// always describe the same run.
	analyzeMu sync.Mutex

	mu       sync.RWMutex
	root     string
	searcher *graph.Searcher
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	progress graph.ProgressReporter
}

// WithProgress reports graph building progress.
func WithProgress(progress graph.ProgressReporter) Option {
	return func(o *serviceOptions) {
		o.progress = progress
	}
}

// NewService creates a service that analyzes root by default.
func NewService(cfg *config.Config, root string, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}

	sc, err := scanner.New(cfg.ScannerOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	parser := parsers.NewPythonParser(cfg.ParserOptions()...)

	builderOpts := cfg.BuilderOptions()
	if o.progress != nil {
		builderOpts = append(builderOpts, graph.WithProgress(o.progress))
	}

	reg := prometheus.NewRegistry()
	return &Service{
		cfg:     cfg,
		store:   graph.NewStore(graph.NewBuilder(sc, parser, builderOpts...)),
		metrics: NewMetrics(reg),
		reg:     reg,
		root:    root,
	}, nil
}

// Root returns the codebase root files are read from.
func (s *Service) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Analyze clears and rebuilds the graph from rootPath and returns its view.
// A missing root yields an empty view and no error.
func (s *Service) Analyze(ctx context.Context, rootPath string) (*graph.View, error) {
	snap, _, err := s.AnalyzeSnapshot(ctx, rootPath)
	if err != nil {
		return nil, err
	}
	return &snap.View, nil
}

// AnalyzeSnapshot is Analyze returning the stamped snapshot and build stats.
func (s *Service) AnalyzeSnapshot(ctx context.Context, rootPath string) (*graph.Snapshot, *graph.BuildStats, error) {
	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	start := time.Now()
	snap, stats, err := s.store.Analyze(ctx, rootPath)
	if err != nil {
		s.metrics.RecordAnalysis(time.Since(start), nil, nil, err)
		s.resetSearcher(rootPath, nil)
		return nil, nil, fmt.Errorf("analysis of %s failed: %w", rootPath, err)
	}
	s.metrics.RecordAnalysis(time.Since(start), stats, &snap.Metadata, nil)

	if stats.RootMissing {
		log.Printf("Warning: root %s does not exist, graph is empty", rootPath)
	}

	searcher, err := graph.NewSearcher(&snap.View, s)
	if err != nil {
		s.resetSearcher(rootPath, nil)
		return nil, nil, fmt.Errorf("failed to index graph: %w", err)
	}
	s.resetSearcher(rootPath, searcher)
	return snap, stats, nil
}

func (s *Service) resetSearcher(root string, searcher *graph.Searcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	s.searcher = searcher
}

// Snapshot returns the current graph without rebuilding it.
func (s *Service) Snapshot() *graph.Snapshot {
	return s.store.Snapshot()
}

// Query runs a call-graph query against the most recent analysis.
func (s *Service) Query(ctx context.Context, req *graph.QueryRequest) (*graph.QueryResponse, error) {
	s.mu.RLock()
	searcher := s.searcher
	s.mu.RUnlock()

	if searcher == nil {
		var err error
		searcher, err = graph.NewSearcher(&s.store.Snapshot().View, s)
		if err != nil {
			return nil, fmt.Errorf("failed to index graph: %w", err)
		}
	}

	s.metrics.RecordQuery(req.Operation)
	return searcher.Query(ctx, req)
}

// ReadSourceFile returns the content of relPath under the service root.
// Paths that are absent, are directories, or escape the root (including
// through symlinks) return ErrNotFound.
func (s *Service) ReadSourceFile(relPath string) (string, error) {
	root, err := os.OpenRoot(s.Root())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return "", fmt.Errorf("failed to open root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(relPath))
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return "", fmt.Errorf("failed to open %s: %w", relPath, err)
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", relPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", relPath, parsers.ErrInvalidEncoding)
	}
	return string(data), nil
}

// Export writes snap to the configured JSON graph directory and, when set,
// the SQLite database. Relative paths resolve against the snapshot root.
func (s *Service) Export(snap *graph.Snapshot) error {
	graphDir := s.resolve(snap.Metadata.Root, s.cfg.Export.GraphDir)
	st, err := graph.NewStorage(graphDir)
	if err != nil {
		return err
	}
	if err := st.Save(snap); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	if s.cfg.Export.SQLitePath == "" {
		return nil
	}
	dbPath := s.resolve(snap.Metadata.Root, s.cfg.Export.SQLitePath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	w, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.WriteSnapshot(snap)
}

func (s *Service) resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

// Metrics returns a snapshot of analysis metrics.
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.GetMetrics()
}

// Gatherer exposes the service's Prometheus collectors.
func (s *Service) Gatherer() prometheus.Gatherer {
	return s.reg
}
