package watcher

import (
	"context"
	"log"
)

// WatchCoordinator routes debounced file changes to a full re-analysis.
type WatchCoordinator struct {
	files    FileWatcher
	analyzer Analyzer
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, analyzer Analyzer) *WatchCoordinator {
	return &WatchCoordinator{
		files:    files,
		analyzer: analyzer,
	}
}

// Start watches until ctx is cancelled, then stops the file watcher.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	if err := c.files.Start(ctx, func(files []string) { c.handleFileChange(ctx, files) }); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange re-runs the analysis. Failures are logged; watching continues.
func (c *WatchCoordinator) handleFileChange(ctx context.Context, files []string) {
	if len(files) == 0 {
		return
	}

	log.Printf("Processing %d file change(s)...", len(files))

	if err := c.analyzer.Reanalyze(ctx, files); err != nil {
		log.Printf("Error: analysis failed: %v", err)
		return
	}
}
