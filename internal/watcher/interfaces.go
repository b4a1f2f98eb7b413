package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing.
type FileWatcher interface {
	// Start begins watching the root, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error
}

// Analyzer rebuilds the graph after source files changed.
type Analyzer interface {
	Reanalyze(ctx context.Context, changed []string) error
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, changed []string) error

// Reanalyze calls f.
func (f AnalyzerFunc) Reanalyze(ctx context.Context, changed []string) error {
	return f(ctx, changed)
}
