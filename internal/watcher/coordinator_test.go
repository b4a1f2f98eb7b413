package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for WatchCoordinator:
// - File changes trigger a re-analysis with the changed files
// - Empty change lists are ignored
// - Analysis errors are logged and do not stop watching
// - Start error is returned and the watcher is stopped
// - Context cancellation stops the watcher and returns ctx.Err()

type mockFileWatcher struct {
	mu       sync.Mutex
	callback func(files []string)
	startErr error
	started  chan struct{}
	stopped  bool
}

func newMockFileWatcher() *mockFileWatcher {
	return &mockFileWatcher{started: make(chan struct{})}
}

func (m *mockFileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.callback = callback
	m.mu.Unlock()
	close(m.started)
	return nil
}

func (m *mockFileWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockFileWatcher) fire(files []string) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	cb(files)
}

func (m *mockFileWatcher) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type recordingAnalyzer struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingAnalyzer) Reanalyze(ctx context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return r.err
}

func (r *recordingAnalyzer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func startCoordinator(t *testing.T, files *mockFileWatcher, analyzer Analyzer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewWatchCoordinator(files, analyzer).Start(ctx)
	}()

	select {
	case <-files.started:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher not started")
	}
	return cancel, errCh
}

func TestWatchCoordinator_FileChangeTriggersAnalysis(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	analyzer := &recordingAnalyzer{}
	cancel, errCh := startCoordinator(t, files, analyzer)
	defer cancel()

	files.fire([]string{"/src/a.py"})
	files.fire(nil)

	require.Equal(t, 1, analyzer.callCount())
	assert.Equal(t, []string{"/src/a.py"}, analyzer.calls[0])

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.True(t, files.isStopped())
}

func TestWatchCoordinator_AnalysisErrorDoesNotStop(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	analyzer := &recordingAnalyzer{err: errors.New("boom")}
	cancel, errCh := startCoordinator(t, files, analyzer)

	files.fire([]string{"a.py"})
	files.fire([]string{"b.py"})
	assert.Equal(t, 2, analyzer.callCount())

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestWatchCoordinator_StartError(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	files.startErr = errors.New("no watcher")

	err := NewWatchCoordinator(files, AnalyzerFunc(func(context.Context, []string) error { return nil })).Start(context.Background())
	assert.EqualError(t, err, "no watcher")
	assert.True(t, files.isStopped())
}
