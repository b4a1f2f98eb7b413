package graph

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/umbra/internal/parsers"
	"github.com/mvp-joe/umbra/internal/scanner"
)

// ProgressReporter reports progress during graph building.
type ProgressReporter interface {
	OnGraphBuildingStart(totalFiles int)
	OnGraphFileProcessed(processedFiles, totalFiles int, fileName string)
	OnGraphBuildingComplete(nodeCount, edgeCount int, duration time.Duration)
}

// SourceScanner discovers the files to analyze.
type SourceScanner interface {
	Scan(ctx context.Context, root string) (*scanner.Result, error)
}

// FileParser extracts facts from one file. It must not fail the build:
// problems are reported through the result status.
type FileParser interface {
	ParseFile(ctx context.Context, relPath, absPath string) parsers.FileResult
}

// Builder populates a Graph from a source tree.
type Builder struct {
	scanner  SourceScanner
	parser   FileParser
	workers  int
	progress ProgressReporter
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) BuilderOption {
	return func(b *Builder) {
		b.progress = progress
	}
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewBuilder creates a new graph builder.
func NewBuilder(s SourceScanner, p FileParser, opts ...BuilderOption) *Builder {
	b := &Builder{
		scanner: s,
		parser:  p,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Populate clears g and rebuilds it from root: file nodes in scan order, each
// followed by its functions then classes with contains edges, then one calls
// edge per (caller, matching symbol) resolved against the complete node set.
// A missing root leaves g empty and sets RootMissing.
func (b *Builder) Populate(ctx context.Context, g *Graph, root string) (*BuildStats, error) {
	startTime := time.Now()
	g.Clear()

	scan, err := b.scanner.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	stats := &BuildStats{
		Root:        root,
		RootMissing: scan.RootMissing,
		Truncated:   scan.Truncated,
	}
	if scan.RootMissing {
		log.Printf("Warning: analysis root %s does not exist", root)
		stats.Duration = time.Since(startTime)
		return stats, nil
	}
	if scan.Truncated {
		log.Printf("Warning: file limit reached, analyzing first %d files", len(scan.Files))
	}

	if b.progress != nil {
		b.progress.OnGraphBuildingStart(len(scan.Files))
	}

	results, err := b.parseAll(ctx, scan.Files)
	if err != nil {
		return nil, err
	}

	for i, file := range scan.Files {
		b.insertFile(g, file, results[i], stats)
	}
	b.resolveCalls(g, scan.Files, results, stats)

	stats.Files = len(scan.Files)
	stats.Duration = time.Since(startTime)

	if b.progress != nil {
		b.progress.OnGraphBuildingComplete(g.NodeCount(), g.EdgeCount(), stats.Duration)
	}
	return stats, nil
}

// parseAll parses files on a bounded worker pool. Results are indexed by scan
// position so insertion order does not depend on scheduling.
func (b *Builder) parseAll(ctx context.Context, files []scanner.SourceFile) ([]parsers.FileResult, error) {
	results := make([]parsers.FileResult, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)

	var mu sync.Mutex
	processed := 0

	for i, file := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = b.parser.ParseFile(egCtx, file.RelPath, file.AbsPath)

			if b.progress != nil {
				mu.Lock()
				processed++
				b.progress.OnGraphFileProcessed(processed, len(files), filepath.Base(file.RelPath))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Builder) insertFile(g *Graph, file scanner.SourceFile, result parsers.FileResult, stats *BuildStats) {
	fileID := file.RelPath
	g.AddNode(Node{
		ID:    fileID,
		Kind:  NodeFile,
		Label: filepath.Base(fileID),
	})

	switch result.Status {
	case parsers.StatusSyntaxError:
		stats.SyntaxErrors++
		log.Printf("Warning: %s: %v\n", fileID, result.Err)
	case parsers.StatusFailed:
		stats.FailedFiles++
		log.Printf("Warning: failed to parse %s: %v\n", fileID, result.Err)
	}

	facts := result.Facts
	if facts == nil {
		return
	}

	for _, fn := range facts.Functions {
		id := SymbolID(fileID, fn.Name)
		g.AddNode(Node{
			ID:       id,
			Kind:     NodeFunction,
			Label:    fn.Name,
			ParentID: fileID,
			Scope:    fn.Scope,
			Args:     fn.Args(),
			Returns:  fn.Returns,
			Line:     fn.Line,
		})
		g.AddEdge(Edge{Source: fileID, Target: id, Type: EdgeContains})
		stats.Symbols++
	}

	for _, cls := range facts.Classes {
		id := SymbolID(fileID, cls.Name)
		g.AddNode(Node{
			ID:       id,
			Kind:     NodeClass,
			Label:    cls.Name,
			ParentID: fileID,
			Scope:    cls.Scope,
			Args:     []string{},
			Line:     cls.Line,
		})
		g.AddEdge(Edge{Source: fileID, Target: id, Type: EdgeContains})
		stats.Symbols++
	}
}

// resolveCalls runs after every node exists, so resolution does not depend on
// file order. Unmatched targets are dropped and counted.
func (b *Builder) resolveCalls(g *Graph, files []scanner.SourceFile, results []parsers.FileResult, stats *BuildStats) {
	resolver := NewResolver(g)

	for i, file := range files {
		facts := results[i].Facts
		if facts == nil {
			continue
		}
		for _, call := range facts.Calls {
			stats.Calls++
			caller := file.RelPath
			if call.Scope != parsers.GlobalScope {
				caller = SymbolID(file.RelPath, call.Scope)
			}

			targets := resolver.Resolve(call.Target)
			if len(targets) == 0 {
				stats.UnresolvedCalls++
				continue
			}
			for _, target := range targets {
				if g.AddEdge(Edge{Source: caller, Target: target, Type: EdgeCalls}) {
					stats.ResolvedEdges++
				}
			}
		}
	}
}
