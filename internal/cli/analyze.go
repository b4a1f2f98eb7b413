package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/graph"
	"github.com/mvp-joe/umbra/internal/watcher"
)

type analyzeOptions struct {
	quiet     bool
	watch     bool
	printJSON bool
	noExport  bool
	graphDir  string
	sqlite    string
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze [root]",
	Short: "Build the structural graph of a Python codebase",
	Long: `Analyze scans the codebase under root (default: the working directory),
parses every Python file and builds the module/class/function graph with
CONTAINS and CALLS edges.

The resulting snapshot is written to .umbra/code-graph.json under root, and
to a SQLite database when --sqlite or export.sqlite_path is set.

Examples:
  # Analyze the current directory
  umbra analyze

  # Analyze a project and print the graph as JSON
  umbra analyze ./myproject --json --no-export

  # Keep the graph up to date while editing
  umbra analyze --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVarP(&analyzeOpts.quiet, "quiet", "q", false, "Disable progress bars and non-error output")
	analyzeCmd.Flags().BoolVarP(&analyzeOpts.watch, "watch", "w", false, "Watch for file changes and re-analyze")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.printJSON, "json", false, "Print the graph view as JSON to stdout")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.noExport, "no-export", false, "Do not write the snapshot to disk")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.graphDir, "out", "o", "", "Directory for code-graph.json (overrides export.graph_dir)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.sqlite, "sqlite", "", "SQLite database to export to (overrides export.sqlite_path)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Stopping analysis...")
			cancel()
		case <-ctx.Done():
		}
	}()

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	return executeAnalyze(ctx, cmd.OutOrStdout(), root, analyzeOpts)
}

func executeAnalyze(ctx context.Context, out io.Writer, root string, opts analyzeOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if opts.graphDir != "" {
		cfg.Export.GraphDir = opts.graphDir
	}
	if opts.sqlite != "" {
		cfg.Export.SQLitePath = opts.sqlite
	}

	svc, err := analysis.NewService(cfg, root, analysis.WithProgress(NewCLIProgressReporter(opts.quiet)))
	if err != nil {
		return err
	}

	if err := analyzeOnce(ctx, out, svc, root, opts); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	fw, err := watcher.NewFileWatcher(root, watcher.Options{
		Extensions: cfg.Scan.Extensions,
		IgnoreDirs: cfg.Scan.IgnoreDirs,
		Debounce:   cfg.Watch.Debounce,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	coordinator := watcher.NewWatchCoordinator(fw, watcher.AnalyzerFunc(func(ctx context.Context, changed []string) error {
		infof(os.Stderr, opts.quiet, "Detected %d changed file(s), re-analyzing...\n", len(changed))
		return analyzeOnce(ctx, out, svc, root, opts)
	}))

	infof(os.Stderr, opts.quiet, "Watching %s for changes (Ctrl+C to stop)\n", root)
	if err := coordinator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// analyzeOnce runs one full rebuild, reports it and exports the snapshot.
func analyzeOnce(ctx context.Context, out io.Writer, svc *analysis.Service, root string, opts analyzeOptions) error {
	snap, stats, err := svc.AnalyzeSnapshot(ctx, root)
	if err != nil {
		return err
	}

	printStats(os.Stderr, opts.quiet, stats)

	if opts.printJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&snap.View); err != nil {
			return fmt.Errorf("failed to encode graph: %w", err)
		}
	}

	if opts.noExport || stats.RootMissing {
		return nil
	}
	if err := svc.Export(snap); err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if !opts.quiet {
		log.Printf("Snapshot %s exported", snap.Metadata.SnapshotID)
	}
	return nil
}

func printStats(w io.Writer, quiet bool, stats *graph.BuildStats) {
	if quiet || stats == nil {
		return
	}
	if stats.RootMissing {
		fmt.Fprintf(w, "Root %s does not exist; graph is empty\n", stats.Root)
		return
	}
	fmt.Fprintf(w, "  Files:            %s\n", formatNumber(stats.Files))
	fmt.Fprintf(w, "  Symbols:          %s\n", formatNumber(stats.Symbols))
	fmt.Fprintf(w, "  Calls:            %s (%s resolved to edges, %s unresolved)\n",
		formatNumber(stats.Calls), formatNumber(stats.ResolvedEdges), formatNumber(stats.UnresolvedCalls))
	if stats.SyntaxErrors > 0 || stats.FailedFiles > 0 {
		fmt.Fprintf(w, "  Syntax errors:    %d\n", stats.SyntaxErrors)
		fmt.Fprintf(w, "  Failed files:     %d\n", stats.FailedFiles)
	}
	if stats.Truncated {
		fmt.Fprintln(w, "  Warning: file limit reached, scan was truncated")
	}
}
