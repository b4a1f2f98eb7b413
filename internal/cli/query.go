package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/graph"
	"github.com/mvp-joe/umbra/internal/storage"
)

type queryOptions struct {
	root           string
	to             string
	depth          int
	maxResults     int
	contextLines   int
	includeContext bool
	fromSnapshot   bool
	sqlitePath     string
	printJSON      bool
}

var queryOpts queryOptions

var queryCmd = &cobra.Command{
	Use:   "query <callers|callees|path> <target>",
	Short: "Query the call graph",
	Long: `Query walks CALLS edges of the graph. Targets are node ids such as
"pkg/mod.py::func" or bare names such as "func", which match every symbol
with that name.

By default the codebase is analyzed first. With --snapshot the graph is
loaded from the exported code-graph.json instead, and with --sqlite from a
database written by 'umbra analyze --sqlite'.

Examples:
  umbra query callers save
  umbra query callees app.py::main --depth 3 --context
  umbra query path app.py::main --to models.py::save --snapshot
  umbra query callers save --sqlite .umbra/graph.db
`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryOpts.root, "root", "", "Codebase root (default: working directory)")
	queryCmd.Flags().StringVar(&queryOpts.to, "to", "", "Destination node for the path operation")
	queryCmd.Flags().IntVarP(&queryOpts.depth, "depth", "d", graph.DefaultDepth, "Traversal depth (1-10)")
	queryCmd.Flags().IntVarP(&queryOpts.maxResults, "max-results", "n", graph.DefaultMaxResults, "Maximum number of results")
	queryCmd.Flags().IntVar(&queryOpts.contextLines, "context-lines", graph.DefaultContextLines, "Source lines shown with --context")
	queryCmd.Flags().BoolVarP(&queryOpts.includeContext, "context", "c", false, "Include source context for each result")
	queryCmd.Flags().BoolVar(&queryOpts.fromSnapshot, "snapshot", false, "Query the exported snapshot instead of re-analyzing")
	queryCmd.Flags().StringVar(&queryOpts.sqlitePath, "sqlite", "", "Query the SQLite export at this path instead of re-analyzing")
	queryCmd.Flags().BoolVar(&queryOpts.printJSON, "json", false, "Print the response as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	rootArgs := []string{}
	if queryOpts.root != "" {
		rootArgs = append(rootArgs, queryOpts.root)
	}
	root, err := resolveRoot(rootArgs)
	if err != nil {
		return err
	}
	req := &graph.QueryRequest{
		Operation:      graph.QueryOperation(strings.ToLower(args[0])),
		Target:         args[1],
		To:             queryOpts.to,
		Depth:          queryOpts.depth,
		MaxResults:     queryOpts.maxResults,
		ContextLines:   queryOpts.contextLines,
		IncludeContext: queryOpts.includeContext,
	}
	return executeQuery(cmd.Context(), cmd.OutOrStdout(), root, req, queryOpts)
}

func executeQuery(ctx context.Context, out io.Writer, root string, req *graph.QueryRequest, opts queryOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	svc, err := analysis.NewService(cfg, root)
	if err != nil {
		return err
	}

	var resp *graph.QueryResponse
	switch {
	case opts.sqlitePath != "":
		resp, err = querySQLite(ctx, absUnder(root, opts.sqlitePath), svc, req)
	case opts.fromSnapshot:
		resp, err = querySnapshot(ctx, absUnder(root, cfg.Export.GraphDir), svc, req)
	default:
		if _, err = svc.Analyze(ctx, root); err != nil {
			return err
		}
		resp, err = svc.Query(ctx, req)
	}
	if err != nil {
		return err
	}

	if opts.printJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printQueryResponse(out, resp)
	return nil
}

func querySnapshot(ctx context.Context, graphDir string, reader graph.SourceReader, req *graph.QueryRequest) (*graph.QueryResponse, error) {
	st, err := graph.NewStorage(graphDir)
	if err != nil {
		return nil, err
	}
	snap, err := st.Load()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("no snapshot in %s; run 'umbra analyze' first", graphDir)
	}
	return searchSnapshot(ctx, snap, reader, req)
}

func querySQLite(ctx context.Context, dbPath string, reader graph.SourceReader, req *graph.QueryRequest) (*graph.QueryResponse, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no database at %s; run 'umbra analyze --sqlite' first: %w", dbPath, err)
	}
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap, err := storage.NewReader(db).ReadSnapshot()
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil, fmt.Errorf("no snapshot in %s; run 'umbra analyze --sqlite' first", dbPath)
	}
	if err != nil {
		return nil, err
	}
	return searchSnapshot(ctx, snap, reader, req)
}

func searchSnapshot(ctx context.Context, snap *graph.Snapshot, reader graph.SourceReader, req *graph.QueryRequest) (*graph.QueryResponse, error) {
	searcher, err := graph.NewSearcher(&snap.View, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to index graph: %w", err)
	}
	return searcher.Query(ctx, req)
}

func printQueryResponse(w io.Writer, resp *graph.QueryResponse) {
	fmt.Fprintf(w, "%s of %s: %d result(s)", resp.Operation, resp.Target, resp.TotalReturned)
	if resp.Truncated {
		fmt.Fprintf(w, " (truncated from %d)", resp.TotalFound)
	}
	fmt.Fprintln(w)

	for _, r := range resp.Results {
		indent := strings.Repeat("  ", max(r.Depth, 1))
		fmt.Fprintf(w, "%s%s [%s]", indent, r.Node.ID, r.Node.Kind)
		if r.Node.Line > 0 {
			fmt.Fprintf(w, " line %d", r.Node.Line)
		}
		fmt.Fprintln(w)
		if r.Context != "" {
			for _, line := range strings.Split(r.Context, "\n") {
				fmt.Fprintf(w, "%s  | %s\n", indent, line)
			}
		}
	}
}
