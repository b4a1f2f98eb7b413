package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/graph"
	mcputils "github.com/mvp-joe/umbra/internal/mcp-utils"
)

// Analyzer rebuilds the graph of the configured root.
type Analyzer interface {
	Root() string
	Analyze(ctx context.Context, rootPath string) (*graph.View, error)
}

// FileReader reads files of the analyzed tree.
type FileReader interface {
	ReadSourceFile(relPath string) (string, error)
}

// GraphQuerier answers call-graph queries.
type GraphQuerier interface {
	Query(ctx context.Context, req *graph.QueryRequest) (*graph.QueryResponse, error)
}

// UmbraReadFileRequest represents the umbra_read_file parameters.
type UmbraReadFileRequest struct {
	Path string `json:"path"`
}

// UmbraGraphRequest represents the umbra_graph parameters.
type UmbraGraphRequest struct {
	Operation      string `json:"operation"`       // "callers", "callees", "path"
	Target         string `json:"target"`          // Node id or bare symbol name
	To             string `json:"to"`              // Destination for "path"
	IncludeContext bool   `json:"include_context"` // Whether to include code snippets
	ContextLines   int    `json:"context_lines"`   // Lines around the declaration
	Depth          int    `json:"depth"`           // Traversal depth
	MaxResults     int    `json:"max_results"`     // Maximum results
}

// AddUmbraAnalyzeTool registers the umbra_analyze tool with an MCP server.
func AddUmbraAnalyzeTool(s *server.MCPServer, analyzer Analyzer) {
	tool := mcp.NewTool(
		"umbra_analyze",
		mcp.WithDescription("Rebuild the structural graph of the configured Python codebase and return it: one node per file, function and class (with parameters and return descriptors) and one edge per resolved call."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createAnalyzeHandler(analyzer))
}

func createAnalyzeHandler(analyzer Analyzer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view, err := analyzer.Analyze(ctx, analyzer.Root())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		return jsonResult(view)
	}
}

// AddUmbraReadFileTool registers the umbra_read_file tool with an MCP server.
func AddUmbraReadFileTool(s *server.MCPServer, reader FileReader) {
	tool := mcp.NewTool(
		"umbra_read_file",
		mcp.WithDescription("Read a source file of the analyzed codebase by its path relative to the root (the file id of a graph node)."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path relative to the codebase root (e.g., 'pkg/models.py')")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createReadFileHandler(reader))
}

func createReadFileHandler(reader FileReader) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req UmbraReadFileRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if req.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		content, err := reader.ReadSourceFile(req.Path)
		if errors.Is(err, analysis.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("file not found: %s", req.Path)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(map[string]string{"path": req.Path, "content": content})
	}
}

// AddUmbraGraphTool registers the umbra_graph tool with an MCP server.
func AddUmbraGraphTool(s *server.MCPServer, querier GraphQuerier) {
	tool := mcp.NewTool(
		"umbra_graph",
		mcp.WithDescription("Query call relationships of the last analysis. Operations: callers (who calls this symbol), callees (what does this symbol call), path (shortest call chain from target to 'to'). Resolution is name-based and best effort."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Type of query: 'callers', 'callees' or 'path'")),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Node id ('pkg/models.py::save', 'main.py') or a bare symbol name ('save')")),
		mcp.WithString("to",
			mcp.Description("Destination node for 'path'")),
		mcp.WithBoolean("include_context",
			mcp.Description("Include source lines around each result (default: false)")),
		mcp.WithNumber("context_lines",
			mcp.Description("Number of context lines (default: 3, max: 20)")),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth (default: 1, max: 10)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 100, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createGraphHandler(querier))
}

func createGraphHandler(querier GraphQuerier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := UmbraGraphRequest{
			ContextLines: graph.DefaultContextLines,
			Depth:        graph.DefaultDepth,
			MaxResults:   graph.DefaultMaxResults,
		}
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		validOps := map[string]graph.QueryOperation{
			"callers": graph.OperationCallers,
			"callees": graph.OperationCallees,
			"path":    graph.OperationPath,
		}
		op, ok := validOps[req.Operation]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid operation: %q (must be one of: callers, callees, path)", req.Operation)), nil
		}
		if req.Target == "" {
			return mcp.NewToolResultError("target parameter is required"), nil
		}
		if op == graph.OperationPath && req.To == "" {
			return mcp.NewToolResultError("to parameter is required for path"), nil
		}

		response, err := querier.Query(ctx, &graph.QueryRequest{
			Operation:      op,
			Target:         req.Target,
			To:             req.To,
			IncludeContext: req.IncludeContext,
			ContextLines:   req.ContextLines,
			Depth:          req.Depth,
			MaxResults:     req.MaxResults,
		})
		if errors.Is(err, graph.ErrUnknownTarget) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("graph query failed: %w", err)
		}

		return jsonResult(response)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
