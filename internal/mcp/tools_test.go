package mcp

// Test Plan for umbra MCP tools:
// - Tools register on a server without panicking
// - umbra_analyze analyzes the configured root and returns the view as JSON
// - umbra_analyze reports analysis failures as tool errors
// - umbra_read_file returns {path, content}; missing path and NotFound are tool errors
// - umbra_graph applies defaults, coerces string arguments and validates operation/target/to
// - umbra_graph reports unknown targets as tool errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/graph"
)

type fakeService struct {
	root       string
	analyzed   []string
	analyzeErr error
	files      map[string]string
	lastQuery  *graph.QueryRequest
}

func (f *fakeService) Root() string { return f.root }

func (f *fakeService) Analyze(ctx context.Context, rootPath string) (*graph.View, error) {
	f.analyzed = append(f.analyzed, rootPath)
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &graph.View{
		Nodes: []graph.NodeView{{ID: "a.py", Kind: graph.NodeFile, Label: "a.py", Args: []string{}}},
		Edges: []graph.EdgeView{},
	}, nil
}

func (f *fakeService) ReadSourceFile(relPath string) (string, error) {
	content, ok := f.files[relPath]
	if !ok {
		return "", fmt.Errorf("%w: %s", analysis.ErrNotFound, relPath)
	}
	return content, nil
}

func (f *fakeService) Query(ctx context.Context, req *graph.QueryRequest) (*graph.QueryResponse, error) {
	f.lastQuery = req
	if req.Target == "missing" {
		return nil, fmt.Errorf("%w: %s", graph.ErrUnknownTarget, req.Target)
	}
	return &graph.QueryResponse{Operation: string(req.Operation), Target: req.Target, Results: []graph.QueryResult{}}, nil
}

func callTool(t *testing.T, handler server.ToolHandlerFunc, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return result, textContent.Text
}

func TestNewMCPServer(t *testing.T) {
	t.Parallel()

	_, err := NewMCPServer(nil)
	assert.Error(t, err)

	s, err := NewMCPServer(&fakeService{})
	require.NoError(t, err)
	assert.NotNil(t, s.mcp)
}

func TestUmbraAnalyze(t *testing.T) {
	t.Parallel()

	svc := &fakeService{root: "/src"}
	result, text := callTool(t, createAnalyzeHandler(svc), nil)

	assert.False(t, result.IsError)
	assert.Equal(t, []string{"/src"}, svc.analyzed)

	var view graph.View
	require.NoError(t, json.Unmarshal([]byte(text), &view))
	require.Len(t, view.Nodes, 1)
	assert.Equal(t, "a.py", view.Nodes[0].ID)
}

func TestUmbraAnalyze_Error(t *testing.T) {
	t.Parallel()

	svc := &fakeService{root: "/src", analyzeErr: errors.New("boom")}
	result, text := callTool(t, createAnalyzeHandler(svc), nil)

	assert.True(t, result.IsError)
	assert.Contains(t, text, "boom")
}

func TestUmbraReadFile(t *testing.T) {
	t.Parallel()

	svc := &fakeService{files: map[string]string{"pkg/a.py": "x = 1\n"}}
	handler := createReadFileHandler(svc)

	result, text := callTool(t, handler, map[string]any{"path": "pkg/a.py"})
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"path": "pkg/a.py", "content": "x = 1\n"}`, text)

	result, text = callTool(t, handler, map[string]any{"path": "nope.py"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "file not found")

	result, text = callTool(t, handler, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "path parameter is required")
}

func TestUmbraGraph(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	handler := createGraphHandler(svc)

	result, text := callTool(t, handler, map[string]any{"operation": "callers", "target": "save"})
	assert.False(t, result.IsError)
	assert.Contains(t, text, `"operation":"callers"`)
	assert.Equal(t, &graph.QueryRequest{
		Operation:    graph.OperationCallers,
		Target:       "save",
		ContextLines: graph.DefaultContextLines,
		Depth:        graph.DefaultDepth,
		MaxResults:   graph.DefaultMaxResults,
	}, svc.lastQuery)

	result, _ = callTool(t, handler, map[string]any{
		"operation":       "callees",
		"target":          "a.py",
		"depth":           "3",
		"max_results":     float64(5),
		"include_context": "true",
	})
	assert.False(t, result.IsError)
	assert.Equal(t, 3, svc.lastQuery.Depth)
	assert.Equal(t, 5, svc.lastQuery.MaxResults)
	assert.True(t, svc.lastQuery.IncludeContext)
}

func TestUmbraGraph_Validation(t *testing.T) {
	t.Parallel()

	handler := createGraphHandler(&fakeService{})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"bad operation", map[string]any{"operation": "impact", "target": "x"}, "invalid operation"},
		{"missing target", map[string]any{"operation": "callers"}, "target parameter is required"},
		{"path without to", map[string]any{"operation": "path", "target": "x"}, "to parameter is required"},
		{"unknown target", map[string]any{"operation": "callers", "target": "missing"}, "unknown query target"},
		{"bad depth", map[string]any{"operation": "callers", "target": "x", "depth": "deep"}, "invalid arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, text := callTool(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.want)
		})
	}
}
