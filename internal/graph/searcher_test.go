package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Searcher:
// - Callers and callees at depth 1 and transitively at greater depth
// - Bare symbol names resolve to every same-named symbol
// - Path returns the shortest call chain, or nothing when unreachable
// - Include context injects the declaration's surrounding lines
// - MaxResults truncates and reports the total found
// - Unknown targets and unsupported operations are errors

type mapReader map[string]string

func (m mapReader) ReadSourceFile(relPath string) (string, error) {
	content, ok := m[relPath]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

// Call chain: main.py (module) -> main.py::run -> svc.py::handle -> repo.py::load
// plus svc.py::handle -> svc.py::log and repo.py::load -> svc.py::log.
func testView() *View {
	return &View{
		Nodes: []NodeView{
			{ID: "main.py", Kind: NodeFile, Label: "main.py", Args: []string{}},
			{ID: "main.py::run", Kind: NodeFunction, Label: "run", ParentID: "main.py", Args: []string{}, Returns: "void", Line: 3},
			{ID: "svc.py", Kind: NodeFile, Label: "svc.py", Args: []string{}},
			{ID: "svc.py::handle", Kind: NodeFunction, Label: "handle", ParentID: "svc.py", Args: []string{}, Returns: "void", Line: 1},
			{ID: "svc.py::log", Kind: NodeFunction, Label: "log", ParentID: "svc.py", Args: []string{}, Returns: "void", Line: 5},
			{ID: "repo.py", Kind: NodeFile, Label: "repo.py", Args: []string{}},
			{ID: "repo.py::load", Kind: NodeFunction, Label: "load", ParentID: "repo.py", Args: []string{}, Returns: "void", Line: 1},
			{ID: "repo.py::log", Kind: NodeFunction, Label: "log", ParentID: "repo.py", Args: []string{}, Returns: "void", Line: 4},
		},
		Edges: []EdgeView{
			{ID: "main.py-main.py::run", Source: "main.py", Target: "main.py::run", Label: "calls"},
			{ID: "main.py::run-svc.py::handle", Source: "main.py::run", Target: "svc.py::handle", Label: "calls"},
			{ID: "svc.py::handle-repo.py::load", Source: "svc.py::handle", Target: "repo.py::load", Label: "calls"},
			{ID: "svc.py::handle-svc.py::log", Source: "svc.py::handle", Target: "svc.py::log", Label: "calls"},
			{ID: "repo.py::load-svc.py::log", Source: "repo.py::load", Target: "svc.py::log", Label: "calls"},
		},
	}
}

func newTestSearcher(t *testing.T) *Searcher {
	t.Helper()
	s, err := NewSearcher(testView(), mapReader{
		"main.py": "import svc\n\ndef run():\n    svc.handle()\n\nrun()\n",
	})
	require.NoError(t, err)
	return s
}

func resultIDs(resp *QueryResponse) []string {
	ids := []string{}
	for _, r := range resp.Results {
		ids = append(ids, r.Node.ID)
	}
	return ids
}

func TestSearcher_Callers(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)
	ctx := context.Background()

	resp, err := s.Query(ctx, &QueryRequest{Operation: OperationCallers, Target: "svc.py::handle"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py::run"}, resultIDs(resp))
	assert.Equal(t, 1, resp.Results[0].Depth)
	assert.Equal(t, "graph", resp.Metadata.Source)

	resp, err = s.Query(ctx, &QueryRequest{Operation: OperationCallers, Target: "svc.py::handle", Depth: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py::run", "main.py"}, resultIDs(resp))
	assert.Equal(t, 2, resp.Results[1].Depth)
}

func TestSearcher_Callees(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)

	resp, err := s.Query(context.Background(), &QueryRequest{Operation: OperationCallees, Target: "main.py::run", Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"svc.py::handle", "repo.py::load", "svc.py::log"}, resultIDs(resp))
	assert.Equal(t, []int{1, 2, 2}, []int{resp.Results[0].Depth, resp.Results[1].Depth, resp.Results[2].Depth})
}

func TestSearcher_BareNameTarget(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)

	resp, err := s.Query(context.Background(), &QueryRequest{Operation: OperationCallers, Target: "log"})
	require.NoError(t, err)
	assert.Equal(t, []string{"svc.py::handle", "repo.py::load"}, resultIDs(resp))
}

func TestSearcher_Path(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)
	ctx := context.Background()

	resp, err := s.Query(ctx, &QueryRequest{Operation: OperationPath, Target: "main.py", To: "repo.py::load"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "main.py::run", "svc.py::handle", "repo.py::load"}, resultIDs(resp))

	resp, err = s.Query(ctx, &QueryRequest{Operation: OperationPath, Target: "repo.py::load", To: "main.py::run"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearcher_Context(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)

	resp, err := s.Query(context.Background(), &QueryRequest{
		Operation:      OperationCallers,
		Target:         "svc.py::handle",
		IncludeContext: true,
		ContextLines:   1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "# Lines 2-4\n\ndef run():\n    svc.handle()", resp.Results[0].Context)
}

func TestSearcher_MaxResults(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)

	resp, err := s.Query(context.Background(), &QueryRequest{Operation: OperationCallees, Target: "main.py", Depth: 5, MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalReturned)
	assert.Equal(t, 4, resp.TotalFound)
	assert.True(t, resp.Truncated)
}

func TestSearcher_Errors(t *testing.T) {
	t.Parallel()

	s := newTestSearcher(t)
	ctx := context.Background()

	_, err := s.Query(ctx, &QueryRequest{Operation: OperationCallers, Target: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTarget)

	_, err = s.Query(ctx, &QueryRequest{Operation: "impact", Target: "log"})
	assert.Error(t, err)

	_, err = s.Query(ctx, &QueryRequest{Operation: OperationPath, Target: "main.py", To: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTarget)
}
