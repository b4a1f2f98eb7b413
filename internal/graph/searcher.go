package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
)

// QueryOperation represents the type of graph query to perform.
type QueryOperation string

const (
	OperationCallers QueryOperation = "callers"
	OperationCallees QueryOperation = "callees"
	OperationPath    QueryOperation = "path"
)

// Query defaults and limits
const (
	DefaultDepth        = 1
	DefaultMaxResults   = 100
	DefaultContextLines = 3
	MaxDepth            = 10
	MaxResultsLimit     = 500
	MaxContextLines     = 20
	MaxFileCacheSize    = 100
)

// ErrUnknownTarget is returned when a query target matches no node.
var ErrUnknownTarget = errors.New("unknown query target")

// QueryRequest represents a graph query request.
type QueryRequest struct {
	Operation      QueryOperation // Type of query
	Target         string         // Node id, or a bare symbol name matching every same-named symbol
	To             string         // For path operation: destination node
	IncludeContext bool           // Whether to include source context
	ContextLines   int            // Number of context lines around the declaration (default: 3)
	Depth          int            // Traversal depth (default: 1)
	MaxResults     int            // Maximum number of results (default: 100)
}

// QueryResponse represents the response to a graph query.
type QueryResponse struct {
	Operation     string        `json:"operation"`
	Target        string        `json:"target"`
	Results       []QueryResult `json:"results"`
	TotalFound    int           `json:"total_found"`
	TotalReturned int           `json:"total_returned"`
	Truncated     bool          `json:"truncated"`
	Metadata      ResponseMeta  `json:"metadata"`
}

// QueryResult represents a single result from a graph query.
type QueryResult struct {
	Node    *NodeView `json:"node"`
	Context string    `json:"context,omitempty"` // Source snippet if IncludeContext=true
	Depth   int       `json:"depth,omitempty"`   // Depth in traversal (for recursive queries)
}

// ResponseMeta contains metadata about the query execution.
type ResponseMeta struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"` // Always "graph"
}

// SourceReader reads a file of the analyzed tree by its relative path.
type SourceReader interface {
	ReadSourceFile(relPath string) (string, error)
}

// Searcher answers call-graph queries over an exported view.
type Searcher struct {
	reader SourceReader

	// Call graph over all nodes; contains edges are not part of it.
	graph graph.Graph[string, *NodeView]
	order []string

	// Reverse indexes for O(1) lookups, in edge order
	callers map[string][]string // symbol -> [callers]
	callees map[string][]string // caller -> [callees]
	byName  map[string][]string // symbol name -> [ids]

	mu        sync.Mutex
	fileCache map[string][]string // file path -> lines
}

// resultWithDepth is an internal type for tracking depth in traversal.
type resultWithDepth struct {
	id    string
	depth int
}

// NewSearcher indexes view. reader may be nil when context is never requested.
func NewSearcher(view *View, reader SourceReader) (*Searcher, error) {
	s := &Searcher{
		reader:    reader,
		graph:     graph.New(func(n *NodeView) string { return n.ID }, graph.Directed()),
		callers:   make(map[string][]string),
		callees:   make(map[string][]string),
		byName:    make(map[string][]string),
		fileCache: make(map[string][]string),
	}

	for i := range view.Nodes {
		node := &view.Nodes[i]
		if err := s.graph.AddVertex(node); err != nil {
			return nil, fmt.Errorf("failed to add node %s: %w", node.ID, err)
		}
		s.order = append(s.order, node.ID)
		if name, ok := SymbolName(node.ID); ok {
			s.byName[name] = append(s.byName[name], node.ID)
		}
	}

	for _, edge := range view.Edges {
		if err := s.graph.AddEdge(edge.Source, edge.Target); err != nil {
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			return nil, fmt.Errorf("failed to add edge %s: %w", edge.ID, err)
		}
		s.callees[edge.Source] = append(s.callees[edge.Source], edge.Target)
		s.callers[edge.Target] = append(s.callers[edge.Target], edge.Source)
	}

	return s, nil
}

// Query executes a graph query.
func (s *Searcher) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	startTime := time.Now()

	if req.Depth <= 0 {
		req.Depth = DefaultDepth
	}
	if req.Depth > MaxDepth {
		req.Depth = MaxDepth
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.MaxResults > MaxResultsLimit {
		req.MaxResults = MaxResultsLimit
	}
	if req.ContextLines <= 0 {
		req.ContextLines = DefaultContextLines
	}
	if req.ContextLines > MaxContextLines {
		req.ContextLines = MaxContextLines
	}

	starts := s.resolveTarget(req.Target)
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, req.Target)
	}

	var found []resultWithDepth
	var err error
	switch req.Operation {
	case OperationCallers:
		found = s.traverse(starts, s.callers, req.Depth)
	case OperationCallees:
		found = s.traverse(starts, s.callees, req.Depth)
	case OperationPath:
		found, err = s.queryPath(starts, req.To)
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}
	if err != nil {
		return nil, err
	}

	results := []QueryResult{}
	seen := make(map[string]bool)
	unique := 0
	for _, rd := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[rd.id] {
			continue
		}
		seen[rd.id] = true
		unique++

		if len(results) >= req.MaxResults {
			continue
		}

		node, err := s.graph.Vertex(rd.id)
		if err != nil {
			continue
		}
		result := QueryResult{Node: node, Depth: rd.depth}
		if req.IncludeContext {
			if snippet, err := s.extractContext(node, req.ContextLines); err == nil {
				result.Context = snippet
			}
		}
		results = append(results, result)
	}

	return &QueryResponse{
		Operation:     string(req.Operation),
		Target:        req.Target,
		Results:       results,
		TotalFound:    unique,
		TotalReturned: len(results),
		Truncated:     len(results) < unique,
		Metadata: ResponseMeta{
			TookMs: int(time.Since(startTime).Milliseconds()),
			Source: "graph",
		},
	}, nil
}

// resolveTarget accepts an exact node id or a bare symbol name.
func (s *Searcher) resolveTarget(target string) []string {
	if _, err := s.graph.Vertex(target); err == nil {
		return []string{target}
	}
	return s.byName[target]
}

// traverse walks an index breadth-first up to depth, recording each node at the
// shallowest depth it is reached.
func (s *Searcher) traverse(starts []string, index map[string][]string, depth int) []resultWithDepth {
	results := []resultWithDepth{}
	visited := make(map[string]bool)
	for _, id := range starts {
		visited[id] = true
	}

	frontier := starts
	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range index[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				results = append(results, resultWithDepth{id: neighbor, depth: level})
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return results
}

// queryPath finds the shortest call chain from any start to the destination.
func (s *Searcher) queryPath(starts []string, to string) ([]resultWithDepth, error) {
	targets := s.resolveTarget(to)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, to)
	}

	var best []string
	for _, from := range starts {
		for _, dest := range targets {
			path, err := graph.ShortestPath(s.graph, from, dest)
			if err != nil {
				if errors.Is(err, graph.ErrTargetNotReachable) {
					continue
				}
				return nil, fmt.Errorf("failed to compute path: %w", err)
			}
			if best == nil || len(path) < len(best) {
				best = path
			}
		}
	}

	results := []resultWithDepth{}
	for i, id := range best {
		results = append(results, resultWithDepth{id: id, depth: i})
	}
	return results, nil
}

// extractContext returns the lines around a node's declaration.
func (s *Searcher) extractContext(node *NodeView, contextLines int) (string, error) {
	if s.reader == nil || node.Line == 0 {
		return "", errors.New("no source context available")
	}
	file := node.ParentID
	if file == "" {
		file = node.ID
	}

	lines, err := s.getFileLines(file)
	if err != nil {
		return "", err
	}

	from := max(0, node.Line-contextLines-1)
	to := min(len(lines), node.Line+contextLines)
	if from >= to {
		return "", fmt.Errorf("line %d out of range for %s", node.Line, file)
	}

	prefix := fmt.Sprintf("# Lines %d-%d\n", from+1, to)
	return prefix + strings.Join(lines[from:to], "\n"), nil
}

// getFileLines reads a file and caches its lines.
func (s *Searcher) getFileLines(relPath string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lines, ok := s.fileCache[relPath]; ok {
		return lines, nil
	}

	content, err := s.reader.ReadSourceFile(relPath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(content, "\n")

	if len(s.fileCache) < MaxFileCacheSize {
		s.fileCache[relPath] = lines
	}
	return lines, nil
}
