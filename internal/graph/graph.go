package graph

// Graph is an in-memory directed multigraph of files and symbols. Nodes keep
// insertion order; re-adding an id replaces the node in place. Edges are
// unique by (source, target, type). Graph is not safe for concurrent use;
// Store serializes access.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
	seen  map[Edge]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	g := &Graph{}
	g.Clear()
	return g
}

// Clear removes every node and edge.
func (g *Graph) Clear() {
	g.nodes = make(map[string]*Node)
	g.order = nil
	g.edges = nil
	g.seen = make(map[Edge]struct{})
}

// AddNode inserts n, or overwrites the existing node with the same id.
func (g *Graph) AddNode(n Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	node := n
	g.nodes[n.ID] = &node
}

// AddEdge inserts e unless an identical edge exists. Reports whether it was added.
func (g *Graph) AddEdge(e Edge) bool {
	if _, dup := g.seen[e]; dup {
		return false
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
	return true
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EdgesOfType returns the edges of one type in insertion order.
func (g *Graph) EdgesOfType(t EdgeType) []Edge {
	var edges []Edge
	for _, e := range g.edges {
		if e.Type == t {
			edges = append(edges, e)
		}
	}
	return edges
}

func (g *Graph) NodeCount() int { return len(g.order) }

func (g *Graph) EdgeCount() int { return len(g.edges) }
