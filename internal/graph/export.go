package graph

// NodeView is the rendering-facing description of a node.
type NodeView struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Label    string   `json:"label"`
	Args     []string `json:"args"`
	Returns  string   `json:"returns"`
	ParentID string   `json:"parentId,omitempty"`
	Line     int      `json:"line,omitempty"`
}

// EdgeView is the rendering-facing description of a calls edge.
type EdgeView struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// View is the exported model: every node, and every calls edge.
type View struct {
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// Snapshot is a View stamped with metadata about the analysis that produced it.
type Snapshot struct {
	Metadata Metadata `json:"_metadata"`
	View
}

// Export converts g into a View. Containment is expressed through ParentID, so
// contains edges are not exported.
func Export(g *Graph) *View {
	view := &View{
		Nodes: make([]NodeView, 0, g.NodeCount()),
		Edges: []EdgeView{},
	}

	for _, n := range g.Nodes() {
		args := n.Args
		if args == nil {
			args = []string{}
		}
		view.Nodes = append(view.Nodes, NodeView{
			ID:       n.ID,
			Kind:     n.Kind,
			Label:    n.Label,
			Args:     append([]string{}, args...),
			Returns:  n.Returns,
			ParentID: n.ParentID,
			Line:     n.Line,
		})
	}

	for _, e := range g.EdgesOfType(EdgeCalls) {
		view.Edges = append(view.Edges, EdgeView{
			ID:     e.Source + "-" + e.Target,
			Source: e.Source,
			Target: e.Target,
			Label:  string(e.Type),
		})
	}

	return view
}
