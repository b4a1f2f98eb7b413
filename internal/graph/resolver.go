package graph

// Resolver maps call targets to symbol nodes. A target matches every node whose
// id ends with "::<target>", so a bare name fans out to all same-named symbols
// across files. The index is keyed by the segment after the last separator.
type Resolver struct {
	byName map[string][]string
}

// NewResolver indexes the nodes of g. Build it after all nodes are inserted.
func NewResolver(g *Graph) *Resolver {
	r := &Resolver{byName: make(map[string][]string)}
	for _, n := range g.Nodes() {
		if name, ok := SymbolName(n.ID); ok {
			r.byName[name] = append(r.byName[name], n.ID)
		}
	}
	return r
}

// Resolve returns the ids matching target, in node insertion order.
func (r *Resolver) Resolve(target string) []string {
	return r.byName[target]
}
