package graph

import (
	"strings"
	"time"
)

// NodeKind represents the type of a code entity.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeFunction NodeKind = "function"
	NodeClass    NodeKind = "class"
)

// EdgeType represents the type of relationship between nodes.
type EdgeType string

const (
	EdgeContains EdgeType = "contains" // File declares symbol
	EdgeCalls    EdgeType = "calls"    // Scope calls symbol
)

// IDSeparator joins a file id and a symbol name.
const IDSeparator = "::"

// Node represents a file, function or class.
type Node struct {
	ID       string   // File: relative path. Symbol: "<relPath>::<name>"
	Kind     NodeKind // Type of node
	Label    string   // Base name for files, symbol name otherwise
	ParentID string   // Owning file id; empty for files
	Scope    string   // Enclosing def/class name or "global"
	Args     []string // "name (type)" parameter descriptors (functions only)
	Returns  string   // Return descriptor (functions only)
	Line     int      // Declaration line (1-indexed), 0 for files
}

// Edge represents a directed relationship between two nodes.
type Edge struct {
	Source string
	Target string
	Type   EdgeType
}

// SymbolID builds the id of a symbol declared in a file.
func SymbolID(fileID, name string) string {
	return fileID + IDSeparator + name
}

// SymbolName returns the segment after the last separator, or false for file ids.
func SymbolName(id string) (string, bool) {
	i := strings.LastIndex(id, IDSeparator)
	if i < 0 {
		return "", false
	}
	return id[i+len(IDSeparator):], true
}

// Metadata describes one analysis snapshot.
type Metadata struct {
	Version     string    `json:"version"`
	SnapshotID  string    `json:"snapshot_id"`
	Root        string    `json:"root"`
	GeneratedAt time.Time `json:"generated_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
}

// BuildStats summarizes one Populate run.
type BuildStats struct {
	Root            string        `json:"root"`
	RootMissing     bool          `json:"root_missing"`
	Truncated       bool          `json:"truncated"`
	Files           int           `json:"files"`
	SyntaxErrors    int           `json:"syntax_errors"`
	FailedFiles     int           `json:"failed_files"`
	Symbols         int           `json:"symbols"`
	Calls           int           `json:"calls"`
	ResolvedEdges   int           `json:"resolved_edges"`
	UnresolvedCalls int           `json:"unresolved_calls"`
	Duration        time.Duration `json:"duration"`
}
