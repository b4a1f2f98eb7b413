package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// lineOf returns the 1-indexed line a node starts on.
func lineOf(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// namedChildren returns the named children of node, skipping comments.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	var children []*sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		children = append(children, child)
	}
	return children
}

// firstNamedChild returns the first non-comment named child, or nil.
func firstNamedChild(node *sitter.Node) *sitter.Node {
	children := namedChildren(node)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// findChildrenByType finds all direct named children with the given kind.
func findChildrenByType(node *sitter.Node, kind string) []*sitter.Node {
	var results []*sitter.Node
	for _, child := range namedChildren(node) {
		if child.Kind() == kind {
			results = append(results, child)
		}
	}
	return results
}

// unwrapParens strips redundant parentheses around an expression.
func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == "parenthesized_expression" {
		inner := firstNamedChild(node)
		if inner == nil {
			return node
		}
		node = inner
	}
	return node
}

// unwrapType returns the expression inside a `type` wrapper node.
func unwrapType(node *sitter.Node) *sitter.Node {
	if node != nil && node.Kind() == "type" {
		if children := namedChildren(node); len(children) == 1 {
			return children[0]
		}
	}
	return node
}

// dottedName joins the identifiers of a dotted_name with ".".
func dottedName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	parts := findChildrenByType(node, "identifier")
	if len(parts) == 0 {
		return collapseSpace(extractNodeText(node, source))
	}
	names := make([]string, len(parts))
	for i, part := range parts {
		names[i] = extractNodeText(part, source)
	}
	return strings.Join(names, ".")
}

// firstErrorLine locates the first ERROR or MISSING node in document order.
func firstErrorLine(node *sitter.Node) int {
	for {
		if node.IsError() || node.IsMissing() {
			return lineOf(node)
		}
		var next *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && (child.HasError() || child.IsMissing()) {
				next = child
				break
			}
		}
		if next == nil {
			return lineOf(node)
		}
		node = next
	}
}

// legacySyntaxLine returns the line of the first Python 2 construct that
// tree-sitter accepts without an ERROR node: print and exec statements, and
// "except E, e:" clauses.
func legacySyntaxLine(root *sitter.Node) (int, bool) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Kind() {
		case "print_statement", "exec_statement":
			return lineOf(node), true
		case "except_clause":
			if countFieldChildren(node, "value") > 1 {
				return lineOf(node), true
			}
		}

		// reversed so children pop in source order
		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			if child := node.NamedChild(uint(i)); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return 0, false
}

func countFieldChildren(node *sitter.Node, field string) int {
	n := 0
	for i := uint32(0); i < uint32(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) == field {
			n++
		}
	}
	return n
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
