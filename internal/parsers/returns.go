package parsers

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// returnDescriptor summarizes every valued return statement inside a function
// body, nested scopes included, as sorted unique "name (type)" entries joined
// by " | ". An explicit return annotation replaces every type component.
func returnDescriptor(def *sitter.Node, source []byte) string {
	body := def.ChildByFieldName("body")
	if body == nil {
		return VoidReturns
	}

	annotated := false
	override := ""
	if rt := def.ChildByFieldName("return_type"); rt != nil {
		annotated = true
		override = annotationType(rt, source)
	}

	seen := make(map[string]struct{})
	stack := []*sitter.Node{body}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Kind() == "return_statement" {
			if name, typ, ok := returnEntry(node, source); ok {
				if annotated {
					typ = override
				}
				seen[name+" ("+typ+")"] = struct{}{}
			}
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(uint(i)); child != nil {
				stack = append(stack, child)
			}
		}
	}

	if len(seen) == 0 {
		return VoidReturns
	}
	entries := make([]string, 0, len(seen))
	for entry := range seen {
		entries = append(entries, entry)
	}
	sort.Strings(entries)
	return strings.Join(entries, " | ")
}

// returnEntry classifies the value of one return statement. Bare returns report false.
func returnEntry(stmt *sitter.Node, source []byte) (name, typ string, ok bool) {
	value := unwrapParens(firstNamedChild(stmt))
	if value == nil {
		return "", "", false
	}

	switch value.Kind() {
	case "identifier":
		return extractNodeText(value, source), "dynamic", true
	case "call":
		callee := unwrapParens(value.ChildByFieldName("function"))
		if callee != nil && callee.Kind() == "identifier" {
			return extractNodeText(callee, source) + "()", "object", true
		}
		return "call()", "object", true
	}
	if c, isConst := evalConstant(value, source); isConst {
		return c.value, c.typeName, true
	}
	return "result", "Any", true
}
