package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// annotationType renders a parameter or return annotation: bare names verbatim,
// literal constants by value, everything else as normalized source text.
func annotationType(node *sitter.Node, source []byte) string {
	if node == nil {
		return "Any"
	}
	expr := unwrapParens(unwrapType(node))
	if expr.Kind() == "identifier" {
		return extractNodeText(expr, source)
	}
	if c, ok := evalConstant(expr, source); ok {
		return c.value
	}
	return unparse(expr, source)
}

// unparse reconstructs canonical source text for an expression, normalizing
// spacing and quoting.
func unparse(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "identifier":
		return extractNodeText(node, source)

	case "type", "parenthesized_expression":
		if inner := firstNamedChild(node); inner != nil && len(namedChildren(node)) == 1 {
			return unparse(inner, source)
		}

	case "integer", "float", "string", "concatenated_string", "true", "false", "none", "ellipsis":
		if c, ok := evalConstant(node, source); ok {
			return c.repr
		}

	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if object != nil && attr != nil {
			return unparse(object, source) + "." + extractNodeText(attr, source)
		}

	case "member_type":
		children := namedChildren(node)
		if len(children) == 2 {
			return unparse(children[0], source) + "." + unparse(children[1], source)
		}

	case "subscript":
		value := node.ChildByFieldName("value")
		if value != nil {
			var parts []string
			for i := uint(0); i < node.ChildCount(); i++ {
				if node.FieldNameForChild(uint32(i)) == "subscript" {
					parts = append(parts, unparseElement(node.Child(i), source))
				}
			}
			return unparse(value, source) + "[" + strings.Join(parts, ", ") + "]"
		}

	case "generic_type":
		children := namedChildren(node)
		if len(children) == 2 {
			return unparse(children[0], source) + unparse(children[1], source)
		}

	case "type_parameter":
		return "[" + joinElements(namedChildren(node), source) + "]"

	case "union_type":
		children := namedChildren(node)
		if len(children) == 2 {
			return unparse(children[0], source) + " | " + unparse(children[1], source)
		}

	case "binary_operator":
		left := node.ChildByFieldName("left")
		op := node.ChildByFieldName("operator")
		right := node.ChildByFieldName("right")
		if left != nil && op != nil && right != nil {
			return unparse(left, source) + " " + extractNodeText(op, source) + " " + unparse(right, source)
		}

	case "unary_operator":
		op := node.ChildByFieldName("operator")
		arg := node.ChildByFieldName("argument")
		if op != nil && arg != nil {
			return extractNodeText(op, source) + unparse(arg, source)
		}

	case "not_operator":
		if arg := node.ChildByFieldName("argument"); arg != nil {
			return "not " + unparse(arg, source)
		}

	case "list":
		return "[" + joinElements(namedChildren(node), source) + "]"

	case "tuple":
		elements := namedChildren(node)
		if len(elements) == 1 {
			return "(" + unparseElement(elements[0], source) + ",)"
		}
		return "(" + joinElements(elements, source) + ")"

	case "expression_list":
		return joinElements(namedChildren(node), source)

	case "splat_type", "list_splat":
		if inner := firstNamedChild(node); inner != nil {
			if strings.HasPrefix(extractNodeText(node, source), "**") {
				return "**" + unparse(inner, source)
			}
			return "*" + unparse(inner, source)
		}

	case "dictionary_splat":
		if inner := firstNamedChild(node); inner != nil {
			return "**" + unparse(inner, source)
		}

	case "keyword_argument":
		name := node.ChildByFieldName("name")
		value := node.ChildByFieldName("value")
		if name != nil && value != nil {
			return extractNodeText(name, source) + "=" + unparse(value, source)
		}

	case "call":
		function := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if function != nil && args != nil && args.Kind() == "argument_list" {
			return unparse(function, source) + "(" + joinElements(namedChildren(args), source) + ")"
		}
	}
	return collapseSpace(extractNodeText(node, source))
}

// unparseElement renders a tuple element; a bare tuple inside brackets loses its parens.
func unparseElement(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	if node.Kind() == "tuple" {
		return joinElements(namedChildren(node), source)
	}
	return unparse(node, source)
}

func joinElements(nodes []*sitter.Node, source []byte) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = unparse(n, source)
	}
	return strings.Join(parts, ", ")
}
