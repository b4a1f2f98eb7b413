package parsers

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractor walks one syntax tree. The current scope is passed down the
// recursion explicitly, so leaving a definition restores the outer scope.
type extractor struct {
	source   []byte
	maxDepth int
	facts    *FileFacts
}

func newExtractor(source []byte, maxDepth int) *extractor {
	return &extractor{
		source:   source,
		maxDepth: maxDepth,
		facts:    NewFileFacts(),
	}
}

func (x *extractor) visit(node *sitter.Node, scope string, depth int) error {
	if depth > x.maxDepth {
		return fmt.Errorf("%w: exceeds %d levels", ErrTooDeep, x.maxDepth)
	}

	switch node.Kind() {
	case "import_statement":
		x.addImports(node)

	case "import_from_statement", "future_import_statement":
		x.addFromImport(node)

	case "decorated_definition":
		def := node.ChildByFieldName("definition")
		if def == nil {
			break
		}
		// Decorators belong to the definition's own scope.
		inner := x.declare(def, scope)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || child.Equals(*def) {
				continue
			}
			if err := x.visit(child, inner, depth+1); err != nil {
				return err
			}
		}
		return x.visitChildren(def, inner, depth+1)

	case "function_definition", "class_definition":
		inner := x.declare(node, scope)
		return x.visitChildren(node, inner, depth+1)

	case "call":
		x.addCall(node, scope)
	}

	return x.visitChildren(node, scope, depth+1)
}

func (x *extractor) visitChildren(node *sitter.Node, scope string, depth int) error {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if err := x.visit(child, scope, depth); err != nil {
			return err
		}
	}
	return nil
}

// declare records a function or class definition and returns the scope its
// contents are attributed to.
func (x *extractor) declare(def *sitter.Node, scope string) string {
	name := extractNodeText(def.ChildByFieldName("name"), x.source)
	if name == "" {
		return scope
	}

	switch def.Kind() {
	case "function_definition":
		x.facts.Functions = append(x.facts.Functions, FunctionFact{
			Name:    name,
			Scope:   scope,
			Line:    lineOf(def),
			Params:  x.params(def.ChildByFieldName("parameters")),
			Returns: returnDescriptor(def, x.source),
		})
	case "class_definition":
		x.facts.Classes = append(x.facts.Classes, ClassFact{
			Name:  name,
			Scope: scope,
			Line:  lineOf(def),
		})
	default:
		return scope
	}
	return name
}

// params collects positional-or-keyword parameters: everything after a "/"
// marker and before "*", "*args" or "**kwargs".
func (x *extractor) params(node *sitter.Node) []Param {
	params := []Param{}
	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "identifier":
			params = append(params, Param{Name: extractNodeText(child, x.source), Type: "Any"})

		case "default_parameter":
			name := child.ChildByFieldName("name")
			if name != nil && name.Kind() == "identifier" {
				params = append(params, Param{Name: extractNodeText(name, x.source), Type: "Any"})
			}

		case "typed_parameter":
			first := firstNamedChild(child)
			if first == nil || first.Kind() != "identifier" {
				// *args: T or **kwargs: T
				return params
			}
			params = append(params, Param{
				Name: extractNodeText(first, x.source),
				Type: annotationType(child.ChildByFieldName("type"), x.source),
			})

		case "typed_default_parameter":
			name := child.ChildByFieldName("name")
			if name != nil {
				params = append(params, Param{
					Name: extractNodeText(name, x.source),
					Type: annotationType(child.ChildByFieldName("type"), x.source),
				})
			}

		case "positional_separator":
			params = []Param{}

		case "keyword_separator", "list_splat_pattern", "dictionary_splat_pattern":
			return params
		}
	}
	return params
}

func (x *extractor) addImports(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(uint32(i)) != "name" {
			continue
		}
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			x.facts.Imports = append(x.facts.Imports, dottedName(child, x.source))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				x.facts.Imports = append(x.facts.Imports, dottedName(name, x.source))
			}
		}
	}
}

// addFromImport records the module of a from-import. Relative imports keep the
// module name without the leading dots and are skipped when there is none.
func (x *extractor) addFromImport(node *sitter.Node) {
	if node.Kind() == "future_import_statement" {
		x.facts.Imports = append(x.facts.Imports, "__future__")
		return
	}
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return
	}
	switch module.Kind() {
	case "dotted_name":
		x.facts.Imports = append(x.facts.Imports, dottedName(module, x.source))
	case "relative_import":
		if names := findChildrenByType(module, "dotted_name"); len(names) > 0 {
			x.facts.Imports = append(x.facts.Imports, dottedName(names[0], x.source))
		}
	}
}

// addCall records calls to a bare name or to an attribute of a bare name.
// Calls through any other receiver (self.a.b(), f().g(), x[0]()) are skipped.
func (x *extractor) addCall(node *sitter.Node, scope string) {
	callee := unwrapParens(node.ChildByFieldName("function"))
	if callee == nil {
		return
	}

	var target string
	switch callee.Kind() {
	case "identifier":
		target = extractNodeText(callee, x.source)
	case "attribute":
		object := unwrapParens(callee.ChildByFieldName("object"))
		attr := callee.ChildByFieldName("attribute")
		if object == nil || attr == nil || object.Kind() != "identifier" {
			return
		}
		target = extractNodeText(object, x.source) + "." + extractNodeText(attr, x.source)
	default:
		return
	}

	x.facts.Calls = append(x.facts.Calls, CallFact{
		Scope:  scope,
		Target: target,
		Line:   lineOf(node),
	})
}
