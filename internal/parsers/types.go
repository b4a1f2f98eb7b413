package parsers

import "strconv"

// GlobalScope is the scope recorded for module-level definitions and calls.
const GlobalScope = "global"

// Placeholder values recorded for a file that failed to parse with a syntax error.
const (
	SyntaxErrorName    = "⚠️ SYNTAX ERROR"
	SyntaxErrorType    = "Error"
	SyntaxErrorReturns = "Invalid (Python)"
)

// VoidReturns is the return descriptor of a function with no valued return.
const VoidReturns = "void"

// Param is a single positional-or-keyword parameter.
type Param struct {
	Name string
	Type string
}

// String renders the parameter as "name (type)".
func (p Param) String() string {
	return p.Name + " (" + p.Type + ")"
}

// FunctionFact describes a def or async def found in a file.
type FunctionFact struct {
	Name    string
	Scope   string
	Line    int
	Params  []Param
	Returns string
}

// Args renders the parameters in display form.
func (f FunctionFact) Args() []string {
	args := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		args = append(args, p.String())
	}
	return args
}

// ClassFact describes a class definition.
type ClassFact struct {
	Name  string
	Scope string
	Line  int
}

// CallFact is a call site: the innermost enclosing def/class name (or GlobalScope)
// and the callee, either a bare name or "receiver.attr".
type CallFact struct {
	Scope  string
	Target string
	Line   int
}

// FileFacts is everything extracted from one source file.
type FileFacts struct {
	Imports   []string
	Functions []FunctionFact
	Classes   []ClassFact
	Calls     []CallFact
}

// NewFileFacts returns an empty, non-nil bundle.
func NewFileFacts() *FileFacts {
	return &FileFacts{
		Imports:   []string{},
		Functions: []FunctionFact{},
		Classes:   []ClassFact{},
		Calls:     []CallFact{},
	}
}

// NewSyntaxErrorFacts returns the placeholder bundle for a file with a syntax error at line.
func NewSyntaxErrorFacts(line int) *FileFacts {
	facts := NewFileFacts()
	facts.Functions = append(facts.Functions, FunctionFact{
		Name:    SyntaxErrorName,
		Scope:   GlobalScope,
		Line:    line,
		Params:  []Param{{Name: "Line " + strconv.Itoa(line), Type: SyntaxErrorType}},
		Returns: SyntaxErrorReturns,
	})
	return facts
}

// Status classifies the outcome of parsing one file.
type Status string

const (
	StatusOK          Status = "ok"
	StatusSyntaxError Status = "syntax_error"
	StatusFailed      Status = "failed"
)

// FileResult is the per-file outcome. Facts is never nil.
type FileResult struct {
	Path   string
	Facts  *FileFacts
	Status Status
	Err    error
}
