package parsers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for PythonParser:
// - Imports: plain, dotted, aliased, from-imports, relative with and without module, __future__
// - Functions: positional-or-keyword params only, annotation rendering, async defs
// - Return descriptors: void, literal, identifier, call, other, annotation override, nested scopes
// - Classes: plain and decorated, recorded with their line
// - Calls: bare names and name.attr recorded with the innermost scope; other receivers skipped
// - Decorators and defaults attributed to the definition's own scope
// - Syntax errors surface as *SyntaxError with the offending line, including
//   Python 2 print/exec statements and "except E, e:" that tree-sitter accepts
// - Size, encoding, depth, timeout and cancellation limits
// - ParseFile classifies OK, syntax error and failure outcomes

func parseSource(t *testing.T, src string) *FileFacts {
	t.Helper()
	facts, err := NewPythonParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotNil(t, facts)
	return facts
}

func findFunction(t *testing.T, facts *FileFacts, name string) FunctionFact {
	t.Helper()
	for _, fn := range facts.Functions {
		if fn.Name == name {
			return fn
		}
	}
	require.Failf(t, "function not found", "no function named %q", name)
	return FunctionFact{}
}

func TestPythonParser_Imports(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `from __future__ import annotations
import os, sys.path as sp
from collections import OrderedDict
from . import sibling
from .pkg.mod import thing
import os
`)

	assert.Equal(t, []string{"__future__", "os", "sys.path", "collections", "pkg.mod", "os"}, facts.Imports)
}

func TestPythonParser_FunctionParams(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `def add(a: int, b, c=3, d: str = "x", *args, e, **kw) -> int:
    return a

def pos(a, /, b, *, c):
    pass

def star(x, *args: int):
    pass
`)

	add := findFunction(t, facts, "add")
	assert.Equal(t, []string{"a (int)", "b (Any)", "c (Any)", "d (str)"}, add.Args())
	assert.Equal(t, "a (int)", add.Returns)
	assert.Equal(t, GlobalScope, add.Scope)
	assert.Equal(t, 1, add.Line)

	pos := findFunction(t, facts, "pos")
	assert.Equal(t, []string{"b (Any)"}, pos.Args())
	assert.Equal(t, 4, pos.Line)

	star := findFunction(t, facts, "star")
	assert.Equal(t, []string{"x (Any)"}, star.Args())
}

func TestPythonParser_AnnotationShapes(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `def typed(a: List[int], b: Optional["Node"], c: "Fwd", d: dict[str, int], e: int | None, f: typing.Any, g: 1):
    pass
`)

	typed := findFunction(t, facts, "typed")
	assert.Equal(t, []string{
		"a (List[int])",
		"b (Optional['Node'])",
		"c (Fwd)",
		"d (dict[str, int])",
		"e (int | None)",
		"f (typing.Any)",
		"g (1)",
	}, typed.Args())
}

func TestPythonParser_ReturnDescriptors(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `def nothing():
    pass

def bare():
    return

def five():
    return 5

def ident(x):
    return x

def overridden() -> str:
    return 5

def maybe(x):
    if x:
        return x
    return None

def built():
    return build()

def method_call(self):
    return self.build()

def computed(a, b):
    return a + b

def text():
    return "hi"

def ratio():
    return (1.5)

def flag():
    return True

def pair():
    return 1, 2

def outer():
    def inner():
        return 1
    return inner
`)

	cases := map[string]string{
		"nothing":     "void",
		"bare":        "void",
		"five":        "5 (int)",
		"ident":       "x (dynamic)",
		"overridden":  "5 (str)",
		"maybe":       "None (NoneType) | x (dynamic)",
		"built":       "build() (object)",
		"method_call": "call() (object)",
		"computed":    "result (Any)",
		"text":        "hi (str)",
		"ratio":       "1.5 (float)",
		"flag":        "True (bool)",
		"pair":        "result (Any)",
		"outer":       "1 (int) | inner (dynamic)",
		"inner":       "1 (int)",
	}
	for name, want := range cases {
		assert.Equal(t, want, findFunction(t, facts, name).Returns, "returns of %s", name)
	}
}

func TestPythonParser_ScopesAndCalls(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `import helpers

@decorate
def handler(x=default_value()):
    helpers.run(x)
    self.obj.method()
    (lambda: 0)()
    return process(x)

@dataclass
class Service(Base):
    def start(self):
        self.boot()
        log("started")

main()
`)

	handler := findFunction(t, facts, "handler")
	assert.Equal(t, GlobalScope, handler.Scope)
	assert.Equal(t, 4, handler.Line)

	start := findFunction(t, facts, "start")
	assert.Equal(t, "Service", start.Scope)
	assert.Equal(t, []string{"self (Any)"}, start.Args())

	require.Len(t, facts.Classes, 1)
	assert.Equal(t, ClassFact{Name: "Service", Scope: GlobalScope, Line: 11}, facts.Classes[0])

	got := make([][2]string, 0, len(facts.Calls))
	for _, c := range facts.Calls {
		got = append(got, [2]string{c.Scope, c.Target})
	}
	assert.Equal(t, [][2]string{
		{"handler", "default_value"},
		{"handler", "helpers.run"},
		{"handler", "process"},
		{"start", "self.boot"},
		{"start", "log"},
		{GlobalScope, "main"},
	}, got)
}

func TestPythonParser_DecoratorCallUsesDefinitionScope(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `class Api:
    @route("/x")
    def get(self):
        pass
`)

	require.Len(t, facts.Calls, 1)
	assert.Equal(t, CallFact{Scope: "get", Target: "route", Line: 2}, facts.Calls[0])
	assert.Equal(t, "Api", findFunction(t, facts, "get").Scope)
}

func TestPythonParser_AsyncFunction(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, `async def fetch(url):
    return await get(url)
`)

	fetch := findFunction(t, facts, "fetch")
	assert.Equal(t, []string{"url (Any)"}, fetch.Args())
	assert.Equal(t, "result (Any)", fetch.Returns)
	require.Len(t, facts.Calls, 1)
	assert.Equal(t, "fetch", facts.Calls[0].Scope)
	assert.Equal(t, "get", facts.Calls[0].Target)
}

func TestPythonParser_EmptySource(t *testing.T) {
	t.Parallel()

	facts := parseSource(t, "")
	assert.Empty(t, facts.Imports)
	assert.Empty(t, facts.Functions)
	assert.Empty(t, facts.Classes)
	assert.Empty(t, facts.Calls)
}

func TestPythonParser_SyntaxError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
	}{
		{"invalid assignment", "\n\nx = = 1\n", 3},
		{"print statement", "def f():\n    return 1\n\nprint \"hello\"\n", 4},
		{"print chevron", "import sys\nprint >> sys.stderr, \"x\"\n", 2},
		{"exec statement", "exec \"x = 1\"\n", 1},
		{"nested print statement", "class A:\n    def f(self):\n        print self\n", 3},
		{"except with comma target", "try:\n    pass\nexcept ValueError, e:\n    pass\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewPythonParser().Parse(context.Background(), []byte(tt.src))
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, tt.line, syntaxErr.Line)
		})
	}
}

func TestPythonParser_Python3FormsAreValid(t *testing.T) {
	t.Parallel()

	src := `def f(x):
    print("value", x)
    exec("y = 1")
    try:
        pass
    except (ValueError, TypeError) as e:
        pass
    except KeyError as e:
        pass
    except Exception:
        pass
`
	facts := parseSource(t, src)
	fn := findFunction(t, facts, "f")
	assert.Equal(t, 1, fn.Line)

	var targets []string
	for _, c := range facts.Calls {
		targets = append(targets, c.Target)
	}
	assert.Contains(t, targets, "print")
	assert.Contains(t, targets, "exec")
}

func TestPythonParser_Limits(t *testing.T) {
	t.Parallel()

	t.Run("file too large", func(t *testing.T) {
		t.Parallel()
		p := NewPythonParser(WithMaxFileSize(10))
		_, err := p.Parse(context.Background(), []byte("x = 1234567890\n"))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		t.Parallel()
		_, err := NewPythonParser().Parse(context.Background(), []byte{0xff, 0xfe, 0x00})
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("too deep", func(t *testing.T) {
		t.Parallel()
		p := NewPythonParser(WithMaxDepth(5))
		_, err := p.Parse(context.Background(), []byte("f(g(h(i(j(k())))))\n"))
		assert.ErrorIs(t, err, ErrTooDeep)
	})

	t.Run("parse timeout", func(t *testing.T) {
		t.Parallel()
		var src strings.Builder
		for i := range 20000 {
			fmt.Fprintf(&src, "def f_%d(a, b):\n    return g_%d(a) + b\n", i, i)
		}
		p := NewPythonParser(WithParseTimeout(time.Nanosecond))
		_, err := p.Parse(context.Background(), []byte(src.String()))
		assert.ErrorIs(t, err, ErrParseTimeout)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewPythonParser().Parse(ctx, []byte("x = 1\n"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPythonParser_ParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.py")
	bad := filepath.Join(dir, "bad.py")
	require.NoError(t, os.WriteFile(good, []byte("def ok():\n    return 1\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("\n\nx = = 1\n"), 0644))

	p := NewPythonParser()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		result := p.ParseFile(ctx, "good.py", good)
		assert.Equal(t, StatusOK, result.Status)
		assert.NoError(t, result.Err)
		require.Len(t, result.Facts.Functions, 1)
		assert.Equal(t, "1 (int)", result.Facts.Functions[0].Returns)
	})

	t.Run("syntax error placeholder", func(t *testing.T) {
		result := p.ParseFile(ctx, "bad.py", bad)
		assert.Equal(t, StatusSyntaxError, result.Status)
		require.Len(t, result.Facts.Functions, 1)

		placeholder := result.Facts.Functions[0]
		assert.Equal(t, SyntaxErrorName, placeholder.Name)
		assert.Equal(t, []string{"Line 3 (Error)"}, placeholder.Args())
		assert.Equal(t, SyntaxErrorReturns, placeholder.Returns)
		assert.Equal(t, GlobalScope, placeholder.Scope)
		assert.Equal(t, 3, placeholder.Line)
		assert.Empty(t, result.Facts.Calls)
	})

	t.Run("missing file", func(t *testing.T) {
		result := p.ParseFile(ctx, "gone.py", filepath.Join(dir, "gone.py"))
		assert.Equal(t, StatusFailed, result.Status)
		assert.Error(t, result.Err)
		require.NotNil(t, result.Facts)
		assert.Empty(t, result.Facts.Functions)
	})

	t.Run("oversized file", func(t *testing.T) {
		small := NewPythonParser(WithMaxFileSize(4))
		result := small.ParseFile(ctx, "good.py", good)
		assert.Equal(t, StatusFailed, result.Status)
		assert.ErrorIs(t, result.Err, ErrFileTooLarge)
	})
}
