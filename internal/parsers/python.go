package parsers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

const (
	// DefaultMaxFileSize is the largest source file the parser accepts.
	DefaultMaxFileSize int64 = 5 * 1024 * 1024

	// DefaultParseTimeout bounds the time tree-sitter may spend on one file.
	DefaultParseTimeout = 5 * time.Second

	// DefaultMaxDepth bounds syntax tree traversal depth.
	DefaultMaxDepth = 2000
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PythonParser extracts structural facts from Python source with tree-sitter.
// It is safe for concurrent use; each parse uses its own tree-sitter parser.
type PythonParser struct {
	language     *sitter.Language
	maxFileSize  int64
	parseTimeout time.Duration
	maxDepth     int
}

// Option configures a PythonParser.
type Option func(*PythonParser)

// WithMaxFileSize sets the maximum accepted file size in bytes.
func WithMaxFileSize(size int64) Option {
	return func(p *PythonParser) {
		if size > 0 {
			p.maxFileSize = size
		}
	}
}

// WithParseTimeout sets the per-file parse timeout. Zero disables it.
func WithParseTimeout(d time.Duration) Option {
	return func(p *PythonParser) {
		if d >= 0 {
			p.parseTimeout = d
		}
	}
}

// WithMaxDepth sets the maximum syntax tree depth the extractor will descend.
func WithMaxDepth(depth int) Option {
	return func(p *PythonParser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// NewPythonParser creates a new Python parser.
func NewPythonParser(opts ...Option) *PythonParser {
	p := &PythonParser{
		language:     sitter.NewLanguage(python.Language()),
		maxFileSize:  DefaultMaxFileSize,
		parseTimeout: DefaultParseTimeout,
		maxDepth:     DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts facts from Python source.
//
// Errors:
//   - *SyntaxError: the source is not valid Python
//   - ErrFileTooLarge, ErrInvalidEncoding, ErrParseTimeout, ErrTooDeep
//   - ctx.Err() if the context is cancelled while parsing
func (p *PythonParser) Parse(ctx context.Context, source []byte) (*FileFacts, error) {
	if int64(len(source)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(source), p.maxFileSize)
	}
	if !utf8.Valid(source) {
		return nil, ErrInvalidEncoding
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source = bytes.TrimPrefix(source, utf8BOM)

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set python language: %w", err)
	}

	var deadline time.Time
	if p.parseTimeout > 0 {
		deadline = time.Now().Add(p.parseTimeout)
	}
	timedOut := false

	length := len(source)
	tree := parser.ParseWithOptions(func(i int, _ sitter.Point) []byte {
		if i < length {
			return source[i:]
		}
		return []byte{}
	}, nil, &sitter.ParseOptions{
		ProgressCallback: func(sitter.ParseState) bool {
			if ctx.Err() != nil {
				return true
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				timedOut = true
				return true
			}
			return false
		},
	})
	if tree == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if timedOut {
			return nil, fmt.Errorf("%w after %s", ErrParseTimeout, p.parseTimeout)
		}
		return nil, errors.New("tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &SyntaxError{Line: firstErrorLine(root)}
	}
	if line, ok := legacySyntaxLine(root); ok {
		return nil, &SyntaxError{Line: line}
	}

	x := newExtractor(source, p.maxDepth)
	if err := x.visit(root, GlobalScope, 0); err != nil {
		return nil, err
	}
	return x.facts, nil
}

// ParseFile parses one file and classifies the outcome. It never fails the
// caller: syntax errors yield the placeholder bundle, anything else an empty one.
func (p *PythonParser) ParseFile(ctx context.Context, relPath, absPath string) (result FileResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedResult(relPath, fmt.Errorf("parser panic: %v", r))
		}
	}()

	info, err := os.Stat(absPath)
	if err != nil {
		return failedResult(relPath, err)
	}
	if info.Size() > p.maxFileSize {
		return failedResult(relPath, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, info.Size(), p.maxFileSize))
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		return failedResult(relPath, err)
	}

	facts, err := p.Parse(ctx, source)
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			return FileResult{
				Path:   relPath,
				Facts:  NewSyntaxErrorFacts(syntaxErr.Line),
				Status: StatusSyntaxError,
				Err:    err,
			}
		}
		return failedResult(relPath, err)
	}

	return FileResult{Path: relPath, Facts: facts, Status: StatusOK}
}

func failedResult(relPath string, err error) FileResult {
	return FileResult{
		Path:   relPath,
		Facts:  NewFileFacts(),
		Status: StatusFailed,
		Err:    err,
	}
}
