package parsers

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned when a source file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidEncoding is returned for sources that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("source is not valid UTF-8")

	// ErrParseTimeout is returned when tree-sitter does not finish within the parse timeout.
	ErrParseTimeout = errors.New("parse timed out")

	// ErrTooDeep is returned when the syntax tree nests deeper than the traversal limit.
	ErrTooDeep = errors.New("syntax tree too deep")
)

// SyntaxError reports that the source is not valid Python.
type SyntaxError struct {
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d", e.Line)
}
