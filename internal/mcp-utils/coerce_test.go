package mcputils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for CoerceBindArguments:
// - Properly typed arguments bind directly (MCP numbers arrive as float64)
// - String-encoded numbers, booleans and arrays are coerced
// - Missing arguments leave the target's preset values untouched
// - Unconvertible values are errors

type mockArgumentGetter struct {
	args map[string]any
}

func (m *mockArgumentGetter) GetArguments() map[string]any {
	return m.args
}

type graphArgs struct {
	Operation      string   `json:"operation"`
	Target         string   `json:"target"`
	Depth          int      `json:"depth"`
	IncludeContext bool     `json:"include_context"`
	Kinds          []string `json:"kinds"`
}

func TestCoerceBindArguments(t *testing.T) {
	t.Parallel()

	t.Run("proper types", func(t *testing.T) {
		var result graphArgs
		err := CoerceBindArguments(&mockArgumentGetter{args: map[string]any{
			"operation":       "callers",
			"target":          "a.py::foo",
			"depth":           float64(3),
			"include_context": true,
			"kinds":           []any{"function"},
		}}, &result)
		require.NoError(t, err)

		assert.Equal(t, graphArgs{
			Operation:      "callers",
			Target:         "a.py::foo",
			Depth:          3,
			IncludeContext: true,
			Kinds:          []string{"function"},
		}, result)
	})

	t.Run("string encoded values", func(t *testing.T) {
		var result graphArgs
		err := CoerceBindArguments(&mockArgumentGetter{args: map[string]any{
			"depth":           "2",
			"include_context": "false",
			"kinds":           `["function", "class"]`,
		}}, &result)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Depth)
		assert.False(t, result.IncludeContext)
		assert.Equal(t, []string{"function", "class"}, result.Kinds)
	})

	t.Run("missing keeps presets", func(t *testing.T) {
		result := graphArgs{Depth: 1, IncludeContext: true}
		err := CoerceBindArguments(&mockArgumentGetter{args: map[string]any{"target": "x"}}, &result)
		require.NoError(t, err)

		assert.Equal(t, "x", result.Target)
		assert.Equal(t, 1, result.Depth)
		assert.True(t, result.IncludeContext)
	})

	t.Run("invalid value", func(t *testing.T) {
		var result graphArgs
		err := CoerceBindArguments(&mockArgumentGetter{args: map[string]any{"depth": "deep"}}, &result)
		assert.Error(t, err)
	})
}
