package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Storage:
// - Save and load a snapshot with correct metadata
// - Load of a non-existent file returns nil without error
// - Atomic write leaves no temp file behind
// - Unknown snapshot versions are rejected

func TestStorage_SaveAndLoad(t *testing.T) {
	t.Parallel()

	graphDir := filepath.Join(t.TempDir(), "graph")
	storage, err := NewStorage(graphDir)
	require.NoError(t, err)
	assert.False(t, storage.Exists())

	snapshot := &Snapshot{
		Metadata: Metadata{SnapshotID: "abc", Root: "/src"},
		View: View{
			Nodes: []NodeView{
				{ID: "a.py", Kind: NodeFile, Label: "a.py", Args: []string{}},
				{ID: "a.py::foo", Kind: NodeFunction, Label: "foo", Args: []string{"x (int)"}, Returns: "x (dynamic)", ParentID: "a.py", Line: 1},
			},
			Edges: []EdgeView{
				{ID: "a.py::foo-a.py::foo", Source: "a.py::foo", Target: "a.py::foo", Label: "calls"},
			},
		},
	}

	require.NoError(t, storage.Save(snapshot))
	assert.True(t, storage.Exists())

	_, err = os.Stat(filepath.Join(graphDir, ".tmp", GraphFileName))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, GraphVersion, loaded.Metadata.Version)
	assert.Equal(t, "abc", loaded.Metadata.SnapshotID)
	assert.Equal(t, 2, loaded.Metadata.NodeCount)
	assert.Equal(t, 1, loaded.Metadata.EdgeCount)
	assert.Equal(t, snapshot.View, loaded.View)
}

func TestStorage_LoadMissing(t *testing.T) {
	t.Parallel()

	storage, err := NewStorage(filepath.Join(t.TempDir(), "graph"))
	require.NoError(t, err)

	loaded, err := storage.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStorage_RejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	graphDir := filepath.Join(t.TempDir(), "graph")
	storage, err := NewStorage(graphDir)
	require.NoError(t, err)

	data := `{"_metadata":{"version":"9.9"},"nodes":[],"edges":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(graphDir, GraphFileName), []byte(data), 0644))

	_, err = storage.Load()
	assert.Error(t, err)
}
