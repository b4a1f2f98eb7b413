package httpapi

// Test Plan for the HTTP API:
// - /health reports status and metrics
// - /analyze returns the view of the configured root; a missing root is an empty 200
// - /read-file returns {path, content}; 404 for NotFound, 400 without path
// - /graph/query validates parameters and maps unknown targets to 404
// - /metrics exposes Prometheus collectors
// - CORS headers are set and OPTIONS short-circuits

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/config"
	"github.com/mvp-joe/umbra/internal/graph"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, files map[string]string) (*gin.Engine, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "codebase")
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	svc, err := analysis.NewService(config.Default(), root)
	require.NoError(t, err)
	return NewRouter(svc, false), root
}

func get(t *testing.T, r *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var sampleFiles = map[string]string{
	"app.py":      "from models import save\n\ndef main():\n    save(1)\n",
	"models.py":   "def save(obj) -> bool:\n    return True\n",
	"venv/lib.py": "def hidden():\n    pass\n",
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, nil)
	w := get(t, r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Status)
	assert.Equal(t, "Umbra Core", resp.System)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, sampleFiles)
	w := get(t, r, "/analyze")
	require.Equal(t, http.StatusOK, w.Code)

	var view graph.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	ids := []string{}
	for _, n := range view.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"app.py", "app.py::main", "models.py", "models.py::save"}, ids)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, "app.py::main-models.py::save", view.Edges[0].ID)
	assert.Equal(t, "calls", view.Edges[0].Label)
	assert.Equal(t, "True (bool)", view.Nodes[3].Returns)
	assert.Equal(t, []string{"obj (Any)"}, view.Nodes[3].Args)
}

func TestAnalyze_MissingRoot(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, nil)
	w := get(t, r, "/analyze")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nodes": [], "edges": []}`, w.Body.String())
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, sampleFiles)

	w := get(t, r, "/read-file?path=models.py")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadFileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "models.py", resp.Path)
	assert.Equal(t, sampleFiles["models.py"], resp.Content)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/read-file?path=nope.py").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/read-file?path=../outside.py").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/read-file?path=venv").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/read-file").Code)
}

func TestGraphQuery(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, sampleFiles)
	require.Equal(t, http.StatusOK, get(t, r, "/analyze").Code)

	w := get(t, r, "/graph/query?operation=callers&target=save&include_context=true&context_lines=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp graph.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "app.py::main", resp.Results[0].Node.ID)
	assert.Contains(t, resp.Results[0].Context, "def main():")

	w = get(t, r, "/graph/query?operation=path&target=app.py::main&to=models.py::save")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/graph/query?target=nothing").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/graph/query?operation=impact&target=save").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/graph/query?target=save&depth=x").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/graph/query").Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, sampleFiles)
	require.Equal(t, http.StatusOK, get(t, r, "/analyze").Code)

	w := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "umbra_analyses_total")
	assert.Contains(t, w.Body.String(), "umbra_graph_nodes 4")
}

func TestCORS(t *testing.T) {
	t.Parallel()

	r, _ := setupRouter(t, nil)

	w := get(t, r, "/health")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
