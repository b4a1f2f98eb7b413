// Package httpapi serves the analysis service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/graph"
)

// Service is the analysis surface the handlers depend on.
type Service interface {
	Root() string
	Analyze(ctx context.Context, rootPath string) (*graph.View, error)
	ReadSourceFile(relPath string) (string, error)
	Query(ctx context.Context, req *graph.QueryRequest) (*graph.QueryResponse, error)
	Metrics() analysis.MetricsSnapshot
	Gatherer() prometheus.Gatherer
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                   `json:"status"`
	System  string                   `json:"system"`
	Metrics analysis.MetricsSnapshot `json:"metrics"`
}

// ReadFileResponse is returned by GET /read-file.
type ReadFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ErrorResponse is returned on failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	svc Service
}

// NewHandlers creates handlers over svc.
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes adds all routes to r.
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	r.GET("/health", h.HandleHealth)
	r.GET("/analyze", h.HandleAnalyze)
	r.GET("/read-file", h.HandleReadFile)
	r.GET("/graph/query", h.HandleGraphQuery)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.svc.Gatherer(), promhttp.HandlerOpts{})))
}

// NewRouter builds the gin engine with recovery, CORS and all routes.
func NewRouter(svc Service, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	if debug {
		router.Use(gin.Logger())
	}
	RegisterRoutes(router, NewHandlers(svc))
	return router
}

// CORSMiddleware allows any origin, method and header.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HandleHealth reports that the service is up.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "active",
		System:  "Umbra Core",
		Metrics: h.svc.Metrics(),
	})
}

// HandleAnalyze rebuilds the graph of the configured root and returns its view.
// A missing root returns an empty view.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	view, err := h.svc.Analyze(c.Request.Context(), h.svc.Root())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleReadFile returns a file of the analyzed root.
func (h *Handlers) HandleReadFile(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "path is required"})
		return
	}

	content, err := h.svc.ReadSourceFile(path)
	if errors.Is(err, analysis.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "file not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ReadFileResponse{Path: path, Content: content})
}

// HandleGraphQuery runs a call-graph query:
// /graph/query?operation=callers&target=save&depth=2&max_results=50&include_context=true
func (h *Handlers) HandleGraphQuery(c *gin.Context) {
	req := &graph.QueryRequest{
		Operation: graph.QueryOperation(c.DefaultQuery("operation", string(graph.OperationCallers))),
		Target:    c.Query("target"),
		To:        c.Query("to"),
	}
	if req.Target == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "target is required"})
		return
	}

	var err error
	if req.Depth, err = intQuery(c, "depth"); err == nil {
		if req.MaxResults, err = intQuery(c, "max_results"); err == nil {
			req.ContextLines, err = intQuery(c, "context_lines")
		}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if v := c.Query("include_context"); v != "" {
		if req.IncludeContext, err = strconv.ParseBool(v); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "include_context must be a boolean"})
			return
		}
	}

	switch req.Operation {
	case graph.OperationCallers, graph.OperationCallees, graph.OperationPath:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "operation must be one of: callers, callees, path"})
		return
	}

	resp, err := h.svc.Query(c.Request.Context(), req)
	if errors.Is(err, graph.ErrUnknownTarget) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
