package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// Service is everything the MCP tools need from the analysis layer.
type Service interface {
	Analyzer
	FileReader
	GraphQuerier
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	service Service
	mcp     *server.MCPServer
}

// NewMCPServer creates an MCP server exposing the umbra tools.
func NewMCPServer(service Service) (*MCPServer, error) {
	if service == nil {
		return nil, fmt.Errorf("analysis service is required")
	}

	mcpServer := server.NewMCPServer(
		"umbra",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	AddUmbraAnalyzeTool(mcpServer, service)
	AddUmbraReadFileTool(mcpServer, service)
	AddUmbraGraphTool(mcpServer, service)

	return &MCPServer{
		service: service,
		mcp:     mcpServer,
	}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
