package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/umbra/internal/analysis"
	"github.com/mvp-joe/umbra/internal/mcp"
)

var mcpRoot string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for code graph tools",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
analyze the codebase, read its files and query its call graph.

The MCP server:
- Provides umbra_analyze, umbra_read_file and umbra_graph tools
- Analyzes the codebase root (default: working directory)
- Communicates via stdio (standard MCP transport)

Example:
  umbra mcp --root ./myproject`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpRoot, "root", "", "Codebase root (default: working directory)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	rootArgs := []string{}
	if mcpRoot != "" {
		rootArgs = append(rootArgs, mcpRoot)
	}
	root, err := resolveRoot(rootArgs)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	svc, err := analysis.NewService(cfg, root)
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol
	fmt.Fprintf(os.Stderr, "Umbra MCP Server\n")
	fmt.Fprintf(os.Stderr, "Codebase Root: %s\n\n", root)

	server, err := mcp.NewMCPServer(svc)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Serve(cmd.Context())
}
