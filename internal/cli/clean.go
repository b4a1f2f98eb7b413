package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/umbra/internal/config"
	"github.com/mvp-joe/umbra/internal/graph"
)

var cleanQuietFlag bool

var cleanCmd = &cobra.Command{
	Use:   "clean [root]",
	Short: "Remove exported graph snapshots",
	Long: `Clean removes the exported code-graph.json (and its temp directory) and,
when export.sqlite_path is configured, the SQLite database. The config file
in .umbra/ is left untouched.

Examples:
  umbra clean
  umbra clean ./myproject --quiet
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
}

func runClean(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	return executeClean(cmd.OutOrStdout(), root, cfg, cleanQuietFlag)
}

func executeClean(out io.Writer, root string, cfg *config.Config, quiet bool) error {
	graphDir := absUnder(root, cfg.Export.GraphDir)
	targets := []string{
		filepath.Join(graphDir, graph.GraphFileName),
		filepath.Join(graphDir, ".tmp"),
	}
	if cfg.Export.SQLitePath != "" {
		dbPath := absUnder(root, cfg.Export.SQLitePath)
		targets = append(targets, dbPath, dbPath+"-wal", dbPath+"-shm")
	}

	var removed int
	var totalSize int64
	for _, target := range targets {
		size, err := pathSize(target)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", target, err)
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to remove %s: %w", target, err)
		}
		removed++
		totalSize += size
	}

	if removed == 0 {
		infof(out, quiet, "No exported graph found in %s\n", root)
		return nil
	}
	infof(out, quiet, "✓ Cleaned %d export(s) (~%.1f KB)\n", removed, float64(totalSize)/1024)
	infof(out, quiet, "Next 'umbra analyze' will write a fresh snapshot\n")
	return nil
}

// pathSize returns the size of a file, or the total size of a directory tree.
func pathSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}

func absUnder(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
