package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/umbra/internal/analysis"
)

var readRoot string

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a source file of the codebase",
	Long: `Read prints a file by its path relative to the codebase root. Paths that
do not exist, name a directory, or resolve outside the root are reported as
not found.

Example:
  umbra read pkg/models.py --root ./myproject
`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringVar(&readRoot, "root", "", "Codebase root (default: working directory)")
}

func runRead(cmd *cobra.Command, args []string) error {
	rootArgs := []string{}
	if readRoot != "" {
		rootArgs = append(rootArgs, readRoot)
	}
	root, err := resolveRoot(rootArgs)
	if err != nil {
		return err
	}
	return executeRead(cmd.OutOrStdout(), root, args[0])
}

func executeRead(out io.Writer, root, relPath string) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	svc, err := analysis.NewService(cfg, root)
	if err != nil {
		return err
	}
	content, err := svc.ReadSourceFile(relPath)
	if err != nil {
		return fmt.Errorf("%s: %w", relPath, err)
	}
	_, err = io.WriteString(out, content)
	return err
}
