package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/umbra/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "umbra",
	Short: "Umbra - structural graphs of Python codebases",
	Long: `Umbra scans a Python codebase, extracts its modules, classes and
functions with a tree-sitter parser, and links them into a graph of
containment and call edges.

The graph can be exported to JSON or SQLite, queried for callers and
callees, served over HTTP, or exposed to coding assistants over MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <root>/.umbra/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initLogging routes the standard logger to stderr so stdout stays
// reserved for command output.
func initLogging() {
	log.SetOutput(os.Stderr)
	if !verbose {
		log.SetFlags(0)
	}
}

// loadConfig reads the explicit --config file if given, otherwise
// <rootDir>/.umbra/config.yml layered over defaults and UMBRA_* variables.
func loadConfig(rootDir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfigFromDir(rootDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
	return cfg, nil
}

// resolveRoot returns the absolute form of the first positional argument,
// or the working directory when none is given.
func resolveRoot(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to resolve root %s: %w", args[0], err)
		}
		return abs, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// infof prints to w unless quiet is set.
func infof(w io.Writer, quiet bool, format string, args ...any) {
	if quiet {
		return
	}
	fmt.Fprintf(w, format, args...)
}
