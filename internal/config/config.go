// Package config provides configuration loading for umbra.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (UMBRA_*)
//  2. Project config (<root>/.umbra/config.yml)
//  3. Built-in defaults
//
// Nested fields use underscores in environment variables, e.g.
// UMBRA_SCAN_MAX_FILES or UMBRA_SERVER_ADDR.
package config

import (
	"time"

	"github.com/mvp-joe/umbra/internal/graph"
	"github.com/mvp-joe/umbra/internal/parsers"
	"github.com/mvp-joe/umbra/internal/scanner"
)

// StateDir is the per-project directory holding config and exported snapshots.
const StateDir = ".umbra"

// Config represents the complete umbra configuration.
type Config struct {
	Scan   ScanConfig   `yaml:"scan" mapstructure:"scan"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
}

// ScanConfig defines which files are analyzed.
type ScanConfig struct {
	Extensions       []string `yaml:"extensions" mapstructure:"extensions"`               // e.g. [".py"]
	IgnoreDirs       []string `yaml:"ignore_dirs" mapstructure:"ignore_dirs"`             // directory names never descended
	IgnorePatterns   []string `yaml:"ignore_patterns" mapstructure:"ignore_patterns"`     // glob patterns on relative paths
	RespectGitignore bool     `yaml:"respect_gitignore" mapstructure:"respect_gitignore"` // honor the root .gitignore
	MaxDepth         int      `yaml:"max_depth" mapstructure:"max_depth"`                 // 0 = unlimited
	MaxFiles         int      `yaml:"max_files" mapstructure:"max_files"`                 // 0 = unlimited
}

// ParseConfig bounds per-file parsing.
type ParseConfig struct {
	MaxFileSizeBytes int64         `yaml:"max_file_size_bytes" mapstructure:"max_file_size_bytes"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`     // per file
	MaxDepth         int           `yaml:"max_depth" mapstructure:"max_depth"` // syntax tree nesting
	Workers          int           `yaml:"workers" mapstructure:"workers"`     // 0 = GOMAXPROCS
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	Root string `yaml:"root" mapstructure:"root"` // codebase analyzed by /analyze
}

// ExportConfig defines where snapshots are written.
type ExportConfig struct {
	GraphDir   string `yaml:"graph_dir" mapstructure:"graph_dir"`     // JSON snapshot directory
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"` // empty disables SQLite export
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions:       append([]string{}, scanner.DefaultExtensions...),
			IgnoreDirs:       append([]string{}, scanner.DefaultIgnoreDirs...),
			IgnorePatterns:   []string{},
			RespectGitignore: false,
			MaxDepth:         0,
			MaxFiles:         0,
		},
		Parse: ParseConfig{
			MaxFileSizeBytes: parsers.DefaultMaxFileSize,
			Timeout:          parsers.DefaultParseTimeout,
			MaxDepth:         parsers.DefaultMaxDepth,
			Workers:          0,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
			Root: "codebase",
		},
		Export: ExportConfig{
			GraphDir:   StateDir,
			SQLitePath: "",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// ScannerOptions converts the scan section into scanner options.
func (c *Config) ScannerOptions() scanner.Options {
	return scanner.Options{
		Extensions:       c.Scan.Extensions,
		IgnoreDirs:       c.Scan.IgnoreDirs,
		IgnorePatterns:   c.Scan.IgnorePatterns,
		RespectGitignore: c.Scan.RespectGitignore,
		MaxDepth:         c.Scan.MaxDepth,
		MaxFiles:         c.Scan.MaxFiles,
	}
}

// ParserOptions converts the parse section into parser options.
func (c *Config) ParserOptions() []parsers.Option {
	return []parsers.Option{
		parsers.WithMaxFileSize(c.Parse.MaxFileSizeBytes),
		parsers.WithParseTimeout(c.Parse.Timeout),
		parsers.WithMaxDepth(c.Parse.MaxDepth),
	}
}

// BuilderOptions converts the parse section into graph builder options.
func (c *Config) BuilderOptions() []graph.BuilderOption {
	if c.Parse.Workers <= 0 {
		return nil
	}
	return []graph.BuilderOption{graph.WithWorkers(c.Parse.Workers)}
}
