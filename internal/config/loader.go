package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead of
// searching <root>/.umbra.
func NewFileLoader(path string) Loader {
	return &loader{
		configFile: path,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (UMBRA_*)
// 2. Config file (.umbra/config.yml or .umbra/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, StateDir))
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("UMBRA")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., UMBRA_SCAN_MAX_FILES)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnvVars binds the scalar keys that can be overridden from the environment.
func bindEnvVars(v *viper.Viper) {
	// Scan configuration
	v.BindEnv("scan.respect_gitignore")
	v.BindEnv("scan.max_depth")
	v.BindEnv("scan.max_files")

	// Parse configuration
	v.BindEnv("parse.max_file_size_bytes")
	v.BindEnv("parse.timeout")
	v.BindEnv("parse.max_depth")
	v.BindEnv("parse.workers")

	// Server configuration
	v.BindEnv("server.addr")
	v.BindEnv("server.root")

	// Export configuration
	v.BindEnv("export.graph_dir")
	v.BindEnv("export.sqlite_path")

	// Watch configuration
	v.BindEnv("watch.debounce")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("scan.extensions", defaults.Scan.Extensions)
	v.SetDefault("scan.ignore_dirs", defaults.Scan.IgnoreDirs)
	v.SetDefault("scan.ignore_patterns", defaults.Scan.IgnorePatterns)
	v.SetDefault("scan.respect_gitignore", defaults.Scan.RespectGitignore)
	v.SetDefault("scan.max_depth", defaults.Scan.MaxDepth)
	v.SetDefault("scan.max_files", defaults.Scan.MaxFiles)

	v.SetDefault("parse.max_file_size_bytes", defaults.Parse.MaxFileSizeBytes)
	v.SetDefault("parse.timeout", defaults.Parse.Timeout)
	v.SetDefault("parse.max_depth", defaults.Parse.MaxDepth)
	v.SetDefault("parse.workers", defaults.Parse.Workers)

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.root", defaults.Server.Root)

	v.SetDefault("export.graph_dir", defaults.Export.GraphDir)
	v.SetDefault("export.sqlite_path", defaults.Export.SQLitePath)

	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
