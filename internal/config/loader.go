package config

import (
	"errors"
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

// NewFileLoader creates a loader that reads an explicit config file instead
// of searching .wbctx/ under rootDir.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (WBCTX_*)
// 2. Config file (.wbctx/config.yml or .wbctx/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".wbctx"))
	}

	// Replace . with _ in env var names (e.g., WBCTX_SUMMARY_DEBOUNCE_MS)
	v.SetEnvPrefix("WBCTX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"summary.debounce_ms",
		"summary.file_excerpt_chars",
		"summary.project_max_files",
		"summary.prompt_excerpt_chars",
		"workspace.root",
		"workspace.max_file_bytes",
		"server.addr",
		"server.shutdown_timeout_s",
		"storage.db_path",
		"storage.history_limit",
		"logging.level",
		"logging.file",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	l.resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolvePaths anchors relative workspace and storage paths at the root directory.
func (l *loader) resolvePaths(cfg *Config) {
	if cfg.Workspace.Root != "" && !filepath.IsAbs(cfg.Workspace.Root) {
		cfg.Workspace.Root = filepath.Join(l.rootDir, cfg.Workspace.Root)
	}
	if cfg.Storage.DBPath != "" && cfg.Storage.DBPath != ":memory:" && !filepath.IsAbs(cfg.Storage.DBPath) {
		cfg.Storage.DBPath = filepath.Join(l.rootDir, cfg.Storage.DBPath)
	}
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("summary.debounce_ms", defaults.Summary.DebounceMS)
	v.SetDefault("summary.file_excerpt_chars", defaults.Summary.FileExcerptChars)
	v.SetDefault("summary.project_max_files", defaults.Summary.ProjectMaxFiles)
	v.SetDefault("summary.prompt_excerpt_chars", defaults.Summary.PromptExcerptChars)

	v.SetDefault("workspace.root", defaults.Workspace.Root)
	v.SetDefault("workspace.ignore", defaults.Workspace.Ignore)
	v.SetDefault("workspace.max_file_bytes", defaults.Workspace.MaxFileBytes)

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.shutdown_timeout_s", defaults.Server.ShutdownTimeoutS)

	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
	v.SetDefault("storage.history_limit", defaults.Storage.HistoryLimit)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
}
