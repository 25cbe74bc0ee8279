// Package config provides configuration loading for wbctx.
//
// Configuration is read from .wbctx/config.yml (or .yaml) under the project
// root, with WBCTX_* environment variables taking precedence over the file
// and built-in defaults filling anything left unset.
package config

import "time"

// Config represents the complete wbctx configuration.
type Config struct {
	Summary   SummaryConfig   `yaml:"summary" mapstructure:"summary"`
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// SummaryConfig tunes context extraction and the refresh debounce.
type SummaryConfig struct {
	DebounceMS         int `yaml:"debounce_ms" mapstructure:"debounce_ms"`                   // quiet period before a refresh runs
	FileExcerptChars   int `yaml:"file_excerpt_chars" mapstructure:"file_excerpt_chars"`     // active file excerpt length
	ProjectMaxFiles    int `yaml:"project_max_files" mapstructure:"project_max_files"`       // files listed in the project overview
	PromptExcerptChars int `yaml:"prompt_excerpt_chars" mapstructure:"prompt_excerpt_chars"` // active file excerpt length in rendered prompts
}

// WorkspaceConfig defines which directory backs the workbench store.
type WorkspaceConfig struct {
	Root         string   `yaml:"root" mapstructure:"root"`                     // directory to load and watch
	Ignore       []string `yaml:"ignore" mapstructure:"ignore"`                 // glob patterns to skip, relative to root
	MaxFileBytes int64    `yaml:"max_file_bytes" mapstructure:"max_file_bytes"` // larger files are recorded without content
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr             string `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_s" mapstructure:"shutdown_timeout_s"`
}

// StorageConfig configures the SQLite history database.
type StorageConfig struct {
	DBPath       string `yaml:"db_path" mapstructure:"db_path"`             // relative paths resolve against the project root
	HistoryLimit int    `yaml:"history_limit" mapstructure:"history_limit"` // published contexts to retain
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	File  string `yaml:"file" mapstructure:"file"`   // empty logs to stderr
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Summary: SummaryConfig{
			DebounceMS:         300,
			FileExcerptChars:   1500,
			ProjectMaxFiles:    15,
			PromptExcerptChars: 400,
		},
		Workspace: WorkspaceConfig{
			Root: ".",
			Ignore: []string{
				".git/**",
				".wbctx/**",
				"node_modules/**",
				"vendor/**",
				"dist/**",
				"build/**",
			},
			MaxFileBytes: 1 << 20,
		},
		Server: ServerConfig{
			Addr:             "127.0.0.1:7420",
			ShutdownTimeoutS: 10,
		},
		Storage: StorageConfig{
			DBPath:       ".wbctx/history.db",
			HistoryLimit: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DebounceInterval returns the configured quiet period as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Summary.DebounceMS) * time.Millisecond
}

// ShutdownTimeout returns the configured graceful shutdown window.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutS) * time.Second
}
