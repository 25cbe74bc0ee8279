package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidDebounce indicates a non-positive debounce interval
	ErrInvalidDebounce = errors.New("invalid debounce interval")

	// ErrInvalidLimit indicates a non-positive extraction or rendering limit
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidPattern indicates an ignore pattern that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrEmptyRoot indicates a missing workspace root
	ErrEmptyRoot = errors.New("empty workspace root")

	// ErrEmptyAddr indicates a missing server listen address
	ErrEmptyAddr = errors.New("empty server address")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidStorage indicates invalid storage configuration
	ErrInvalidStorage = errors.New("invalid storage settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateSummary(&cfg.Summary); err != nil {
		errs = append(errs, err)
	}
	if err := validateWorkspace(&cfg.Workspace); err != nil {
		errs = append(errs, err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateSummary(cfg *SummaryConfig) error {
	var errs []error

	if cfg.DebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.DebounceMS))
	}
	if cfg.FileExcerptChars <= 0 {
		errs = append(errs, fmt.Errorf("%w: file_excerpt_chars must be positive, got %d", ErrInvalidLimit, cfg.FileExcerptChars))
	}
	if cfg.ProjectMaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("%w: project_max_files must be positive, got %d", ErrInvalidLimit, cfg.ProjectMaxFiles))
	}
	if cfg.PromptExcerptChars <= 0 {
		errs = append(errs, fmt.Errorf("%w: prompt_excerpt_chars must be positive, got %d", ErrInvalidLimit, cfg.PromptExcerptChars))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateWorkspace(cfg *WorkspaceConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Root) == "" {
		errs = append(errs, fmt.Errorf("%w: root is required", ErrEmptyRoot))
	}

	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	// Zero means no size limit
	if cfg.MaxFileBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_bytes cannot be negative, got %d", ErrInvalidLimit, cfg.MaxFileBytes))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Addr) == "" {
		errs = append(errs, fmt.Errorf("%w: addr is required", ErrEmptyAddr))
	}
	if cfg.ShutdownTimeoutS < 0 {
		errs = append(errs, fmt.Errorf("%w: shutdown_timeout_s cannot be negative, got %d", ErrInvalidLimit, cfg.ShutdownTimeoutS))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStorage(cfg *StorageConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%w: db_path is required", ErrInvalidStorage))
	}

	// Zero disables trimming
	if cfg.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: history_limit cannot be negative, got %d", ErrInvalidStorage, cfg.HistoryLimit))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("%w: must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, cfg.Level)
	}
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches each wrapped sentinel via errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
