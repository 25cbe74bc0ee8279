package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/config"
	"github.com/mvp-joe/workbench-context/internal/logging"
	"github.com/mvp-joe/workbench-context/internal/summary"
	"github.com/mvp-joe/workbench-context/internal/workbench"
)

// runtime is the loaded configuration and logger shared by every command.
type runtime struct {
	root string
	cfg  *config.Config
	log  *zap.Logger
}

// loadRuntime resolves the project root, loads configuration and builds the
// logger. When logFile is set and the config names no log file, logs go there
// instead of stderr.
func loadRuntime(logFile string) (*runtime, error) {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(root, cfgFile)
	} else {
		loader = config.NewLoader(root)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg.File == "" && logFile != "" {
		logCfg.File = filepath.Join(root, logFile)
	}
	log, err := logging.New(logCfg, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &runtime{root: root, cfg: cfg, log: log}, nil
}

func (r *runtime) openStore() (*workbench.DirStore, error) {
	store, err := workbench.NewDirStore(r.cfg.Workspace.Root, r.dirOptions())
	if err != nil {
		return nil, err
	}
	r.log.Debug("workspace loaded",
		zap.String("root", store.Root()),
		zap.Int("entries", store.Snapshot().Len()))
	return store, nil
}

func (r *runtime) dirOptions() workbench.DirOptions {
	return workbench.DirOptions{
		Ignore:       r.cfg.Workspace.Ignore,
		MaxFileBytes: r.cfg.Workspace.MaxFileBytes,
		Logger:       r.log.Named("workbench"),
	}
}

func (r *runtime) newExtractor() *summary.Extractor {
	return summary.NewExtractor(summary.ExtractorOptions{
		FileExcerptChars: r.cfg.Summary.FileExcerptChars,
		ProjectMaxFiles:  r.cfg.Summary.ProjectMaxFiles,
		Logger:           r.log.Named("extractor"),
	})
}

func (r *runtime) newUpdater(store workbench.Store, extractor summary.ContextExtractor, onUpdate func([]summary.Item)) *summary.Updater {
	return summary.NewUpdater(store, extractor, summary.UpdaterOptions{
		Debounce: r.cfg.DebounceInterval(),
		OnUpdate: onUpdate,
		Logger:   r.log.Named("updater"),
	})
}

// selectPath applies a --select flag value to store.
func selectPath(store *workbench.DirStore, path string) error {
	if path == "" {
		return nil
	}
	rel := path
	if filepath.IsAbs(path) {
		var err error
		if rel, err = filepath.Rel(store.Root(), path); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if _, ok := store.Snapshot().Lookup(rel); !ok {
		return fmt.Errorf("%s is not in the workspace", path)
	}
	store.Select(rel)
	return nil
}
