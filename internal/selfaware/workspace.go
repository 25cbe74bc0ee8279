package selfaware

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/git"
	"github.com/mvp-joe/workbench-context/internal/storage"
	"github.com/mvp-joe/workbench-context/internal/summary"
	"github.com/mvp-joe/workbench-context/internal/workbench"
)

// CapabilityLedger records implement-capability requests.
// *storage.History satisfies it.
type CapabilityLedger interface {
	RecordCapability(ctx context.Context, name string) (*storage.Capability, error)
	Capabilities(ctx context.Context) ([]storage.Capability, error)
}

// WorkspaceOptions configures a Workspace.
type WorkspaceOptions struct {
	Root      string
	Dir       workbench.DirOptions
	Store     *workbench.DirStore // already opened store to share; nil opens Root on demand
	Extractor *summary.Extractor
	Ledger    CapabilityLedger // nil disables implement-capability
	Git       git.Inspector    // nil omits repository facts from the status
	Logger    *zap.Logger
}

// Workspace is the default Service. It serves the project directory as a
// workbench and keeps a ledger of requested capabilities; it does not act
// on those requests.
type Workspace struct {
	opts WorkspaceOptions
	log  *zap.Logger

	mu          sync.Mutex
	initialized bool
	store       *workbench.DirStore
	ownsStore   bool
}

// NewWorkspace creates a Workspace.
func NewWorkspace(opts WorkspaceOptions) *Workspace {
	if opts.Extractor == nil {
		opts.Extractor = summary.NewExtractor(summary.ExtractorOptions{Logger: opts.Logger})
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Store != nil && opts.Root == "" {
		opts.Root = opts.Store.Root()
	}
	return &Workspace{opts: opts, log: log, store: opts.Store}
}

// Initialize implements Service.
func (w *Workspace) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.initialized {
		return nil
	}
	if w.opts.Root == "" {
		return fmt.Errorf("workspace root is not configured")
	}
	w.initialized = true
	w.log.Debug("self-awareness service initialized", zap.String("root", w.opts.Root))
	return nil
}

// GetStatus implements Service.
func (w *Workspace) GetStatus(ctx context.Context) (*Status, error) {
	w.mu.Lock()
	status := &Status{
		Initialized:   w.initialized,
		Root:          w.opts.Root,
		WorkspaceOpen: w.store != nil,
		Capabilities:  []string{},
	}
	if w.store != nil {
		status.Root = w.store.Root()
		status.FileCount = countFiles(w.store.Snapshot())
	}
	w.mu.Unlock()

	if w.opts.Git != nil && status.Root != "" {
		info := w.opts.Git.Inspect(ctx, status.Root)
		status.Git = &info
	}

	if w.opts.Ledger != nil {
		caps, err := w.opts.Ledger.Capabilities(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read capability ledger: %w", err)
		}
		status.Capabilities = lo.Map(caps, func(c storage.Capability, _ int) string {
			return c.Name
		})
	}

	return status, nil
}

// OpenSourceWorkspace implements Service. Opening an already open workspace
// reloads it from disk.
func (w *Workspace) OpenSourceWorkspace(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reopened := w.store != nil
	store, err := w.openLocked()
	if err != nil {
		return nil, err
	}
	if reopened {
		if err := store.Reload(); err != nil {
			return nil, fmt.Errorf("failed to reload workspace: %w", err)
		}
	}

	files := countFiles(store.Snapshot())
	message := "workspace opened"
	if reopened {
		message = "workspace reloaded"
	}
	w.log.Info(message, zap.String("root", store.Root()), zap.Int("files", files))

	return &Result{
		Success: true,
		Message: message,
		Data: map[string]any{
			"root":  store.Root(),
			"files": files,
		},
	}, nil
}

// ImplementCapability implements Service. The request is recorded as queued.
func (w *Workspace) ImplementCapability(ctx context.Context, name string) (*Result, error) {
	if w.opts.Ledger == nil {
		return &Result{Success: false, Message: "no capability ledger configured"}, nil
	}

	capability, err := w.opts.Ledger.RecordCapability(ctx, name)
	if err != nil {
		return nil, err
	}
	w.log.Info("capability requested", zap.String("capability", name), zap.Int("requests", capability.RequestCount))

	return &Result{
		Success: true,
		Message: fmt.Sprintf("capability %q queued", name),
		Data: map[string]any{
			"capability":   capability.Name,
			"status":       capability.Status,
			"requestCount": capability.RequestCount,
		},
	}, nil
}

// AnalyzeSource implements Service. A non-empty path selects that file first;
// an unknown path is reported as an unsuccessful result.
func (w *Workspace) AnalyzeSource(ctx context.Context, relPath string) (*Result, error) {
	w.mu.Lock()
	store, err := w.openLocked()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Extraction runs on one snapshot so a concurrent Select cannot swap the
	// analyzed file; the shared selection still follows the request.
	snap := store.Snapshot()
	if relPath != "" {
		clean := strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), "./")
		if _, ok := snap.Lookup(clean); !ok {
			return &Result{Success: false, Message: fmt.Sprintf("path %q not found in workspace", relPath)}, nil
		}
		snap.Selected = clean
		store.Select(clean)
	}

	items := w.opts.Extractor.Extract(snap)
	return &Result{
		Success: true,
		Message: fmt.Sprintf("analyzed %d context items", len(items)),
		Data: map[string]any{
			"items":  items,
			"prompt": summary.Render(items),
		},
	}, nil
}

// Close stops a store opened by the workspace. Shared stores are left running.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.store == nil || !w.ownsStore {
		return nil
	}
	err := w.store.Stop()
	w.store = nil
	return err
}

func (w *Workspace) openLocked() (*workbench.DirStore, error) {
	if w.store != nil {
		return w.store, nil
	}
	store, err := workbench.NewDirStore(w.opts.Root, w.opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	w.store = store
	w.ownsStore = true
	return store, nil
}

func countFiles(snap workbench.Snapshot) int {
	return lo.CountBy(lo.Values(snap.Files), func(r *workbench.Record) bool {
		return r != nil && r.Kind == workbench.KindFile
	})
}
