package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a file watcher.
type Options struct {
	Filter   Filter        // nil watches everything
	Debounce time.Duration // quiet period before firing callback
	Logger   *zap.Logger
}

// fileWatcher implements FileWatcher interface.
type fileWatcher struct {
	watcher       *fsnotify.Watcher
	root          string               // Directory tree being watched
	filter        Filter               // Paths to skip
	debounceTime  time.Duration        // Quiet period before firing callback
	callback      func(paths []string) // Callback to invoke with changed paths
	log           *zap.Logger
	ctx           context.Context    // Context for lifecycle management
	cancel        context.CancelFunc // Cancel function for internal context
	paused        bool               // Whether watching is paused
	pausedMu      sync.RWMutex       // Protects paused flag
	accumulated   map[string]bool    // Accumulated path changes
	accumulatedMu sync.Mutex         // Protects accumulated map
	debounceTimer *time.Timer        // Current debounce timer
	timerMu       sync.Mutex         // Protects debounce timer
	stopOnce      sync.Once          // Ensures Stop() is idempotent
	doneCh        chan struct{}      // Signals watch goroutine has finished
}

// NewFileWatcher creates a new file watcher for root and every directory below it.
func NewFileWatcher(root string, opts Options) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		watcher:      watcher,
		root:         root,
		filter:       opts.Filter,
		debounceTime: opts.Debounce,
		log:          opts.Logger,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	if fw.debounceTime <= 0 {
		fw.debounceTime = DefaultDebounce
	}
	if fw.log == nil {
		fw.log = zap.NewNop()
	}

	if err := fw.addDirectoriesRecursively(root); err != nil {
		watcher.Close()
		return nil, err
	}

	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(paths []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			// Never started, close doneCh manually
			close(fw.doneCh)
		}

		err = fw.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating events.
func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		fw.flush()
	}
}

// watch is the main event loop.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	flushCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			isDir := false
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					isDir = true
				}
			}

			if !fw.shouldProcessEvent(event, isDir) {
				continue
			}

			// New directories need their own watches; files created inside
			// before the watch lands are picked up by the caller's rescan
			if isDir {
				if err := fw.addDirectoriesRecursively(event.Name); err != nil {
					fw.log.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
				}
			}

			fw.accumulatedMu.Lock()
			fw.accumulated[event.Name] = true
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(flushCh)

		case <-flushCh:
			fw.handleDebounceExpired()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

// handleDebounceExpired is called when the debounce timer expires.
func (fw *fileWatcher) handleDebounceExpired() {
	fw.pausedMu.RLock()
	paused := fw.paused
	fw.pausedMu.RUnlock()

	if paused {
		// Keep accumulating until Resume
		return
	}

	fw.flush()
}

// flush hands accumulated paths to the callback and clears them.
func (fw *fileWatcher) flush() {
	fw.accumulatedMu.Lock()
	if len(fw.accumulated) == 0 {
		fw.accumulatedMu.Unlock()
		return
	}

	paths := make([]string, 0, len(fw.accumulated))
	for path := range fw.accumulated {
		paths = append(paths, path)
	}
	fw.accumulated = make(map[string]bool)
	fw.accumulatedMu.Unlock()

	if fw.callback != nil {
		fw.callback(paths)
	}
}

// resetDebounceTimer resets the debounce timer, properly stopping the old one.
func (fw *fileWatcher) resetDebounceTimer(flushCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		// Non-blocking: one pending flush is enough
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// shouldProcessEvent checks whether an event changes the tree and passes the filter.
func (fw *fileWatcher) shouldProcessEvent(event fsnotify.Event, isDir bool) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	if fw.filter == nil {
		return true
	}
	return fw.filter(event.Name, isDir)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// If it's the root path, fail immediately
			if path == rootPath {
				return err
			}
			fw.log.Warn("error accessing path", zap.String("path", path), zap.Error(err))
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if path != fw.root && fw.filter != nil && !fw.filter(path, true) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			fw.log.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
		}

		return nil
	})
}
