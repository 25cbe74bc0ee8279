package watcher

import "context"

// FileWatcher monitors a directory tree for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced batches of changed paths.
	Start(ctx context.Context, callback func(paths []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Filter reports whether a path should be watched and reported.
// It is consulted for both directories and files.
type Filter func(path string, isDir bool) bool
