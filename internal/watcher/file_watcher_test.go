package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with a valid directory
// - NewFileWatcher returns error with invalid directory
// - Single file change fires callback after debounce
// - Rapid changes are coalesced into a single callback
// - Pause/Resume behavior (accumulate during pause, fire on resume)
// - File deleted triggers callback
// - Directory added triggers recursive watch
// - Filter excludes paths from callbacks and from watching
// - Stop() and context cancellation end the watch goroutine
// - Concurrent Stop() calls are safe

const testDebounce = 50 * time.Millisecond

type recorder struct {
	mu     sync.Mutex
	calls  int
	paths  []string
	called chan struct{}
}

func newRecorder() *recorder {
	return &recorder{called: make(chan struct{}, 16)}
}

func (r *recorder) callback(paths []string) {
	r.mu.Lock()
	r.calls++
	r.paths = append(r.paths, paths...)
	r.mu.Unlock()
	r.called <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.called:
	case <-time.After(2 * time.Second):
		t.Fatal("Callback not called after timeout")
	}
}

func (r *recorder) snapshot() (int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, root string, opts Options) (FileWatcher, *recorder) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = testDebounce
	}
	fw, err := NewFileWatcher(root, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Stop() })

	rec := newRecorder()
	require.NoError(t, fw.Start(context.Background(), rec.callback))

	// Wait for watcher to initialize
	time.Sleep(50 * time.Millisecond)
	return fw, rec
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(t.TempDir(), Options{})
	require.NoError(t, err)
	require.NotNil(t, fw)
	require.NoError(t, fw.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "nonexistent"), Options{})
	assert.Error(t, err)
	assert.Nil(t, fw)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startWatcher(t, root, Options{})

	testFile := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0644))

	rec.wait(t)
	_, paths := rec.snapshot()
	assert.Contains(t, paths, testFile)
}

func TestFileWatcher_Debouncing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startWatcher(t, root, Options{Debounce: 150 * time.Millisecond})

	testFile := filepath.Join(root, "main.go")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte(strings.Repeat("x", i+1)), 0644))
		time.Sleep(30 * time.Millisecond)
	}

	rec.wait(t)
	time.Sleep(300 * time.Millisecond)

	calls, paths := rec.snapshot()
	assert.Equal(t, 1, calls, "Should have exactly one callback due to debouncing")
	assert.Equal(t, []string{testFile}, paths, "Same path is reported once per batch")
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fw, rec := startWatcher(t, root, Options{})

	fw.Pause()

	pausedFile := filepath.Join(root, "paused.go")
	require.NoError(t, os.WriteFile(pausedFile, []byte("package main"), 0644))

	time.Sleep(4 * testDebounce)
	calls, _ := rec.snapshot()
	assert.Equal(t, 0, calls, "No callbacks should fire while paused")

	fw.Resume()
	rec.wait(t)

	_, paths := rec.snapshot()
	assert.Contains(t, paths, pausedFile)
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testFile := filepath.Join(root, "gone.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0644))

	_, rec := startWatcher(t, root, Options{})
	require.NoError(t, os.Remove(testFile))

	rec.wait(t)
	_, paths := rec.snapshot()
	assert.Contains(t, paths, testFile)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, rec := startWatcher(t, root, Options{})

	subDir := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(subDir, 0755))
	rec.wait(t)

	// Give the watcher time to register the new directory
	time.Sleep(50 * time.Millisecond)

	nested := filepath.Join(subDir, "nested.go")
	require.NoError(t, os.WriteFile(nested, []byte("package pkg"), 0644))
	rec.wait(t)

	_, paths := rec.snapshot()
	assert.Contains(t, paths, subDir)
	assert.Contains(t, paths, nested)
}

func TestFileWatcher_Filter(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	filter := func(path string, isDir bool) bool {
		return !strings.HasSuffix(path, ".tmp")
	}
	_, rec := startWatcher(t, root, Options{Filter: filter})

	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0644))
	kept := filepath.Join(root, "kept.go")
	require.NoError(t, os.WriteFile(kept, []byte("package main"), 0644))

	rec.wait(t)
	_, paths := rec.snapshot()
	assert.Equal(t, []string{kept}, paths)
}

func TestFileWatcher_StopCleanup(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(t.TempDir(), Options{Debounce: testDebounce})
	require.NoError(t, err)
	require.NoError(t, fw.Start(context.Background(), func([]string) {}))

	done := make(chan struct{})
	go func() {
		_ = fw.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(t.TempDir(), Options{Debounce: testDebounce})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, fw.Start(ctx, func([]string) {}))
	cancel()

	select {
	case <-fw.(*fileWatcher).doneCh:
	case <-time.After(time.Second):
		t.Fatal("watch goroutine did not exit after cancel")
	}
	require.NoError(t, fw.Stop())
}

func TestFileWatcher_ConcurrentStop(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(t.TempDir(), Options{Debounce: testDebounce})
	require.NoError(t, err)
	require.NoError(t, fw.Start(context.Background(), func([]string) {}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fw.Stop()
		}()
	}
	wg.Wait()
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(t.TempDir(), Options{})
	require.NoError(t, err)
	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}
