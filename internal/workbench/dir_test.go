package workbench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for DirStore:
// - Initial load records folders and files in walk order, relative and slash separated
// - Ignore patterns skip directories and files
// - Oversized and binary files are recorded without content
// - Select normalizes paths and notifies only on change
// - Created, modified and removed files update the table and notify
// - Removing a directory drops its subtree
// - Reload picks up changes and keeps the selection
// - Concurrent readers never see a partial table during Reload
// - A failed Reload leaves the table untouched
// - Invalid root and invalid pattern are errors

func newTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "lib"), 0755))
	writeFile(t, filepath.Join(root, "README.md"), "# demo")
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")
	writeFile(t, filepath.Join(root, "node_modules", "lib", "index.js"), "module.exports = {}")
	return root
}

func waitForChange(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("store did not notify")
	}
}

func TestDirStore_InitialLoad(t *testing.T) {
	root := newTestTree(t)

	s, err := NewDirStore(root, DirOptions{Ignore: []string{"node_modules/**"}})
	require.NoError(t, err)
	defer s.Stop()

	snap := s.Snapshot()
	assert.Equal(t, []string{"README.md", "src", "src/main.go"}, snap.Paths)

	r, ok := snap.Lookup("src/main.go")
	require.True(t, ok)
	assert.Equal(t, KindFile, r.Kind)
	assert.Equal(t, "package main", r.Content)

	folder, ok := snap.Lookup("src")
	require.True(t, ok)
	assert.Equal(t, KindFolder, folder.Kind)

	_, ok = snap.Lookup("node_modules")
	assert.False(t, ok)
}

func TestDirStore_BinaryAndOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blob.bin"), "ab\x00cd")
	writeFile(t, filepath.Join(root, "big.txt"), "0123456789")
	writeFile(t, filepath.Join(root, "small.txt"), "ok")

	s, err := NewDirStore(root, DirOptions{MaxFileBytes: 5})
	require.NoError(t, err)
	defer s.Stop()

	snap := s.Snapshot()
	blob, _ := snap.Lookup("blob.bin")
	assert.True(t, blob.IsBinary)
	big, _ := snap.Lookup("big.txt")
	assert.True(t, big.IsBinary)
	assert.Empty(t, big.Content)
	small, _ := snap.Lookup("small.txt")
	assert.True(t, small.IsText())
}

func TestDirStore_Select(t *testing.T) {
	root := newTestTree(t)
	s, err := NewDirStore(root, DirOptions{})
	require.NoError(t, err)
	defer s.Stop()

	count := 0
	s.Subscribe(func() { count++ })

	s.Select("./src/main.go")
	assert.Equal(t, "src/main.go", s.Snapshot().Selected)
	s.Select("src/main.go")
	assert.Equal(t, 1, count)

	s.Select(".")
	assert.Equal(t, "", s.Snapshot().Selected)
	assert.Equal(t, 2, count)
}

func TestDirStore_FollowsChanges(t *testing.T) {
	root := newTestTree(t)
	s, err := NewDirStore(root, DirOptions{
		Ignore:   []string{"node_modules/**"},
		Debounce: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	defer s.Stop()

	changed := make(chan struct{}, 16)
	s.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	// Create
	writeFile(t, filepath.Join(root, "src", "util.go"), "package main // util")
	waitForChange(t, changed)
	require.Eventually(t, func() bool {
		r, _ := s.Snapshot().Lookup("src/util.go")
		return r != nil && r.Content == "package main // util"
	}, 2*time.Second, 20*time.Millisecond)
	paths := s.Snapshot().Paths
	assert.Equal(t, "src/util.go", paths[len(paths)-1])

	// Modify
	writeFile(t, filepath.Join(root, "README.md"), "# changed")
	require.Eventually(t, func() bool {
		r, _ := s.Snapshot().Lookup("README.md")
		return r != nil && r.Content == "# changed"
	}, 2*time.Second, 20*time.Millisecond)

	// Remove directory drops subtree
	require.NoError(t, os.RemoveAll(filepath.Join(root, "src")))
	require.Eventually(t, func() bool {
		_, ok := s.Snapshot().Lookup("src/main.go")
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
	_, ok := s.Snapshot().Lookup("src")
	assert.False(t, ok)

	// Ignored paths do not show up
	writeFile(t, filepath.Join(root, "node_modules", "lib", "other.js"), "x")
	time.Sleep(150 * time.Millisecond)
	_, ok = s.Snapshot().Lookup("node_modules/lib/other.js")
	assert.False(t, ok)
}

func TestDirStore_Reload(t *testing.T) {
	root := newTestTree(t)
	s, err := NewDirStore(root, DirOptions{})
	require.NoError(t, err)
	defer s.Stop()

	s.Select("src/main.go")
	writeFile(t, filepath.Join(root, "added.txt"), "late")

	require.NoError(t, s.Reload())

	snap := s.Snapshot()
	assert.Equal(t, "src/main.go", snap.Selected)
	_, ok := snap.Lookup("added.txt")
	assert.True(t, ok)
}

func TestDirStore_ReloadSwapsWholeTable(t *testing.T) {
	root := t.TempDir()
	const files = 500
	for i := 0; i < files; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%03d.txt", i)), "x")
	}

	s, err := NewDirStore(root, DirOptions{})
	require.NoError(t, err)
	defer s.Stop()
	require.Equal(t, files, s.Snapshot().Len())

	done := make(chan struct{})
	smallest := make(chan int, 1)
	go func() {
		minLen := files
		for {
			select {
			case <-done:
				smallest <- minLen
				return
			default:
			}
			if n := s.Snapshot().Len(); n < minLen {
				minLen = n
			}
		}
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Reload())
	}
	close(done)

	assert.Equal(t, files, <-smallest, "readers saw a partial table while reloading")
	assert.Equal(t, files, s.Snapshot().Len())
}

func TestDirStore_FailedReloadKeepsTable(t *testing.T) {
	root := newTestTree(t)
	s, err := NewDirStore(root, DirOptions{})
	require.NoError(t, err)
	defer s.Stop()

	before := s.Snapshot()
	require.NoError(t, os.RemoveAll(root))

	assert.Error(t, s.Reload())
	assert.Equal(t, before.Paths, s.Snapshot().Paths)
}

func TestNewDirStore_Errors(t *testing.T) {
	_, err := NewDirStore(filepath.Join(t.TempDir(), "missing"), DirOptions{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	_, err = NewDirStore(file, DirOptions{})
	assert.Error(t, err)

	_, err = NewDirStore(t.TempDir(), DirOptions{Ignore: []string{"[bad"}})
	assert.Error(t, err)
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text")))
	assert.False(t, isBinary([]byte("héllo")))
	assert.True(t, isBinary([]byte{'a', 0, 'b'}))
	assert.True(t, isBinary([]byte{0xff, 0xfe, 0xfd}))
}
