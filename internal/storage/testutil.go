package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestHistory creates an in-memory history database for testing.
// Cleanup is registered with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    h := storage.NewTestHistory(t, 0)
//	    // ... test code ...
//	}
func NewTestHistory(t testing.TB, limit int) *History {
	t.Helper()

	h, err := Open(":memory:", limit)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	return h
}

// NewTestHistoryFile creates a file-based history database in t.TempDir().
// Use this when a test needs persistence across connections.
func NewTestHistoryFile(t testing.TB, limit int) (*History, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	h, err := Open(path, limit)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	return h, path
}
