// Package daemon keeps long-running wbctx processes to one per project.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Singleton enforces a single running instance of a named process using an
// advisory file lock under the project state directory.
type Singleton struct {
	name     string
	lockPath string
	lock     *flock.Flock
}

// NewSingleton creates a singleton guard. The lock file is {dir}/{name}.lock.
func NewSingleton(name, dir string) *Singleton {
	return &Singleton{
		name:     name,
		lockPath: filepath.Join(dir, name+".lock"),
	}
}

// LockPath returns the lock file path.
func (s *Singleton) LockPath() string {
	return s.lockPath
}

// Acquire attempts to become the singleton instance.
// Returns (true, nil) if this process won and should continue.
// Returns (false, nil) if another instance holds the lock.
// Returns (false, err) on actual errors.
func (s *Singleton) Acquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire %s lock: %w", s.name, err)
	}
	if !locked {
		return false, nil
	}

	s.lock = lock
	return true, nil
}

// Release releases the lock (called on shutdown). Safe to call when the lock
// was never acquired.
func (s *Singleton) Release() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}
