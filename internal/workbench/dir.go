package workbench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/maypok86/otter"
	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/watcher"
)

// contentCacheBytes bounds the read-through content cache.
const contentCacheBytes = 64 << 20

// DirOptions configures a DirStore.
type DirOptions struct {
	Ignore       []string      // glob patterns relative to root, '/' separated
	MaxFileBytes int64         // larger files are recorded as binary without content; 0 means no limit
	Debounce     time.Duration // batching window for filesystem events
	Logger       *zap.Logger
}

// cachedContent is a file body keyed by the stat fields that invalidate it.
type cachedContent struct {
	size    int64
	modTime time.Time
	record  *Record
}

// DirStore mirrors a directory tree as a file table. Paths are slash
// separated and relative to the root; they enumerate in walk order, with
// files discovered later appended at the end.
type DirStore struct {
	root         string
	ignore       []glob.Glob
	maxFileBytes int64
	debounce     time.Duration
	log          *zap.Logger
	cache        otter.Cache[string, cachedContent]

	mu    sync.RWMutex
	table *table
	subs  subscribers

	watcher  watcher.FileWatcher
	stopOnce sync.Once
}

// NewDirStore loads the tree under root. Call Start to follow changes.
func NewDirStore(root string, opts DirOptions) (*DirStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", absRoot)
	}

	ignore := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignore = append(ignore, g)
	}

	cache, err := otter.MustBuilder[string, cachedContent](contentCacheBytes).
		Cost(func(key string, value cachedContent) uint32 {
			return uint32(len(key) + len(value.record.Content) + 1)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}

	s := &DirStore{
		root:         absRoot,
		ignore:       ignore,
		maxFileBytes: opts.MaxFileBytes,
		debounce:     opts.Debounce,
		log:          opts.Logger,
		cache:        cache,
		table:        newTable(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	if err := s.loadTree(absRoot, s.table); err != nil {
		cache.Close()
		return nil, err
	}

	return s, nil
}

// Root returns the absolute workspace root.
func (s *DirStore) Root() string {
	return s.root
}

// Start begins following filesystem changes until ctx is cancelled or Stop is called.
func (s *DirStore) Start(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.root, watcher.Options{
		Filter:   s.watchFilter,
		Debounce: s.debounce,
		Logger:   s.log,
	})
	if err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}
	s.watcher = fw
	return fw.Start(ctx, s.applyChanges)
}

// Stop stops watching and releases the content cache.
func (s *DirStore) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.watcher != nil {
			err = s.watcher.Stop()
		}
		s.cache.Close()
	})
	return err
}

// Reload rescans the whole tree into a fresh table and swaps it in once the
// scan succeeds. Readers keep seeing the old table until then, and a failed
// scan leaves it untouched. Filesystem events that arrive during the rescan
// are held back and applied afterwards.
func (s *DirStore) Reload() error {
	if s.watcher != nil {
		s.watcher.Pause()
		defer s.watcher.Resume()
	}

	fresh := newTable()
	if err := s.loadTree(s.root, fresh); err != nil {
		return err
	}

	s.mu.Lock()
	fresh.selected = s.table.selected
	s.table = fresh
	s.mu.Unlock()

	s.subs.notify()
	return nil
}

// Select sets the active selection to a root-relative path.
func (s *DirStore) Select(path string) {
	path = filepath.ToSlash(filepath.Clean(path))
	if path == "." {
		path = ""
	}

	s.mu.Lock()
	changed := s.table.selected != path
	s.table.selected = path
	s.mu.Unlock()
	if changed {
		s.subs.notify()
	}
}

// Snapshot returns a copy of the current table.
func (s *DirStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.snapshot()
}

// Subscribe registers fn to run after every table change.
func (s *DirStore) Subscribe(fn func()) func() {
	return s.subs.add(fn)
}

// applyChanges is the watcher callback: re-stat every changed path and
// update the table, then notify once for the batch.
func (s *DirStore) applyChanges(paths []string) {
	changed := false
	for _, abs := range paths {
		rel, ok := s.relative(abs)
		if !ok {
			continue
		}

		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			s.cache.Delete(rel)
			if s.removeTree(rel) {
				changed = true
			}
			continue
		}
		if err != nil {
			s.log.Warn("failed to stat changed path", zap.String("path", abs), zap.Error(err))
			continue
		}

		if info.IsDir() {
			if err := s.loadTree(abs, nil); err != nil {
				s.log.Warn("failed to load new directory", zap.String("path", abs), zap.Error(err))
			}
			changed = true
			continue
		}

		s.cache.Delete(rel)
		if record := s.loadFile(abs, info); record != nil {
			s.put(nil, rel, record)
		}
		changed = true
	}

	if changed {
		s.log.Debug("workspace changed", zap.Int("paths", len(paths)))
		s.subs.notify()
	}
}

// loadTree walks dir and records every entry that is not ignored into into.
// A nil into writes to the live table under the lock.
func (s *DirStore) loadTree(dir string, into *table) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.log.Warn("error accessing path", zap.String("path", path), zap.Error(err))
			return nil
		}

		rel, ok := s.relative(path)
		if !ok {
			// The root itself is not a table entry
			return nil
		}
		if s.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.put(into, rel, &Record{Kind: KindFolder})
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.log.Warn("failed to stat file", zap.String("path", path), zap.Error(err))
			return nil
		}
		if record := s.loadFile(path, info); record != nil {
			s.put(into, rel, record)
		}
		return nil
	})
}

// put records rel in into, or in the live table when into is nil.
func (s *DirStore) put(into *table, rel string, record *Record) {
	if into != nil {
		into.set(rel, record)
		return
	}
	s.mu.Lock()
	s.table.set(rel, record)
	s.mu.Unlock()
}

// loadFile builds the record for a single file, reading through the content
// cache. It returns nil when the file cannot be read.
func (s *DirStore) loadFile(abs string, info fs.FileInfo) *Record {
	rel, ok := s.relative(abs)
	if !ok {
		return nil
	}
	if cached, ok := s.cache.Get(rel); ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.record
	}

	record := &Record{Kind: KindFile}
	if s.maxFileBytes > 0 && info.Size() > s.maxFileBytes {
		record.IsBinary = true
	} else {
		data, err := os.ReadFile(abs)
		if err != nil {
			s.log.Warn("failed to read file", zap.String("path", abs), zap.Error(err))
			return nil
		}
		if isBinary(data) {
			record.IsBinary = true
		} else {
			record.Content = string(data)
		}
	}

	s.cache.Set(rel, cachedContent{size: info.Size(), modTime: info.ModTime(), record: record})
	return record
}

// removeTree drops rel and everything below it.
func (s *DirStore) removeTree(rel string) bool {
	prefix := rel + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.remove(func(p string) bool {
		return p == rel || strings.HasPrefix(p, prefix)
	})
}

func (s *DirStore) watchFilter(path string, isDir bool) bool {
	rel, ok := s.relative(path)
	if !ok {
		return true
	}
	return !s.ignored(rel)
}

// relative converts an absolute path below root into a table key.
func (s *DirStore) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ignored matches rel against the ignore patterns. A directory pattern like
// "vendor/**" also matches the directory entry "vendor" itself.
func (s *DirStore) ignored(rel string) bool {
	for _, g := range s.ignore {
		if g.Match(rel) || g.Match(rel+"/") {
			return true
		}
	}
	return false
}

// isBinary treats NUL bytes or invalid UTF-8 in the leading block as binary.
func isBinary(data []byte) bool {
	head := data
	truncated := len(head) > 8000
	if truncated {
		head = head[:8000]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	// The cut may split a trailing rune
	for i := 0; truncated && i < utf8.UTFMax-1 && !utf8.Valid(head); i++ {
		head = head[:len(head)-1]
	}
	return !utf8.Valid(head)
}
