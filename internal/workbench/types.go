// Package workbench holds the file table and active selection that context
// extraction reads from.
//
// Two stores are provided: MemoryStore, mutated directly by the caller, and
// DirStore, which mirrors a directory tree and follows it with fsnotify. Both
// satisfy Store, the only thing the summary package depends on.
package workbench

import "sync"

// Kind tags a file table entry.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Record is one entry in the file table. Records are never mutated after
// they are published in a snapshot; updates replace the pointer.
type Record struct {
	Kind     Kind
	Content  string
	IsBinary bool
}

// IsText reports whether the record is a file with readable text content.
func (r *Record) IsText() bool {
	return r != nil && r.Kind == KindFile && !r.IsBinary
}

// Snapshot is a point-in-time, read-only view of a store.
// Paths lists every key of Files in the store's enumeration order.
type Snapshot struct {
	Selected string
	Paths    []string
	Files    map[string]*Record
}

// Len returns the number of entries in the file table.
func (s Snapshot) Len() int {
	return len(s.Files)
}

// Lookup returns the record stored under path.
func (s Snapshot) Lookup(path string) (*Record, bool) {
	r, ok := s.Files[path]
	return r, ok
}

// Store is the read side of the workbench: a snapshot getter plus change
// notification. Subscribers are called after every mutation, outside any
// store lock, and must not block.
type Store interface {
	Snapshot() Snapshot
	Subscribe(fn func()) (unsubscribe func())
}

// table is the ordered file table shared by both store implementations.
// Callers hold their own lock.
type table struct {
	paths    []string
	files    map[string]*Record
	selected string
}

func newTable() *table {
	return &table{files: make(map[string]*Record)}
}

func (t *table) set(path string, r *Record) {
	if _, exists := t.files[path]; !exists {
		t.paths = append(t.paths, path)
	}
	t.files[path] = r
}

func (t *table) remove(match func(path string) bool) bool {
	removed := false
	kept := t.paths[:0]
	for _, p := range t.paths {
		if match(p) {
			delete(t.files, p)
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	t.paths = kept
	return removed
}

func (t *table) snapshot() Snapshot {
	paths := make([]string, len(t.paths))
	copy(paths, t.paths)

	files := make(map[string]*Record, len(t.files))
	for k, v := range t.files {
		files[k] = v
	}

	return Snapshot{
		Selected: t.selected,
		Paths:    paths,
		Files:    files,
	}
}

// subscribers is a set of change callbacks.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func (s *subscribers) add(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func())
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
