package workbench

import "sync"

// MemoryStore is an in-process Store mutated directly by its owner.
// Paths enumerate in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	table *table
	subs  subscribers
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{table: newTable()}
}

// SetFile stores a text file record.
func (m *MemoryStore) SetFile(path, content string) {
	m.SetRecord(path, &Record{Kind: KindFile, Content: content})
}

// SetFolder stores a folder record.
func (m *MemoryStore) SetFolder(path string) {
	m.SetRecord(path, &Record{Kind: KindFolder})
}

// SetRecord stores r under path. A nil record is kept as-is so callers can
// model entries whose data has not loaded.
func (m *MemoryStore) SetRecord(path string, r *Record) {
	m.mu.Lock()
	m.table.set(path, r)
	m.mu.Unlock()
	m.subs.notify()
}

// Remove deletes path from the table. Removing an unknown path is a no-op
// and does not notify.
func (m *MemoryStore) Remove(path string) {
	m.mu.Lock()
	removed := m.table.remove(func(p string) bool { return p == path })
	m.mu.Unlock()
	if removed {
		m.subs.notify()
	}
}

// Select sets the active selection. An empty path clears it.
func (m *MemoryStore) Select(path string) {
	m.mu.Lock()
	changed := m.table.selected != path
	m.table.selected = path
	m.mu.Unlock()
	if changed {
		m.subs.notify()
	}
}

// Snapshot returns a copy of the current table.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.snapshot()
}

// Subscribe registers fn to run after every mutation.
func (m *MemoryStore) Subscribe(fn func()) func() {
	return m.subs.add(fn)
}
