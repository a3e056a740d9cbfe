// Package memtable is the in-memory mirror of the write-ahead log: every
// record appended to the WAL is also placed here, keyed by its key bytes,
// so that a read can be answered without touching disk until the next
// flush seals the memtable into a sorted run.
package memtable

import (
	"sort"
	"sync"

	"github.com/ignite-kv/ignite/internal/record"
)

// Memtable is an ordered map of unflushed mutations. It is not a range
// index — spec.md scopes this store to point lookups, so a plain Go map
// plus a sort-at-flush-time pass over its keys is sufficient; the ordered
// traversal only needs to happen when sealing a run, not on every write.
type Memtable struct {
	mu      sync.RWMutex
	entries map[string]record.Data
}

// New creates an empty memtable.
func New() *Memtable {
	return &Memtable{entries: make(map[string]record.Data)}
}

// Apply records rec in the memtable, overwriting any prior entry for the
// same key unconditionally — the caller (the engine, replaying the WAL in
// order, or appending a new write) is responsible for only ever calling
// Apply with monotonically non-decreasing timestamps per key.
func (m *Memtable) Apply(rec record.Data) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[string(rec.Key)] = rec
}

// Get returns the record for key, if present.
func (m *Memtable) Get(key []byte) (record.Data, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.entries[string(key)]
	return rec, ok
}

// Len returns the number of entries currently buffered.
func (m *Memtable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// SortedEntries returns every buffered record in ascending key order, the
// shape a flush needs to write a valid sorted run. Tombstones are
// included; the flush path decides whether to keep or drop them.
func (m *Memtable) SortedEntries() []record.Data {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]record.Data, 0, len(m.entries))
	for _, rec := range m.entries {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Key) < string(out[j].Key)
	})
	return out
}

// Reset clears every buffered entry. Called once a flush has durably
// sealed them into a sorted run and truncated the WAL.
func (m *Memtable) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}
