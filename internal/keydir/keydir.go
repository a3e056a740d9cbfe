// Package keydir is the in-memory key directory: the authoritative index
// mapping every live key to the (run, offset, size, timestamp) where its
// current value lives on disk. It is never persisted directly — it is
// rebuilt at open from hint files (or, failing that, by scanning sorted
// runs) and mutated only by flush and by post-compaction updates.
package keydir

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Entry is a directory entry: where a key's current record lives.
type Entry struct {
	RunID     uint64
	Offset    int64
	Size      int64
	Timestamp uint32
}

// Keydir is a concurrency-safe map from key bytes to Entry. Reads take
// the shared lock; mutation (Put/Remove) takes the exclusive lock — both
// are cheap, in-memory-only operations, so the lock is held only for the
// map access itself.
type Keydir struct {
	log     *zap.SugaredLogger
	entries map[string]Entry
	mu      sync.RWMutex
	closed  atomic.Bool
}

// New creates an empty key directory. Capacity is a hint for the number
// of live keys expected, used to size the backing map up front.
func New(log *zap.SugaredLogger, capacity int) *Keydir {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Keydir{log: log, entries: make(map[string]Entry, capacity)}
}

// Get returns the entry for key, if any.
func (k *Keydir) Get(key []byte) (Entry, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.entries[string(key)]
	return e, ok
}

// Put inserts or updates the entry for key. On update, the entry with the
// larger timestamp wins — this guards against hint/run scans applied out
// of strict chronological order during recovery.
func (k *Keydir) Put(key []byte, entry Entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	existing, ok := k.entries[string(key)]
	if ok && existing.Timestamp > entry.Timestamp {
		return
	}
	k.entries[string(key)] = entry
}

// Remove deletes the entry for key, if any. A no-op if the key is absent.
func (k *Keydir) Remove(key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, string(key))
}

// Contains reports whether key has a live entry.
func (k *Keydir) Contains(key []byte) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.entries[string(key)]
	return ok
}

// Len returns the number of live keys.
func (k *Keydir) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// Keys returns every live key, in unspecified order.
func (k *Keydir) Keys() [][]byte {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([][]byte, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, []byte(key))
	}
	return keys
}

// ForEach calls visit for every live entry under the read lock. visit
// must not call back into the Keydir — doing so deadlocks on the
// non-reentrant RWMutex.
func (k *Keydir) ForEach(visit func(key []byte, entry Entry)) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for key, entry := range k.entries {
		visit([]byte(key), entry)
	}
}

// DiskSize returns the sum of the on-disk byte sizes of every live entry.
func (k *Keydir) DiskSize() int64 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var total int64
	for _, e := range k.entries {
		total += e.Size
	}
	return total
}

// Close releases the directory's backing map. The Keydir is unusable
// after Close.
func (k *Keydir) Close() {
	if !k.closed.CompareAndSwap(false, true) {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	clear(k.entries)
	k.entries = nil
}
