// Package stats tracks purely observational byte counters for an open
// store: bytes logged to the WAL, bytes read back out of sealed runs, and
// bytes rewritten by flush and compaction. None of it feeds back into any
// correctness decision — it exists so callers can watch space and write
// amplification the way the original's WorkerStats/Stats pair did.
package stats

import "sync/atomic"

// Tracker holds the running counters for one open store. A nil *Tracker
// is safe to call every method on (all are no-ops), so components that
// accept an optional tracker don't need a nil check at every call site.
type Tracker struct {
	loggedBytes  atomic.Uint64
	readBytes    atomic.Uint64
	writtenBytes atomic.Uint64
}

// New returns a fresh, zeroed tracker.
func New() *Tracker {
	return &Tracker{}
}

// AddLogged records bytes appended to the write-ahead log.
func (t *Tracker) AddLogged(n uint64) {
	if t == nil {
		return
	}
	t.loggedBytes.Add(n)
}

// AddRead records value bytes returned from a successful Get.
func (t *Tracker) AddRead(n uint64) {
	if t == nil {
		return
	}
	t.readBytes.Add(n)
}

// AddWritten records bytes written while sealing a run, during either a
// flush or a compaction merge.
func (t *Tracker) AddWritten(n uint64) {
	if t == nil {
		return
	}
	t.writtenBytes.Add(n)
}

// Snapshot reports a point-in-time view of the tracked counters plus the
// caller-supplied resident (in-memory, unflushed) and on-disk byte
// totals, computing the derived amplification ratios from them.
//
// A nil *Tracker still returns the caller-supplied sizes with the byte
// counters and both ratios zeroed, so Stats() works even when a store
// was opened without a tracker.
func (t *Tracker) Snapshot(residentBytes, onDiskBytes uint64) Stats {
	s := Stats{ResidentBytes: residentBytes, OnDiskBytes: onDiskBytes}
	if t == nil {
		return s
	}

	s.LoggedBytes = t.loggedBytes.Load()
	s.ReadBytes = t.readBytes.Load()
	s.WrittenBytes = t.writtenBytes.Load()

	if residentBytes > 0 {
		s.SpaceAmp = float64(onDiskBytes) / float64(residentBytes)
	}
	if s.LoggedBytes > 0 {
		s.WriteAmp = float64(s.WrittenBytes) / float64(s.LoggedBytes)
	}
	return s
}

// Stats is an immutable snapshot of a store's byte counters and the
// space/write amplification derived from them.
type Stats struct {
	ResidentBytes uint64
	OnDiskBytes   uint64
	LoggedBytes   uint64
	ReadBytes     uint64
	WrittenBytes  uint64
	SpaceAmp      float64
	WriteAmp      float64
}
