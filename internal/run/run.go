// Package run implements the sorted run and its sibling hint file: the
// immutable, on-disk output of a flush or a compaction, plus the forward
// iterators the recovery procedure and the compaction worker both need —
// including the merge iterator that drives compaction itself.
package run

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/ignite-kv/ignite/internal/logfile"
	"github.com/ignite-kv/ignite/internal/record"
	"github.com/ignite-kv/ignite/pkg/errors"
	"github.com/ignite-kv/ignite/pkg/idfmt"
)

// Entry is a data record tagged with where it lives: which run, and at
// what offset within that run. Readers use this to populate key
// directory entries directly off a scan.
type Entry struct {
	RunID  uint64
	Offset int64
	Size   int64
	record.Data
}

// Run is an immutable sorted run of data records, backed by a logfile.File.
type Run struct {
	file *logfile.File
}

// Open opens the sorted run at path. writeable must be true only while a
// flush or compaction is actively producing this run (a ".data-tmp" file,
// or the current in-progress ".data" during flush); once sealed, runs are
// always reopened read-only.
func Open(path string, writeable bool) (*Run, error) {
	f, err := logfile.Open(path, writeable)
	if err != nil {
		return nil, err
	}
	return &Run{file: f}, nil
}

// ID returns the run's numeric id.
func (r *Run) ID() uint64 { return r.file.ID() }

// Path returns the run's on-disk path.
func (r *Run) Path() string { return r.file.Path() }

// Size returns the run's current length on disk.
func (r *Run) Size() (int64, error) { return r.file.Size() }

// Sync flushes the run's writer to stable storage.
func (r *Run) Sync() error { return r.file.Sync() }

// Close releases the run's writer handle, if any.
func (r *Run) Close() error { return r.file.Close() }

// Truncate discards everything in the run past offset. Used only when
// the build-keydir scan finds a torn tail in a partially-written run left
// behind by a crash during flush.
func (r *Run) Truncate(offset int64) error { return r.file.Truncate(offset) }

// Append writes rec to the end of the run and returns the offset and
// encoded size it was written at.
func (r *Run) Append(rec record.Data) (offset, size int64, err error) {
	w, err := r.file.Writer()
	if err != nil {
		return 0, 0, err
	}

	offset, err = w.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to end of run").
			WithPath(r.Path())
	}

	n, err := record.WriteData(w, rec)
	if err != nil {
		return 0, 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append record to run").
			WithPath(r.Path()).WithOffset(int(offset))
	}

	return offset, n, nil
}

// ReadAt decodes the data record at offset. ok is false if the record is
// absent (offset at/past EOF) or torn (checksum mismatch).
func (r *Run) ReadAt(offset int64) (rec record.Data, ok bool, err error) {
	f, err := r.file.Reader()
	if err != nil {
		return record.Data{}, false, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return record.Data{}, false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek in run").
			WithPath(r.Path()).WithOffset(int(offset))
	}

	rec, ok, err = record.ReadDataAt(bufio.NewReader(f))
	if err != nil {
		return record.Data{}, false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read record from run").
			WithPath(r.Path()).WithOffset(int(offset))
	}
	return rec, ok, nil
}

// Iter returns a finite, non-restartable forward cursor over every record
// in the run, starting at offset zero. The cursor opens its own read
// handle and must be closed after use; iteration stops (without error) at
// the first checksum failure, matching the build-keydir scan's torn-tail
// tolerance.
func (r *Run) Iter() (*Iterator, error) {
	f, err := r.file.Reader()
	if err != nil {
		return nil, err
	}
	return &Iterator{runID: r.ID(), reader: bufio.NewReader(f), closer: f}, nil
}

// Iterator is a stateful forward cursor over a single sorted run's
// records. It owns its file handle; callers must Close it.
type Iterator struct {
	runID   uint64
	offset  int64
	reader  *bufio.Reader
	closer  io.Closer
	drained bool
}

// Next advances the cursor and returns the next entry, or ok=false once
// the run is exhausted or a torn record is hit.
func (it *Iterator) Next() (Entry, bool, error) {
	if it.drained {
		return Entry{}, false, nil
	}

	start := it.offset
	rec, ok, err := record.ReadDataAt(it.reader)
	if err != nil {
		it.drained = true
		return Entry{}, false, err
	}
	if !ok {
		it.drained = true
		return Entry{}, false, nil
	}

	size := int64(24 + len(rec.Key) + len(rec.Value))
	it.offset += size

	return Entry{RunID: it.runID, Offset: start, Size: size, Data: rec}, true, nil
}

// Close releases the iterator's file handle.
func (it *Iterator) Close() error {
	return it.closer.Close()
}

// HintFile is the sibling of a Run: one hint record per data record, in
// the same order, used to accelerate recovery by avoiding a full scan of
// the (potentially much larger) sorted run.
type HintFile struct {
	file *logfile.File
}

// OpenHint opens the hint file at path.
func OpenHint(path string, writeable bool) (*HintFile, error) {
	f, err := logfile.Open(path, writeable)
	if err != nil {
		return nil, err
	}
	return &HintFile{file: f}, nil
}

func (h *HintFile) ID() uint64   { return h.file.ID() }
func (h *HintFile) Path() string { return h.file.Path() }
func (h *HintFile) Sync() error  { return h.file.Sync() }
func (h *HintFile) Close() error { return h.file.Close() }

// AppendHint writes a hint record pointing at the given data-record
// location.
func (h *HintFile) AppendHint(hint record.Hint) error {
	w, err := h.file.Writer()
	if err != nil {
		return err
	}
	if _, err := record.WriteHint(w, hint); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append hint record").WithPath(h.Path())
	}
	return nil
}

// Iter returns a forward cursor over every hint record in the file.
func (h *HintFile) Iter() (*HintIterator, error) {
	f, err := h.file.Reader()
	if err != nil {
		return nil, err
	}
	return &HintIterator{runID: h.ID(), reader: bufio.NewReader(f), closer: f}, nil
}

// HintIterator is a stateful forward cursor over a hint file's records.
type HintIterator struct {
	runID   uint64
	reader  *bufio.Reader
	closer  io.Closer
	drained bool
}

// Next advances the cursor and returns the next hint record tagged with
// the owning run's id, or ok=false once exhausted or torn.
func (it *HintIterator) Next() (record.Hint, uint64, bool, error) {
	if it.drained {
		return record.Hint{}, 0, false, nil
	}
	hint, ok, err := record.ReadHintAt(it.reader)
	if err != nil || !ok {
		it.drained = true
		return record.Hint{}, 0, false, err
	}
	return hint, it.runID, true, nil
}

// Close releases the hint iterator's file handle.
func (it *HintIterator) Close() error {
	return it.closer.Close()
}

// OpenExisting opens every *.data file in dir, in ascending id order, for
// reading. Used at store-open time to enumerate the run set before the
// key directory is rebuilt.
func OpenExisting(dir string) ([]*Run, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to list data directory").WithPath(dir)
	}

	var runs []*Run
	for _, e := range entries {
		if e.IsDir() || !idfmt.HasSuffix(e.Name(), idfmt.DataSuffix) {
			continue
		}
		r, err := Open(filepath.Join(dir, e.Name()), false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, nil
}

// MergeIter merges an ordered list of run iterators into one sequence,
// ascending by key. On a key collision it keeps the record with the
// larger timestamp, breaking further ties by preferring the input that
// appears later in iters (the convention being that callers pass
// iterators in ascending run-id order, so "later in iters" means "higher
// id", i.e. the logically newer run). It is lazy: each call advances the
// input that yielded the returned record, plus any input whose head
// record lost a key collision and is discarded.
type MergeIter struct {
	iters []*Iterator
	peek  []*peeked
}

type peeked struct {
	entry Entry
	ok    bool
}

// NewMergeIter wraps iters (already opened, in ascending run-id order)
// into a single merged sequence. NewMergeIter takes ownership of iters'
// lifecycle for iteration purposes but does not close them; the caller
// must close every source iterator itself once merging is done.
func NewMergeIter(iters []*Iterator) (*MergeIter, error) {
	m := &MergeIter{iters: iters, peek: make([]*peeked, len(iters))}
	for i, it := range iters {
		entry, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		m.peek[i] = &peeked{entry: entry, ok: ok}
	}
	return m, nil
}

// Next returns the next merged entry in ascending key order, or ok=false
// once every input is exhausted.
func (m *MergeIter) Next() (Entry, bool, error) {
	top := -1
	for i, p := range m.peek {
		if !p.ok {
			continue
		}
		if top == -1 {
			top = i
			continue
		}
		switch {
		case string(p.entry.Key) < string(m.peek[top].entry.Key):
			top = i
		case string(p.entry.Key) == string(m.peek[top].entry.Key):
			if p.entry.Timestamp > m.peek[top].entry.Timestamp ||
				(p.entry.Timestamp == m.peek[top].entry.Timestamp && i > top) {
				if err := m.advance(top); err != nil {
					return Entry{}, false, err
				}
				top = i
			} else {
				if err := m.advance(i); err != nil {
					return Entry{}, false, err
				}
			}
		}
	}

	if top == -1 {
		return Entry{}, false, nil
	}

	winner := m.peek[top].entry
	if err := m.advance(top); err != nil {
		return Entry{}, false, err
	}
	return winner, true, nil
}

func (m *MergeIter) advance(i int) error {
	entry, ok, err := m.iters[i].Next()
	if err != nil {
		return err
	}
	m.peek[i] = &peeked{entry: entry, ok: ok}
	return nil
}
