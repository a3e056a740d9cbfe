// Package storage is the storage manager: it owns the directory lock, the
// set of sealed sorted runs and their hint files, and the key directory
// built from them. It is the only thing that ever creates, renames, or
// deletes a `.data`/`.hint` file, and the only thing that mutates the key
// directory once the engine has handed it a sealed batch of records.
package storage

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ignite-kv/ignite/internal/keydir"
	"github.com/ignite-kv/ignite/internal/record"
	"github.com/ignite-kv/ignite/internal/run"
	"github.com/ignite-kv/ignite/internal/stats"
	"github.com/ignite-kv/ignite/pkg/errors"
	"github.com/ignite-kv/ignite/pkg/filesys"
	"github.com/ignite-kv/ignite/pkg/idfmt"
	"github.com/ignite-kv/ignite/pkg/options"
)

// Config carries everything Open needs to bring up a storage manager.
// Stats is optional; a nil tracker is a valid no-op.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
	Stats   *stats.Tracker
}

// Storage is the storage manager. Get takes the shared lock; Flush and
// CompactAndMerge take the exclusive lock. The compaction worker does its
// merge-iteration and tmp-file writes entirely outside any lock — only
// the final CompactAndMerge handoff (rename, delete, keydir rebuild) is
// serialized against reads and flushes.
type Storage struct {
	dir    string
	opts   *options.Options
	log    *zap.SugaredLogger
	lock   *dirLock
	keydir *keydir.Keydir
	runs   map[uint64]*run.Run
	hints  map[uint64]*run.HintFile
	mu     sync.RWMutex
	closed atomic.Bool
	stats  *stats.Tracker
}

// Open brings up the storage manager rooted at cfg.Options.DataDir joined
// with the configured run subdirectory: creates the directory if missing,
// fsyncs it, acquires the exclusive LOCK file, enumerates existing sorted
// runs, and rebuilds the key directory from their hint files (or, absent
// a hint, by scanning the run itself).
func Open(cfg Config) (*Storage, error) {
	if cfg.Options == nil || cfg.Logger == nil {
		return nil, errors.NewConfigurationValidationError("config", "Options and Logger are both required")
	}

	dir := cfg.Options.DataDir
	if cfg.Options.RunOptions != nil && cfg.Options.RunOptions.Directory != "" {
		dir = filepath.Join(dir, cfg.Options.RunOptions.Directory)
	}

	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, dir)
	}
	if f, err := os.Open(dir); err == nil {
		_ = f.Sync()
		f.Close()
	}

	lock, err := acquireLock(filepath.Join(dir, "LOCK"))
	if err != nil {
		return nil, err
	}

	s := &Storage{
		dir:    dir,
		opts:   cfg.Options,
		log:    cfg.Logger,
		lock:   lock,
		keydir: keydir.New(cfg.Logger, 2048),
		runs:   make(map[uint64]*run.Run),
		hints:  make(map[uint64]*run.HintFile),
		stats:  cfg.Stats,
	}

	if err := s.openRuns(); err != nil {
		lock.release()
		return nil, err
	}
	if err := s.buildKeydir(); err != nil {
		lock.release()
		return nil, err
	}

	s.log.Infow("storage manager opened", "dir", dir, "runs", len(s.runs), "keys", s.keydir.Len())
	return s, nil
}

func (s *Storage) openRuns() error {
	runs, err := run.OpenExisting(s.dir)
	if err != nil {
		return err
	}
	for _, r := range runs {
		s.runs[r.ID()] = r

		hintPath := idfmt.Path(s.dir, r.ID(), idfmt.HintSuffix)
		if exists(hintPath) {
			h, err := run.OpenHint(hintPath, false)
			if err != nil {
				return err
			}
			s.hints[r.ID()] = h
		}
	}
	return nil
}

// buildKeydir rebuilds the key directory in ascending run-id order so
// that later writes overwrite earlier ones; the per-key timestamp check
// in keydir.Put further guards against out-of-order hints.
func (s *Storage) buildKeydir() error {
	ids := make([]uint64, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if h, ok := s.hints[id]; ok {
			if err := s.applyHintFile(h); err != nil {
				return err
			}
			continue
		}
		if err := s.applyRunScan(s.runs[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) applyHintFile(h *run.HintFile) error {
	it, err := h.Iter()
	if err != nil {
		return err
	}
	defer it.Close()

	for {
		hint, runID, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if hint.Tombstone {
			s.keydir.Remove(hint.Key)
			continue
		}
		s.keydir.Put(hint.Key, keydir.Entry{
			RunID: runID, Offset: int64(hint.Offset), Size: int64(hint.Size), Timestamp: hint.Timestamp,
		})
	}
	return nil
}

// applyRunScan tolerates a torn tail: it stops at the first checksum
// failure without aborting the open, and truncates the run to the last
// good offset before leaving it registered. A non-empty run with no
// readable record at offset zero fails the open outright; an empty run is
// accepted.
func (s *Storage) applyRunScan(r *run.Run) error {
	it, err := r.Iter()
	if err != nil {
		return err
	}
	defer it.Close()

	var lastGood int64
	var sawAny bool

	for {
		entry, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		sawAny = true
		lastGood = entry.Offset + entry.Size

		if entry.IsTombstone() {
			s.keydir.Remove(entry.Key)
			continue
		}
		s.keydir.Put(entry.Key, keydir.Entry{
			RunID: entry.RunID, Offset: entry.Offset, Size: entry.Size, Timestamp: entry.Timestamp,
		})
	}

	if !sawAny {
		size, _ := r.Size()
		if size > 0 {
			return errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "run is unreadable at offset zero").
				WithPath(r.Path())
		}
	}
	if size, _ := r.Size(); size != lastGood {
		s.log.Infow("truncating torn run tail found at open", "path", r.Path(), "goodOffset", lastGood, "fileSize", size)
		// r was opened read-only; truncation needs a writeable handle.
		w, err := run.Open(r.Path(), true)
		if err != nil {
			return err
		}
		err = w.Truncate(lastGood)
		w.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Get returns the value stored for key, or ok=false if the key has no
// live entry in the key directory, or its value is empty (a tombstone is
// indistinguishable from absence to callers).
func (s *Storage) Get(key []byte) (value []byte, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.keydir.Get(key)
	if !found {
		return nil, false, nil
	}

	r, ok := s.runs[entry.RunID]
	if !ok {
		return nil, false, errors.NewSegmentIDError(uint16(entry.RunID), string(key))
	}

	rec, found, err := r.ReadAt(entry.Offset)
	if err != nil {
		return nil, false, err
	}
	if !found || len(rec.Value) == 0 {
		return nil, false, nil
	}
	s.stats.AddRead(uint64(len(rec.Value)))
	return rec.Value, true, nil
}

// Contains reports whether key has a live, non-tombstone entry.
func (s *Storage) Contains(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keydir.Contains(key)
}

// Keys returns every live key.
func (s *Storage) Keys() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keydir.Keys()
}

// Len returns the number of live keys.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keydir.Len()
}

// RunSizes returns the on-disk byte size of every sealed run, keyed by
// run id, for the compaction worker's sliding-window maintenance policy.
func (s *Storage) RunSizes() (map[uint64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sizes := make(map[uint64]int64, len(s.runs))
	for id, r := range s.runs {
		sz, err := r.Size()
		if err != nil {
			return nil, err
		}
		sizes[id] = sz
	}
	return sizes, nil
}

// Flush seals entries (already sorted in ascending key order, tombstones
// included) into a brand-new sorted run and its sibling hint file, then
// applies the resulting key-directory updates. The new id is one past the
// highest existing run id (or 1 if this is the first run — id 0 is
// reserved for the WAL).
func (s *Storage) Flush(entries []record.Data) (runID uint64, size int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID uint64
	for id := range s.runs {
		if id > maxID {
			maxID = id
		}
	}
	runID = maxID + 1
	if runID == idfmt.WALID {
		runID = 1
	}

	dataPath := idfmt.Path(s.dir, runID, idfmt.DataSuffix)
	hintPath := idfmt.Path(s.dir, runID, idfmt.HintSuffix)

	newRun, err := run.Open(dataPath, true)
	if err != nil {
		return 0, 0, err
	}
	newHint, err := run.OpenHint(hintPath, true)
	if err != nil {
		newRun.Close()
		return 0, 0, err
	}

	for _, rec := range entries {
		offset, size, err := newRun.Append(rec)
		if err != nil {
			return 0, 0, err
		}
		s.stats.AddWritten(uint64(size))
		if err := newHint.AppendHint(record.Hint{
			Timestamp: rec.Timestamp, Key: rec.Key, Tombstone: rec.IsTombstone(),
			Offset: uint64(offset), Size: uint64(size),
		}); err != nil {
			return 0, 0, err
		}

		if rec.IsTombstone() {
			s.keydir.Remove(rec.Key)
		} else {
			s.keydir.Put(rec.Key, keydir.Entry{RunID: runID, Offset: offset, Size: size, Timestamp: rec.Timestamp})
		}
	}

	if err := newRun.Sync(); err != nil {
		return 0, 0, err
	}
	if err := newHint.Sync(); err != nil {
		return 0, 0, err
	}

	// Reopen read-only: once sealed, runs are never written again.
	newRun.Close()
	newHint.Close()
	readRun, err := run.Open(dataPath, false)
	if err != nil {
		return 0, 0, err
	}
	readHint, err := run.OpenHint(hintPath, false)
	if err != nil {
		readRun.Close()
		return 0, 0, err
	}

	s.runs[runID] = readRun
	s.hints[runID] = readHint

	sz, err := readRun.Size()
	if err != nil {
		return 0, 0, err
	}

	s.log.Infow("flushed memtable to new run", "runID", runID, "entries", len(entries), "size", sz)
	return runID, sz, nil
}

// CompactAndMerge completes a compaction the worker has already staged:
// it expects `winnerID.data-tmp`/`winnerID.hint-tmp` to exist. The rename
// is the linearization point — once it happens, the input runs are
// deleted and the key directory is rebuilt from the winner's hint file.
// The hint tmp file is required: there is no fallback to scanning the
// winner run, and a missing `winnerID.hint-tmp` makes the call fail after
// the data file has already been renamed into place. inputIDs must
// include winnerID.
func (s *Storage) CompactAndMerge(inputIDs []uint64, winnerID uint64) (size int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpDataPath := idfmt.Path(s.dir, winnerID, idfmt.DataTmpSuffix)
	tmpHintPath := idfmt.Path(s.dir, winnerID, idfmt.HintTmpSuffix)
	dataPath := idfmt.Path(s.dir, winnerID, idfmt.DataSuffix)
	hintPath := idfmt.Path(s.dir, winnerID, idfmt.HintSuffix)

	if err := os.Rename(tmpDataPath, dataPath); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rename compacted data tmp into place").
			WithPath(tmpDataPath)
	}
	if err := os.Rename(tmpHintPath, hintPath); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rename compacted hint tmp into place").
			WithPath(tmpHintPath)
	}
	if f, err := os.Open(s.dir); err == nil {
		_ = f.Sync()
		f.Close()
	}

	for _, id := range inputIDs {
		if id == winnerID {
			continue
		}
		if r, ok := s.runs[id]; ok {
			r.Close()
			if err := os.Remove(idfmt.Path(s.dir, id, idfmt.DataSuffix)); err != nil && !os.IsNotExist(err) {
				return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to delete compacted input run").
					WithPath(r.Path())
			}
			delete(s.runs, id)
		}
		if h, ok := s.hints[id]; ok {
			h.Close()
			hp := idfmt.Path(s.dir, id, idfmt.HintSuffix)
			if err := os.Remove(hp); err != nil && !os.IsNotExist(err) {
				return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to delete compacted input hint").WithPath(hp)
			}
			delete(s.hints, id)
		}
	}

	if old, ok := s.runs[winnerID]; ok {
		old.Close()
	}
	winnerRun, err := run.Open(dataPath, false)
	if err != nil {
		return 0, err
	}
	s.runs[winnerID] = winnerRun

	if old, ok := s.hints[winnerID]; ok {
		old.Close()
	}
	winnerHint, err := run.OpenHint(hintPath, false)
	if err != nil {
		return 0, err
	}
	s.hints[winnerID] = winnerHint

	if err := s.applyHintFile(winnerHint); err != nil {
		return 0, err
	}

	sz, err := winnerRun.Size()
	if err != nil {
		return 0, err
	}

	s.log.Infow("compaction merge completed", "winnerID", winnerID, "inputs", inputIDs, "size", sz)
	return sz, nil
}

// StatsSnapshot returns a point-in-time byte-counter snapshot, combining
// the tracker's running totals with the caller-supplied resident (still
// in the memtable, not yet flushed) byte count and the current sum of
// every sealed run's on-disk size.
func (s *Storage) StatsSnapshot(residentBytes uint64) (stats.Stats, error) {
	sizes, err := s.RunSizes()
	if err != nil {
		return stats.Stats{}, err
	}
	var onDisk uint64
	for _, sz := range sizes {
		onDisk += uint64(sz)
	}
	return s.stats.Snapshot(residentBytes, onDisk), nil
}

// Close releases every run and hint file handle and the directory lock.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "storage already closed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.runs {
		r.Close()
	}
	for _, h := range s.hints {
		h.Close()
	}
	s.keydir.Close()

	return s.lock.release()
}
