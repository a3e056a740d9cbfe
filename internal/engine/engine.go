// Package engine provides the core database engine for ignite.
//
// The engine owns the write-ahead log and the memtable exclusively; it
// hands sealed batches of records to the storage manager (which owns the
// key directory and the sorted runs on disk) and notifies the background
// compaction worker when a new run appears. It is the single coordinator
// behind ignite's public API: put, get, delete, contains, and list_keys.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ignite-kv/ignite/internal/compaction"
	"github.com/ignite-kv/ignite/internal/logfile"
	"github.com/ignite-kv/ignite/internal/memtable"
	"github.com/ignite-kv/ignite/internal/record"
	"github.com/ignite-kv/ignite/internal/stats"
	"github.com/ignite-kv/ignite/internal/storage"
	ierrors "github.com/ignite-kv/ignite/pkg/errors"
	"github.com/ignite-kv/ignite/pkg/idfmt"
	"github.com/ignite-kv/ignite/pkg/options"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

// Engine coordinates the WAL, memtable, storage manager, and compaction
// worker. It is thread-safe: a single mutex guards the WAL and memtable,
// which the engine owns exclusively, while reads of already-flushed data
// go through the storage manager's own locking.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	closed  atomic.Bool

	storage *storage.Storage
	worker  *compaction.Worker
	stats   *stats.Tracker

	mu         sync.Mutex
	wal        *logfile.File
	memtable   *memtable.Memtable
	dirtyBytes uint64
}

// Config holds all the parameters needed to initialize a new Engine instance.
// Stats is optional; a nil tracker disables counter tracking without
// requiring callers to special-case it.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
	Stats   *stats.Tracker
}

// New opens the storage manager, recovers the memtable from the WAL, and
// starts the compaction worker, confirming it is alive via a heartbeat
// handshake before returning. The context is checked only at the
// heartbeat handshake: if it is already done, New stops the worker,
// closes what it opened, and returns ctx.Err(). Once New returns, the
// engine's own lifetime is not tied to ctx.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, ierrors.NewRequiredFieldError("config")
	}

	store, err := storage.Open(storage.Config{Options: config.Options, Logger: config.Logger, Stats: config.Stats})
	if err != nil {
		return nil, err
	}

	dir := config.Options.DataDir
	if config.Options.RunOptions != nil && config.Options.RunOptions.Directory != "" {
		dir = filepath.Join(dir, config.Options.RunOptions.Directory)
	}

	wal, mt, dirtyBytes, err := buildMemtable(dir)
	if err != nil {
		store.Close()
		return nil, err
	}

	runSizes, err := store.RunSizes()
	if err != nil {
		store.Close()
		wal.Close()
		return nil, err
	}

	worker := compaction.New(compaction.Config{
		Dir:          dir,
		Options:      config.Options,
		Logger:       config.Logger,
		Store:        store,
		Stats:        config.Stats,
		InitialSizes: runSizes,
	})
	go worker.Run()

	select {
	case <-ctx.Done():
		worker.Stop()
		wal.Close()
		store.Close()
		return nil, ctx.Err()
	default:
	}
	worker.Heartbeat()

	config.Logger.Infow("engine opened", "dataDir", dir, "recoveredDirtyBytes", dirtyBytes)

	return &Engine{
		options:    config.Options,
		log:        config.Logger,
		storage:    store,
		worker:     worker,
		stats:      config.Stats,
		wal:        wal,
		memtable:   mt,
		dirtyBytes: dirtyBytes,
	}, nil
}

// buildMemtable opens (creating if missing) the single WAL file and
// replays its records into a fresh memtable. On the first checksum
// failure it treats the rest of the file as a torn tail: it stops
// reading and truncates the WAL to the last good offset.
func buildMemtable(dir string) (*logfile.File, *memtable.Memtable, uint64, error) {
	walPath := idfmt.Path(dir, idfmt.WALID, idfmt.WALSuffix)

	wal, err := logfile.Open(walPath, true)
	if err != nil {
		return nil, nil, 0, err
	}

	mt := memtable.New()

	reader, err := wal.Reader()
	if err != nil {
		wal.Close()
		return nil, nil, 0, err
	}
	defer reader.Close()

	br := bufio.NewReader(reader)
	var recovered int64

	for {
		rec, ok, err := record.ReadDataAt(br)
		if err != nil {
			wal.Close()
			return nil, nil, 0, err
		}
		if !ok {
			break
		}
		recovered += rec.Size()
		mt.Apply(rec)
	}

	size, err := wal.Size()
	if err != nil {
		wal.Close()
		return nil, nil, 0, err
	}
	if size > recovered {
		if err := wal.Truncate(recovered); err != nil {
			wal.Close()
			return nil, nil, 0, err
		}
	}

	return wal, mt, uint64(recovered), nil
}

// Put rejects keys or values exceeding the configured size limits,
// otherwise appends to the WAL, updates the memtable, and flushes if the
// dirty-byte threshold has been crossed.
func (e *Engine) Put(key, value []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	if uint64(len(key)) > e.options.MaxKeySize {
		return ierrors.NewFieldRangeError("key", len(key), 0, e.options.MaxKeySize)
	}
	if uint64(len(value)) > e.options.MaxValueSize {
		return ierrors.NewFieldRangeError("value", len(value), 0, e.options.MaxValueSize)
	}

	rec := record.Data{Timestamp: uint32(time.Now().Unix()), Key: key, Value: value}

	var buf bytes.Buffer
	if _, err := record.WriteData(&buf, rec); err != nil {
		return ierrors.NewStorageError(err, ierrors.ErrorCodeIO, "failed to encode record")
	}

	shouldFlush, err := func() (bool, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if _, err := e.wal.Append(buf.Bytes()); err != nil {
			return false, err
		}
		e.stats.AddLogged(uint64(buf.Len()))
		e.memtable.Apply(rec)
		e.dirtyBytes += uint64(buf.Len())
		return e.dirtyBytes > e.options.MaxLogLength, nil
	}()
	if err != nil {
		return err
	}

	if shouldFlush {
		return e.flush()
	}
	return nil
}

// Delete is put(key, empty): a no-op if the key is absent from both the
// memtable and the key directory, otherwise a tombstoning put.
func (e *Engine) Delete(key []byte) error {
	if !e.Contains(key) {
		return nil
	}
	return e.Put(key, nil)
}

// Get returns the value for key: the memtable first (empty value means
// absent), then the storage manager.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	if e.closed.Load() {
		return nil, false, ErrEngineClosed
	}

	e.mu.Lock()
	rec, ok := e.memtable.Get(key)
	e.mu.Unlock()

	if ok {
		if len(rec.Value) == 0 {
			return nil, false, nil
		}
		return rec.Value, true, nil
	}

	return e.storage.Get(key)
}

// Contains is true if the memtable holds a live (non-tombstone) entry for
// key, or the key directory does.
func (e *Engine) Contains(key []byte) bool {
	if e.closed.Load() {
		return false
	}

	e.mu.Lock()
	rec, ok := e.memtable.Get(key)
	e.mu.Unlock()

	if ok {
		return len(rec.Value) != 0
	}
	return e.storage.Contains(key)
}

// ListKeys returns the key directory's keys, sorted, with the memtable
// applied as an overlay: non-empty values insert-or-keep, empty values
// remove.
func (e *Engine) ListKeys() ([][]byte, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	base := e.storage.Keys()
	keys := make([]string, len(base))
	for i, k := range base {
		keys[i] = string(k)
	}
	sort.Strings(keys)

	e.mu.Lock()
	defer e.mu.Unlock()

	for k, rec := range e.snapshotMemtable() {
		idx := sort.SearchStrings(keys, k)
		found := idx < len(keys) && keys[idx] == k
		if len(rec.Value) != 0 {
			if !found {
				keys = append(keys, "")
				copy(keys[idx+1:], keys[idx:])
				keys[idx] = k
			}
		} else if found {
			keys = append(keys[:idx], keys[idx+1:]...)
		}
	}

	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out, nil
}

// Stats returns a point-in-time snapshot of byte counters and
// amplification ratios, treating the current dirty-byte count as the
// resident (unflushed) size.
func (e *Engine) Stats() (stats.Stats, error) {
	if e.closed.Load() {
		return stats.Stats{}, ErrEngineClosed
	}

	e.mu.Lock()
	resident := e.dirtyBytes
	e.mu.Unlock()

	return e.storage.StatsSnapshot(resident)
}

func (e *Engine) snapshotMemtable() map[string]record.Data {
	snap := make(map[string]record.Data)
	for _, rec := range e.memtable.SortedEntries() {
		snap[string(rec.Key)] = rec
	}
	return snap
}

// flush fsyncs the WAL, takes the memtable, asks the storage manager to
// seal it into a new sorted run, notifies the compaction worker, and
// truncates the WAL. On failure the memtable is restored and the WAL is
// left intact, so another flush attempt (or a clean reopen) recovers the
// data.
func (e *Engine) flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.wal.Sync(); err != nil {
		return err
	}

	entries := e.memtable.SortedEntries()
	if len(entries) == 0 {
		return nil
	}

	runID, size, err := e.storage.Flush(entries)
	if err != nil {
		e.log.Errorw("flush failed, memtable retained", "error", err)
		return err
	}

	e.worker.NotifyNewRun(runID, size)

	if err := e.wal.Truncate(0); err != nil {
		return err
	}

	e.memtable.Reset()
	e.dirtyBytes = 0

	e.log.Infow("flush complete", "runID", runID, "size", size, "entries", len(entries))
	return nil
}

// Close stops the compaction worker and closes the storage manager and
// WAL, aggregating any errors from each step.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.worker.Stop()

	var err error
	e.mu.Lock()
	if syncErr := e.wal.Sync(); syncErr != nil {
		err = multierr.Append(err, syncErr)
	}
	if closeErr := e.wal.Close(); closeErr != nil {
		err = multierr.Append(err, closeErr)
	}
	e.mu.Unlock()

	if closeErr := e.storage.Close(); closeErr != nil {
		err = multierr.Append(err, closeErr)
	}

	return err
}
