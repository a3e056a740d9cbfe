// Package compaction is the background worker that merges windows of
// sorted runs into one as the store grows. It is a single actor reading
// an ordered inbox of messages — new runs to track, heartbeats, and a
// stop request — and between messages it applies a sliding-window
// maintenance policy to decide whether a merge is due.
//
// The merge itself is crash-safe by construction: it writes a full
// replacement run and hint file to `-tmp` paths, fsyncs them, and only
// then hands off to the storage manager's rename+delete+keydir-rebuild
// sequence. A crash at any point before that handoff leaves the inputs
// untouched and the partial `-tmp` files orphaned; compact refuses to
// reuse a leftover `-tmp` file rather than append onto it, matching the
// "restarted from scratch" framing in spec's idempotence section.
package compaction

import (
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/ignite-kv/ignite/internal/record"
	"github.com/ignite-kv/ignite/internal/run"
	"github.com/ignite-kv/ignite/internal/stats"
	"github.com/ignite-kv/ignite/pkg/errors"
	"github.com/ignite-kv/ignite/pkg/idfmt"
	"github.com/ignite-kv/ignite/pkg/options"
)

// Merger is the subset of *storage.Storage the worker depends on, kept
// narrow so tests can supply a fake without dragging in the whole
// storage manager.
type Merger interface {
	CompactAndMerge(inputIDs []uint64, winnerID uint64) (size int64, err error)
}

// message is the worker's ordered inbox entry type. The three concrete
// kinds below are the only messages the worker accepts, matching the
// original's NewSSTable/Stop/HeartBeat set one-for-one.
type message interface{ isMessage() }

// NewSortedRun tells the worker about a run it didn't create itself
// (e.g. one produced by a flush) so the worker's view of on-disk sizes
// stays current for the maintenance policy.
type NewSortedRun struct {
	ID   uint64
	Size int64
}

func (NewSortedRun) isMessage() {}

// Heartbeat round-trips through the worker's single goroutine and
// signals on Done once it has been processed, proving the worker's loop
// is alive and not wedged on a previous message.
type Heartbeat struct {
	Done chan<- struct{}
}

func (Heartbeat) isMessage() {}

// Stop asks the worker to exit its loop after finishing whatever message
// is already in flight, then signals on Done.
type Stop struct {
	Done chan<- struct{}
}

func (Stop) isMessage() {}

// Worker is the compaction actor. All state below is owned exclusively
// by the goroutine running Run; nothing else may touch it.
type Worker struct {
	dir   string
	opts  *options.Options
	log   *zap.SugaredLogger
	store Merger
	inbox chan message
	sizes map[uint64]int64
	stats *stats.Tracker
}

// Config carries everything New needs to construct a worker.
type Config struct {
	Dir     string
	Options *options.Options
	Logger  *zap.SugaredLogger
	Store   Merger
	// Stats is optional; a nil tracker is a valid no-op.
	Stats *stats.Tracker
	// InitialSizes seeds the worker's view of on-disk run sizes from the
	// storage manager's state at open, so the very first maintenance pass
	// after a restart sees the full run set rather than only runs created
	// after the worker started.
	InitialSizes map[uint64]int64
}

// New constructs a worker. Callers must call Run (typically via `go
// worker.Run()`) to start its loop.
func New(cfg Config) *Worker {
	sizes := make(map[uint64]int64, len(cfg.InitialSizes))
	for id, size := range cfg.InitialSizes {
		sizes[id] = size
	}
	return &Worker{
		dir:   cfg.Dir,
		opts:  cfg.Options,
		log:   cfg.Logger,
		store: cfg.Store,
		inbox: make(chan message, 64),
		sizes: sizes,
		stats: cfg.Stats,
	}
}

// NotifyNewRun enqueues a NewSortedRun message. Never blocks callers on
// the worker's internal processing — only on the inbox being full.
func (w *Worker) NotifyNewRun(id uint64, size int64) {
	w.inbox <- NewSortedRun{ID: id, Size: size}
}

// Heartbeat sends a heartbeat and blocks until the worker has processed
// it, proving liveness.
func (w *Worker) Heartbeat() {
	done := make(chan struct{})
	w.inbox <- Heartbeat{Done: done}
	<-done
}

// Stop asks the worker to exit and blocks until it has.
func (w *Worker) Stop() {
	done := make(chan struct{})
	w.inbox <- Stop{Done: done}
	<-done
}

// Run processes the inbox until a Stop message arrives. Intended to run
// in its own goroutine for the lifetime of the engine.
func (w *Worker) Run() {
	w.log.Infow("compaction worker starting")
	for {
		msg := <-w.inbox
		cont := w.handle(msg)
		if !cont {
			w.log.Infow("compaction worker stopped")
			return
		}

		if err := w.maintain(); err != nil {
			w.log.Errorw("compaction maintenance pass failed", "error", err)
		}
	}
}

func (w *Worker) handle(msg message) bool {
	switch m := msg.(type) {
	case NewSortedRun:
		w.sizes[m.ID] = m.Size
		return true
	case Heartbeat:
		close(m.Done)
		return true
	case Stop:
		close(m.Done)
		return false
	default:
		return true
	}
}

// maintain is the sliding-window policy: W = max(merge_window, 2), R =
// merge_ratio. Among runs in ascending id order, it compacts the first
// window of W consecutive runs where every trailing run's size times R
// exceeds the window's leading (smallest-id) run's size, and only the
// first such window per tick — one compaction at a time, then back to
// the inbox.
func (w *Worker) maintain() error {
	window := int(w.opts.MergeWindow)
	if window < 2 {
		window = 2
	}
	ratio := uint64(w.opts.MergeRatio)

	if len(w.sizes) < window {
		return nil
	}

	ids := make([]uint64, 0, len(w.sizes))
	for id := range w.sizes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for start := 0; start+window <= len(ids); start++ {
		candidate := ids[start : start+window]
		leaderSize := uint64(w.sizes[candidate[0]])

		qualifies := true
		for _, id := range candidate[1:] {
			if uint64(w.sizes[id])*ratio <= leaderSize {
				qualifies = false
				break
			}
		}

		if qualifies {
			return w.compact(candidate)
		}
	}

	return nil
}

// compact merges the given run ids into the one with the highest id
// (the winner), writing a complete `-tmp` replacement run and hint file
// before handing off to the storage manager.
func (w *Worker) compact(ids []uint64) error {
	winnerID := ids[0]
	for _, id := range ids {
		if id > winnerID {
			winnerID = id
		}
	}

	tmpDataPath := idfmt.Path(w.dir, winnerID, idfmt.DataTmpSuffix)
	tmpHintPath := idfmt.Path(w.dir, winnerID, idfmt.HintTmpSuffix)

	if _, err := os.Stat(tmpDataPath); err == nil {
		w.log.Warnw("leftover compaction tmp file found, skipping merge until it is cleared",
			"ids", ids, "winnerID", winnerID, "path", tmpDataPath)
		return nil
	} else if !os.IsNotExist(err) {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat compaction tmp file").
			WithPath(tmpDataPath)
	}

	w.log.Debugw("compacting sorted runs", "ids", ids, "winnerID", winnerID)

	var iters []*run.Iterator
	defer func() {
		for _, it := range iters {
			it.Close()
		}
	}()

	for _, id := range ids {
		r, err := run.Open(idfmt.Path(w.dir, id, idfmt.DataSuffix), false)
		if err != nil {
			return err
		}
		it, err := r.Iter()
		if err != nil {
			return err
		}
		iters = append(iters, it)
	}

	merged, err := run.NewMergeIter(iters)
	if err != nil {
		return err
	}

	tmpRun, err := run.Open(tmpDataPath, true)
	if err != nil {
		return err
	}
	defer tmpRun.Close()

	tmpHint, err := run.OpenHint(tmpHintPath, true)
	if err != nil {
		return err
	}
	defer tmpHint.Close()

	for {
		entry, ok, err := merged.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		offset, size, err := tmpRun.Append(entry.Data)
		if err != nil {
			return err
		}
		w.stats.AddWritten(uint64(size))
		if err := tmpHint.AppendHint(record.Hint{
			Timestamp: entry.Timestamp, Key: entry.Key, Tombstone: entry.IsTombstone(),
			Offset: uint64(offset), Size: uint64(size),
		}); err != nil {
			return err
		}
	}

	if err := tmpRun.Sync(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to sync compacted run tmp file").
			WithPath(tmpDataPath)
	}
	if err := tmpHint.Sync(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to sync compacted hint tmp file").
			WithPath(tmpHintPath)
	}

	size, err := w.store.CompactAndMerge(ids, winnerID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		delete(w.sizes, id)
	}
	w.sizes[winnerID] = size

	w.log.Infow("compaction merge finished", "ids", ids, "winnerID", winnerID, "size", size)
	return nil
}
