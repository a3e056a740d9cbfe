package compaction

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-kv/ignite/internal/record"
	"github.com/ignite-kv/ignite/internal/run"
	"github.com/ignite-kv/ignite/internal/stats"
	"github.com/ignite-kv/ignite/pkg/idfmt"
	"github.com/ignite-kv/ignite/pkg/logger"
	"github.com/ignite-kv/ignite/pkg/options"
)

// fakeMerger records every CompactAndMerge call so tests can assert on the
// worker's merge decisions without a real storage manager.
type fakeMerger struct {
	calls []struct {
		inputIDs []uint64
		winnerID uint64
	}
	size int64
	err  error
}

func (f *fakeMerger) CompactAndMerge(inputIDs []uint64, winnerID uint64) (int64, error) {
	f.calls = append(f.calls, struct {
		inputIDs []uint64
		winnerID uint64
	}{inputIDs, winnerID})
	return f.size, f.err
}

func writeRun(t *testing.T, dir string, id uint64, entries ...record.Data) {
	t.Helper()
	r, err := run.Open(idfmt.Path(dir, id, idfmt.DataSuffix), true)
	require.NoError(t, err)
	for _, e := range entries {
		_, _, err := r.Append(e)
		require.NoError(t, err)
	}
	require.NoError(t, r.Sync())
	require.NoError(t, r.Close())
}

func newTestWorker(t *testing.T, dir string, merger Merger, window, ratio uint8) *Worker {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.MergeWindow = window
	opts.MergeRatio = ratio
	return New(Config{
		Dir:     dir,
		Options: &opts,
		Logger:  logger.NewNop(),
		Store:   merger,
		Stats:   stats.New(),
	})
}

func TestHeartbeat_ProvesWorkerLiveness(t *testing.T) {
	w := newTestWorker(t, t.TempDir(), &fakeMerger{}, 10, 3)
	go w.Run()
	defer w.Stop()

	assert.NotPanics(t, w.Heartbeat)
}

func TestStop_ExitsRunLoop(t *testing.T) {
	w := newTestWorker(t, t.TempDir(), &fakeMerger{}, 10, 3)
	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	w.Stop()
	<-done
}

func TestMaintain_SkipsWindowBelowMergeWindowFloor(t *testing.T) {
	dir := t.TempDir()
	merger := &fakeMerger{size: 100}
	w := newTestWorker(t, dir, merger, 3, 2)

	w.sizes[1] = 10
	w.sizes[2] = 10
	require.NoError(t, w.maintain())
	assert.Empty(t, merger.calls, "fewer runs than the window shouldn't trigger a compaction")
}

func TestMaintain_CompactsQualifyingWindow(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, 1, record.Data{Timestamp: 1, Key: []byte("a"), Value: []byte("1")})
	writeRun(t, dir, 2, record.Data{Timestamp: 2, Key: []byte("b"), Value: []byte("2")})

	merger := &fakeMerger{size: 999}
	w := newTestWorker(t, dir, merger, 2, 2)

	w.sizes[1] = 10
	w.sizes[2] = 30 // 30 * ratio(2) > 10, so the window qualifies

	require.NoError(t, w.maintain())
	require.Len(t, merger.calls, 1)
	assert.ElementsMatch(t, []uint64{1, 2}, merger.calls[0].inputIDs)
	assert.EqualValues(t, 2, merger.calls[0].winnerID, "winner is the highest id in the window")
	assert.EqualValues(t, 999, w.sizes[2], "winner's size is replaced with the merge result")
	_, stillTracked := w.sizes[1]
	assert.False(t, stillTracked, "non-winner input ids are dropped from the size map")
}

func TestMaintain_NonQualifyingWindowDoesNothing(t *testing.T) {
	dir := t.TempDir()
	merger := &fakeMerger{}
	w := newTestWorker(t, dir, merger, 2, 2)

	w.sizes[1] = 10
	w.sizes[2] = 5 // 5 * ratio(2) <= 10, so the trailing run doesn't qualify.

	require.NoError(t, w.maintain())
	assert.Empty(t, merger.calls)
}

func TestCompact_WritesMergedTmpFilesBeforeHandoff(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, 1, record.Data{Timestamp: 1, Key: []byte("a"), Value: []byte("1")})
	writeRun(t, dir, 2, record.Data{Timestamp: 2, Key: []byte("b"), Value: []byte("2")})

	merger := &fakeMerger{size: 42}
	w := newTestWorker(t, dir, merger, 2, 2)

	require.NoError(t, w.compact([]uint64{1, 2}))

	require.Len(t, merger.calls, 1)
	assert.Equal(t, uint64(2), merger.calls[0].winnerID)

	tmpRun, err := run.Open(idfmt.Path(dir, 2, idfmt.DataTmpSuffix), false)
	require.NoError(t, err)
	defer tmpRun.Close()
	it, err := tmpRun.Iter()
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for {
		entry, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, string(entry.Key))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestCompact_LeftoverTmpFileSkipsResumeInsteadOfAppending(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, 1, record.Data{Timestamp: 1, Key: []byte("a"), Value: []byte("1")})
	writeRun(t, dir, 2, record.Data{Timestamp: 2, Key: []byte("b"), Value: []byte("2")})

	tmpDataPath := idfmt.Path(dir, 2, idfmt.DataTmpSuffix)
	stale := []byte("leftover bytes from a crashed compaction attempt")
	require.NoError(t, os.WriteFile(tmpDataPath, stale, 0644))

	merger := &fakeMerger{size: 999}
	w := newTestWorker(t, dir, merger, 2, 2)

	require.NoError(t, w.compact([]uint64{1, 2}))

	assert.Empty(t, merger.calls, "a leftover -tmp file must block the merge rather than resume onto it")

	got, err := os.ReadFile(tmpDataPath)
	require.NoError(t, err)
	assert.Equal(t, stale, got, "the leftover tmp file must be left untouched, not appended to")
}
