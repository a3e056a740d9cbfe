package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-kv/ignite/internal/record"
	"github.com/ignite-kv/ignite/internal/stats"
	"github.com/ignite-kv/ignite/pkg/errors"
	"github.com/ignite-kv/ignite/pkg/idfmt"
	"github.com/ignite-kv/ignite/pkg/logger"
	"github.com/ignite-kv/ignite/pkg/options"
)

func openTestStorage(t *testing.T, dir string) *Storage {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	s, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresConfig(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_CreatesDataDirAndLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s := openTestStorage(t, dir)

	_, err := os.Stat(filepath.Join(dir, "LOCK"))
	assert.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestFlush_SealsRunAndPopulatesKeydir(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)

	entries := []record.Data{
		{Timestamp: 1, Key: []byte("a"), Value: []byte("1")},
		{Timestamp: 1, Key: []byte("b"), Value: []byte("2")},
	}
	runID, size, err := s.Flush(entries)
	require.NoError(t, err)
	assert.EqualValues(t, 1, runID)
	assert.Greater(t, size, int64(0))

	val, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)
	assert.Equal(t, 2, s.Len())
}

func TestFlush_TombstoneRemovesFromKeydir(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)

	_, _, err := s.Flush([]record.Data{{Timestamp: 1, Key: []byte("a"), Value: []byte("1")}})
	require.NoError(t, err)

	_, _, err = s.Flush([]record.Data{{Timestamp: 2, Key: []byte("a"), Value: nil}})
	require.NoError(t, err)

	assert.False(t, s.Contains([]byte("a")))
	_, ok, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlush_RunIDsIncrementAndSkipWALID(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)

	id1, _, err := s.Flush([]record.Data{{Timestamp: 1, Key: []byte("a"), Value: []byte("1")}})
	require.NoError(t, err)
	id2, _, err := s.Flush([]record.Data{{Timestamp: 1, Key: []byte("b"), Value: []byte("2")}})
	require.NoError(t, err)

	assert.EqualValues(t, 1, id1)
	assert.EqualValues(t, 2, id2)
}

func TestGet_MissingKeyIsNotError(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)

	_, ok, err := s.Get([]byte("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReopen_RebuildsKeydirFromHints(t *testing.T) {
	dir := t.TempDir()

	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	s1, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)

	_, _, err = s1.Flush([]record.Data{
		{Timestamp: 1, Key: []byte("a"), Value: []byte("1")},
		{Timestamp: 1, Key: []byte("b"), Value: []byte("2")},
	})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	assert.Equal(t, 2, s2.Len())
	val, ok, err := s2.Get([]byte("b"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), val)
}

func TestReopen_RebuildsKeydirFromRunScanWhenHintMissing(t *testing.T) {
	dir := t.TempDir()

	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	s1, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)

	_, _, err = s1.Flush([]record.Data{{Timestamp: 1, Key: []byte("a"), Value: []byte("1")}})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	require.NoError(t, os.Remove(idfmt.Path(dir, 1, idfmt.HintSuffix)))

	s2, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	val, ok, err := s2.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)
}

func TestClose_DoubleCloseErrors(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)
	require.NoError(t, s.Close())

	err := s.Close()
	assert.True(t, errors.IsStorageError(err))
}

func TestOpen_SecondProcessFailsWithAlreadyLockedThenSucceedsAfterClose(t *testing.T) {
	dir := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.DataDir = dir

	s1, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)

	_, err = Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorCodeAlreadyLocked, errors.GetErrorCode(err))

	require.NoError(t, s1.Close())

	s2, err := Open(Config{Options: &opts, Logger: logger.NewNop(), Stats: stats.New()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
}

func TestRunSizesAndStatsSnapshot(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)

	_, size, err := s.Flush([]record.Data{{Timestamp: 1, Key: []byte("a"), Value: []byte("1")}})
	require.NoError(t, err)

	sizes, err := s.RunSizes()
	require.NoError(t, err)
	assert.Equal(t, size, sizes[1])

	snap, err := s.StatsSnapshot(0)
	require.NoError(t, err)
	assert.EqualValues(t, size, snap.OnDiskBytes)
}
