package logfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_WriteableCreatesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "000000000001.data")

	f, err := Open(path, true)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, uint64(1), f.ID())
	assert.Equal(t, path, f.Path())

	off, err := f.Append([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)

	off, err = f.Append([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), off)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestOpen_ReadOnlyHasNoWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "000000000002.data")
	require.NoError(t, os.WriteFile(path, []byte("xyz"), 0644))

	f, err := Open(path, false)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Writer()
	assert.Error(t, err)
}

func TestTruncate_DiscardsTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "000000000003.data")

	f, err := Open(path, true)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Append([]byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, f.Truncate(4))

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}

func TestReader_IndependentHandleFromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "000000000004.data")

	f, err := Open(path, true)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Append([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	r, err := f.Reader()
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 7)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
}

func TestClose_ReadOnlyIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "000000000005.data")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	f, err := Open(path, false)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}
