package keydir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite-kv/ignite/pkg/logger"
)

func newTestKeydir() *Keydir {
	return New(logger.NewNop(), 0)
}

func TestPutGet(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{RunID: 1, Offset: 0, Size: 10, Timestamp: 1})

	entry, ok := k.Get([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, uint64(1), entry.RunID)
}

func TestPut_OlderTimestampLoses(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{RunID: 2, Timestamp: 5})
	k.Put([]byte("a"), Entry{RunID: 1, Timestamp: 3})

	entry, ok := k.Get([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, uint64(2), entry.RunID, "newer entry by timestamp must win regardless of call order")
}

func TestPut_NewerTimestampWins(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{RunID: 1, Timestamp: 3})
	k.Put([]byte("a"), Entry{RunID: 2, Timestamp: 5})

	entry, ok := k.Get([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, uint64(2), entry.RunID)
}

func TestRemove(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{RunID: 1})
	k.Remove([]byte("a"))

	_, ok := k.Get([]byte("a"))
	assert.False(t, ok)
	assert.False(t, k.Contains([]byte("a")))
}

func TestLenAndKeys(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{})
	k.Put([]byte("b"), Entry{})
	assert.Equal(t, 2, k.Len())
	assert.ElementsMatch(t, [][]byte{[]byte("a"), []byte("b")}, k.Keys())
}

func TestDiskSize(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{Size: 10})
	k.Put([]byte("b"), Entry{Size: 20})
	assert.Equal(t, int64(30), k.DiskSize())
}

func TestClose_EmptiesDirectory(t *testing.T) {
	k := newTestKeydir()
	k.Put([]byte("a"), Entry{})
	k.Close()
	assert.Equal(t, 0, k.Len())
}
