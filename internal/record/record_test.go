package record

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadData_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Data{Timestamp: 42, Key: []byte("hello"), Value: []byte("world")}

	n, err := WriteData(&buf, in)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out, ok, err := ReadDataAt(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("decoded record differs from what was written (-want +got):\n%s", diff)
	}
}

func TestWriteReadData_Tombstone(t *testing.T) {
	var buf bytes.Buffer
	in := Data{Timestamp: 1, Key: []byte("k"), Value: nil}

	_, err := WriteData(&buf, in)
	require.NoError(t, err)

	out, ok, err := ReadDataAt(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, out.IsTombstone())
}

func TestReadDataAt_EmptyReaderIsAbsentNotError(t *testing.T) {
	var buf bytes.Buffer
	_, ok, err := ReadDataAt(&buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadDataAt_TornRecordIsAbsentNotError(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteData(&buf, Data{Timestamp: 1, Key: []byte("k"), Value: []byte("v")})
	require.NoError(t, err)

	full := buf.Bytes()
	torn := bytes.NewReader(full[:len(full)-1])

	_, ok, err := ReadDataAt(torn)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadDataAt_ChecksumMismatchIsAbsentNotError(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteData(&buf, Data{Timestamp: 1, Key: []byte("k"), Value: []byte("v")})
	require.NoError(t, err)

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF // flip a byte in the value

	_, ok, err := ReadDataAt(bytes.NewReader(corrupted))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteReadHint_NonTombstoneRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Hint{Timestamp: 7, Key: []byte("k"), Tombstone: false, Offset: 128, Size: 64}

	_, err := WriteHint(&buf, in)
	require.NoError(t, err)

	out, ok, err := ReadHintAt(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestWriteReadHint_TombstoneRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Hint{Timestamp: 7, Key: []byte("k"), Tombstone: true, Offset: 0, Size: 0}

	_, err := WriteHint(&buf, in)
	require.NoError(t, err)

	out, ok, err := ReadHintAt(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, out.Tombstone)
}

func TestDataSize_MatchesEncodedLength(t *testing.T) {
	var buf bytes.Buffer
	rec := Data{Timestamp: 1, Key: []byte("abc"), Value: []byte("defgh")}
	n, err := WriteData(&buf, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.Size(), n)
}
