// Package record encodes and decodes the two on-disk record kinds ignite
// writes to every log file: data records (key + value) and hint records
// (key + pointer back to a data record). Both share a checksum scheme:
// CRC32 (IEEE) over key and value, XORed with 0xFF so that a fresh file
// hole of all-zero bytes can never be misread as a valid empty record.
package record

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
)

// headerSize is the fixed portion of a data record: checksum(4) +
// timestamp(4) + key_sz(8) + value_sz(8).
const headerSize = 4 + 4 + 8 + 8

// hintHeaderSize is the fixed portion of a hint record: checksum(4) +
// timestamp(4) + key_sz(8) + value_sz(8) + offset(8) + size(8).
const hintHeaderSize = headerSize + 8 + 8

// Data is a decoded data record: a key, a value (empty means tombstone),
// and the logical write time used to resolve conflicts across runs.
type Data struct {
	Timestamp uint32
	Key       []byte
	Value     []byte
}

// IsTombstone reports whether this record represents a deletion.
func (r Data) IsTombstone() bool {
	return len(r.Value) == 0
}

// Size returns the on-disk byte length of r once encoded.
func (r Data) Size() int64 {
	return int64(headerSize + len(r.Key) + len(r.Value))
}

// Hint is a decoded hint record: same key/timestamp metadata as a Data
// record, plus a pointer (offset, size) at the paired data record in the
// sibling sorted run.
type Hint struct {
	Timestamp uint32
	Key       []byte
	Tombstone bool
	Offset    uint64
	Size      uint64
}

func checksum(key, value []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(key)
	h.Write(value)
	return h.Sum32() ^ 0xFF
}

// WriteData encodes r and writes it to w, returning the number of bytes
// written. Callers capture the pre-write offset themselves (run.Append
// seeks to the end of the file before the call) to record where the
// record landed.
func WriteData(w io.Writer, r Data) (int64, error) {
	buf := make([]byte, headerSize+len(r.Key)+len(r.Value))

	cs := checksum(r.Key, r.Value)
	binary.LittleEndian.PutUint32(buf[0:4], cs)
	binary.LittleEndian.PutUint32(buf[4:8], r.Timestamp)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(r.Key)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(r.Value)))
	copy(buf[headerSize:headerSize+len(r.Key)], r.Key)
	copy(buf[headerSize+len(r.Key):], r.Value)

	n, err := w.Write(buf)
	return int64(n), err
}

// WriteHint encodes h and writes it to w.
func WriteHint(w io.Writer, h Hint) (int64, error) {
	value := []byte{}
	if !h.Tombstone {
		// Hint checksums cover the same (key, value) bytes the paired data
		// record does; since the hint doesn't carry the value, a tombstone
		// is the only case distinguishable purely from value length, so a
		// non-tombstone hint checksums against a single marker byte.
		value = []byte{1}
	}

	buf := make([]byte, hintHeaderSize+len(h.Key))
	cs := checksum(h.Key, value)
	binary.LittleEndian.PutUint32(buf[0:4], cs)
	binary.LittleEndian.PutUint32(buf[4:8], h.Timestamp)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(h.Key)))
	valueSz := uint64(0)
	if !h.Tombstone {
		valueSz = 1
	}
	binary.LittleEndian.PutUint64(buf[16:24], valueSz)
	binary.LittleEndian.PutUint64(buf[24:32], h.Offset)
	binary.LittleEndian.PutUint64(buf[32:40], h.Size)
	copy(buf[hintHeaderSize:], h.Key)

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadDataAt decodes one data record starting at the current position of
// r. ok is false both when r is at or past EOF and when the record's
// checksum fails to validate (a torn record) — the codec never panics on
// bad bytes and never distinguishes "absent" from "torn" to the caller;
// that distinction is the recovery procedure's job (it stops at the first
// torn record rather than skipping it).
func ReadDataAt(r io.Reader) (rec Data, ok bool, err error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Data{}, false, nil
		}
		return Data{}, false, err
	}

	cs := binary.LittleEndian.Uint32(header[0:4])
	ts := binary.LittleEndian.Uint32(header[4:8])
	keySz := binary.LittleEndian.Uint64(header[8:16])
	valueSz := binary.LittleEndian.Uint64(header[16:24])

	// Lengths this large only come from a damaged header; treat the record
	// as torn instead of attempting the allocation.
	if keySz > math.MaxInt32 || valueSz > math.MaxInt32 {
		return Data{}, false, nil
	}

	body := make([]byte, keySz+valueSz)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Data{}, false, nil
		}
		return Data{}, false, err
	}

	key := body[:keySz]
	value := body[keySz:]
	if checksum(key, value) != cs {
		return Data{}, false, nil
	}

	return Data{Timestamp: ts, Key: key, Value: value}, true, nil
}

// ReadHintAt decodes one hint record starting at the current position of r.
func ReadHintAt(r io.Reader) (rec Hint, ok bool, err error) {
	header := make([]byte, hintHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Hint{}, false, nil
		}
		return Hint{}, false, err
	}

	cs := binary.LittleEndian.Uint32(header[0:4])
	ts := binary.LittleEndian.Uint32(header[4:8])
	keySz := binary.LittleEndian.Uint64(header[8:16])
	valueSz := binary.LittleEndian.Uint64(header[16:24])
	offset := binary.LittleEndian.Uint64(header[24:32])
	size := binary.LittleEndian.Uint64(header[32:40])

	if keySz > math.MaxInt32 {
		return Hint{}, false, nil
	}

	key := make([]byte, keySz)
	if _, err := io.ReadFull(r, key); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Hint{}, false, nil
		}
		return Hint{}, false, err
	}

	tombstone := valueSz == 0
	value := []byte{}
	if !tombstone {
		value = []byte{1}
	}
	if checksum(key, value) != cs {
		return Hint{}, false, nil
	}

	return Hint{Timestamp: ts, Key: key, Tombstone: tombstone, Offset: offset, Size: size}, true, nil
}
