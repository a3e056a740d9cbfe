package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError_FluentBuilderPopulatesFields(t *testing.T) {
	se := NewStorageError(nil, ErrorCodeIO, "read failed").
		WithSegmentID(3).
		WithOffset(128).
		WithFileName("000000000003.data").
		WithPath("/data/000000000003.data")

	assert.Equal(t, 3, se.SegmentId())
	assert.Equal(t, 128, se.Offset())
	assert.Equal(t, "000000000003.data", se.FileName())
	assert.Equal(t, "/data/000000000003.data", se.Path())
}

func TestStorageError_PathIndependentOfFileName(t *testing.T) {
	se := NewStorageError(nil, ErrorCodeIO, "open failed").WithPath("/data/run.data")
	assert.Equal(t, "/data/run.data", se.Path())
	assert.Empty(t, se.FileName())
}
