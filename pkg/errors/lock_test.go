package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockError_PathAndDetails(t *testing.T) {
	le := NewLockError(nil, ErrorCodeAlreadyLocked, "directory is locked").WithPath("/data")

	assert.Equal(t, "/data", le.Path())
	assert.Equal(t, map[string]any{"path": "/data"}, le.Details())
}

func TestLockError_DetailsNilWhenPathUnset(t *testing.T) {
	le := NewLockError(nil, ErrorCodeAlreadyLocked, "directory is locked")
	assert.Nil(t, le.Details())
}
