package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseError_ErrorReturnsMessage(t *testing.T) {
	be := NewBaseError(nil, ErrorCodeIO, "boom")
	assert.Equal(t, "boom", be.Error())
}

func TestBaseError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying")
	be := NewBaseError(cause, ErrorCodeIO, "wrapped")
	assert.Same(t, cause, be.Unwrap())
	assert.True(t, errors.Is(be, cause))
}

func TestBaseError_WithMessageAndCodeChain(t *testing.T) {
	be := NewBaseError(nil, ErrorCodeInternal, "first").
		WithMessage("second").
		WithCode(ErrorCodeIO)

	assert.Equal(t, "second", be.Error())
	assert.Equal(t, ErrorCodeIO, be.Code())
}

func TestBaseError_WithDetailLazilyInitializes(t *testing.T) {
	be := NewBaseError(nil, ErrorCodeIO, "msg")
	assert.Nil(t, be.Details())

	be.WithDetail("offset", 42)
	assert.Equal(t, map[string]any{"offset": 42}, be.Details())
}
