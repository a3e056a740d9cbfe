package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_FluentBuilderPopulatesFields(t *testing.T) {
	ve := NewValidationError(nil, ErrorCodeInvalidInput, "bad input").
		WithField("key").
		WithRule("max_size").
		WithProvided(10).
		WithExpected(4)

	assert.Equal(t, "key", ve.Field())
	assert.Equal(t, "max_size", ve.Rule())
	assert.Equal(t, 10, ve.Provided())
	assert.Equal(t, 4, ve.Expected())
}

func TestNewRequiredFieldError(t *testing.T) {
	err := NewRequiredFieldError("config")
	assert.Equal(t, "config", err.Field())
	assert.Equal(t, "required", err.Rule())
	assert.Equal(t, ErrorCodeInvalidInput, err.Code())
}

func TestNewFieldRangeError(t *testing.T) {
	err := NewFieldRangeError("key", 512, 0, 256)
	assert.Equal(t, "key", err.Field())
	assert.Equal(t, "range", err.Rule())
	assert.Equal(t, 512, err.Provided())
	assert.Equal(t, 0, err.Details()["minValue"])
	assert.Equal(t, 256, err.Details()["maxValue"])
}

func TestNewConfigurationValidationError(t *testing.T) {
	err := NewConfigurationValidationError("config", "Options and Logger are both required")
	assert.Equal(t, "config", err.Field())
	assert.Equal(t, "configuration_integrity", err.Rule())
	assert.Equal(t, "Options and Logger are both required", err.Details()["validationIssue"])
}

func TestNewFieldFormatError(t *testing.T) {
	err := NewFieldFormatError("dataDir", "", "non-empty path")
	assert.Equal(t, "dataDir", err.Field())
	assert.Equal(t, "format", err.Rule())
	assert.Equal(t, "non-empty path", err.Expected())
}
