package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptions_IndependentRunOptionsPointer(t *testing.T) {
	a := NewDefaultOptions()
	b := NewDefaultOptions()
	require.NotSame(t, a.RunOptions, b.RunOptions)

	a.RunOptions.Prefix = "mutated"
	assert.Equal(t, DefaultRunPrefix, b.RunOptions.Prefix, "mutating one copy's RunOptions must not affect another")
}

func TestWithDataDir_TrimsAndIgnoresBlank(t *testing.T) {
	o := NewDefaultOptions()
	WithDataDir("  /data  ")(&o)
	assert.Equal(t, "/data", o.DataDir)

	WithDataDir("   ")(&o)
	assert.Equal(t, "/data", o.DataDir, "blank value must not overwrite an existing DataDir")
}

func TestWithMaxLogLength_IgnoresZero(t *testing.T) {
	o := NewDefaultOptions()
	WithMaxLogLength(0)(&o)
	assert.Equal(t, DefaultMaxLogLength, o.MaxLogLength)

	WithMaxLogLength(1024)(&o)
	assert.EqualValues(t, 1024, o.MaxLogLength)
}

func TestWithMergeWindow_IgnoresZero(t *testing.T) {
	o := NewDefaultOptions()
	WithMergeWindow(0)(&o)
	assert.Equal(t, DefaultMergeWindow, o.MergeWindow)
}

func TestWithDefaultOptions_ResetsPriorMutation(t *testing.T) {
	o := NewDefaultOptions()
	WithDataDir("/other")(&o)
	WithDefaultOptions()(&o)
	assert.Equal(t, DefaultDataDir, o.DataDir)
}

func TestOpenOptionsBuilder_ChainsOverDefaults(t *testing.T) {
	built := NewOpenOptions().
		MaxLogLength(4096).
		MergeWindow(5).
		MergeRatio(2).
		Options()

	assert.EqualValues(t, 4096, built.MaxLogLength)
	assert.EqualValues(t, 5, built.MergeWindow)
	assert.EqualValues(t, 2, built.MergeRatio)
	assert.Equal(t, DefaultDataDir, built.DataDir, "untouched fields keep their default")
}

func TestWithOptions_ReplacesEveryField(t *testing.T) {
	built := NewOpenOptions().MaxKeySize(128).Options()

	target := NewDefaultOptions()
	target.DataDir = "/should-be-overwritten"
	WithOptions(built)(&target)

	assert.EqualValues(t, 128, target.MaxKeySize)
	assert.Equal(t, DefaultDataDir, target.DataDir)
}
