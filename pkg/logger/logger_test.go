package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NamesLoggerAfterService(t *testing.T) {
	log := New("ignite-test")
	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Infow("hello", "k", "v") })
}

func TestNew_RespectsLogLevelEnvVar(t *testing.T) {
	t.Setenv("IGNITE_LOG_LEVEL", "error")
	log := New("ignite-test")
	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Debugw("suppressed") })
}

func TestNew_IgnoresUnparseableLogLevel(t *testing.T) {
	t.Setenv("IGNITE_LOG_LEVEL", "not-a-level")
	log := New("ignite-test")
	assert.NotNil(t, log)
}

func TestNewNop_DiscardsWithoutPanicking(t *testing.T) {
	log := NewNop()
	require.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Infow("noop", "fd", os.Stdout.Fd())
	})
}
