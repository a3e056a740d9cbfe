// Package logger builds the structured *zap.SugaredLogger ignite threads
// through the engine, storage manager, keydir, and compaction worker.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger tagged with the given
// service name. Output goes to stderr as JSON so ignite's logs compose
// cleanly with whatever aggregates a host process's own structured logs.
func New(service string) *zap.SugaredLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lv, ok := os.LookupEnv("IGNITE_LOG_LEVEL"); ok {
		var parsed zapcore.Level
		if err := parsed.UnmarshalText([]byte(lv)); err == nil {
			level = zap.NewAtomicLevelAt(parsed)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	base := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return base.Named(service).Sugar()
}

// NewNop returns a logger that discards everything, for tests and
// callers that don't want ignite's operational logging.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
