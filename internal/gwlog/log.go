// Package gwlog configures the node's structured logger. Every
// component receives a scoped *zap.Logger at construction time rather
// than reaching for a package-level global.
package gwlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-shaped logger: JSON encoding, ISO8601
// timestamps, level gated by debug.
func New(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         "json",
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// Component returns a child logger tagged with the emitting component's
// name, e.g. gwlog.Component(base, "chain-synchroniser").
func Component(base *zap.Logger, name string) *zap.Logger {
	return base.With(zap.String("component", name))
}
