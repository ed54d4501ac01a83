package system

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a debug-level sugared logger that writes through
// t.Log and also records every entry for assertions.
func NewTestLogger(t testing.TB) (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	tl := zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel))
	logger := zap.New(zapcore.NewTee(tl.Core(), core))
	return logger.Sugar(), logs
}
