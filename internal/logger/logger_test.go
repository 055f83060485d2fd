package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"quickbid/internal/config"
)

func TestNewFallsBackOnUnknownSettings(t *testing.T) {
	l, err := New(config.LogConfig{Level: "chatty", Encoding: "xml"}, "quickbid")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info level should be enabled")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level should be disabled")
	}
}

func TestNewHonorsLevel(t *testing.T) {
	l, err := New(config.LogConfig{Level: "warn", Encoding: "json"}, "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn")
	}
}
