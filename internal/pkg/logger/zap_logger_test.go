package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zap.DebugLevel},
		{"DEBUG", zap.DebugLevel},
		{"verbose", zap.DebugLevel},
		{"info", zap.InfoLevel},
		{"warn", zap.WarnLevel},
		{"Warning", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"", zap.InfoLevel},
		{"foobar", zap.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Info("REAPER", "Evicted idle sessions", map[string]interface{}{"removed": 2})
	l.Error("REPLY", "Completion failed", map[string]interface{}{"error": errors.New("boom")})
	l.Warn("BOT", "nil details", nil)

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	first := entries[0].ContextMap()
	if first["module"] != "REAPER" {
		t.Errorf("module = %v, want REAPER", first["module"])
	}

	second := entries[1].ContextMap()
	if _, ok := second["error_ref"]; !ok {
		t.Errorf("expected error_ref field on error entry, got %v", second)
	}

	if entries[2].Level != zap.WarnLevel {
		t.Errorf("level = %v, want warn", entries[2].Level)
	}
}
