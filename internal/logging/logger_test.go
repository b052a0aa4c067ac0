package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Expected error=%v for %q, got %v", tt.wantErr, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Expected %s for %q, got %s", tt.want, tt.in, got)
		}
	}
}

func TestInitializeSilent(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected a no-op logger without a level")
	}
}

func withObserver(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := GetLogger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestLogDisconnect(t *testing.T) {
	logs := withObserver(t, zapcore.DebugLevel)
	l := GetLogger()

	LogDisconnect(l, 202, "AUTH_FAIL", "fatal", false)
	LogDisconnect(l, 200, "BEACON_TIMEOUT", "signal_loss", true)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("Expected fatal bucket at error level, got %s", entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("Expected retryable drop at warn level, got %s", entries[1].Level)
	}
	if got := entries[1].ContextMap()["reason_code"]; got != int64(200) {
		t.Errorf("Expected reason_code 200, got %v", got)
	}
}

func TestLogPortalMessageTruncates(t *testing.T) {
	logs := withObserver(t, zapcore.DebugLevel)

	LogPortalMessage("10.0.0.2:5000", "received", []byte(strings.Repeat("x", 600)))

	entries := logs.FilterMessage("Portal message").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	content, _ := entries[0].ContextMap()["content"].(string)
	if len(content) != 512+len("...") {
		t.Errorf("Expected truncated content, got %d bytes", len(content))
	}
	if got := entries[0].ContextMap()["length"]; got != int64(600) {
		t.Errorf("Expected length 600, got %v", got)
	}
}
