package logging

import (
	"bytes"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "debug level", config: &Config{Level: LevelDebug, Output: &bytes.Buffer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Fatal("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("threshold message")
	if buf.Len() == 0 {
		t.Fatal("expected warn message to be logged")
	}
}

func TestLoggerArgFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Info("probing device", "controller", 0, "slot", 1)
	out := buf.String()
	if want := "controller=0 slot=1"; !containsSubstring(out, want) {
		t.Fatalf("expected %q in output, got: %s", want, out)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	if !containsSubstring(buf.String(), "debug message") {
		t.Fatalf("expected debug message, got: %s", buf.String())
	}

	buf.Reset()
	Error("error message")
	if !containsSubstring(buf.String(), "error message") {
		t.Fatalf("expected error message, got: %s", buf.String())
	}
}

func containsSubstring(haystack, needle string) bool {
	return bytes.Contains([]byte(haystack), []byte(needle))
}
