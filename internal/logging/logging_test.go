package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("expected Level to be InfoLevel, got %v", cfg.Level)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected Output to be os.Stderr")
	}
	if cfg.Pretty != false {
		t.Errorf("expected Pretty to be false")
	}
	if cfg.TimeFormat != time.RFC3339 {
		t.Errorf("expected TimeFormat to be RFC3339, got %s", cfg.TimeFormat)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"  DEBUG  ", DebugLevel},
		{"INFO", InfoLevel},
		{"WARN", WarnLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"FATAL", FatalLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: DebugLevel, Output: &buf})

	log.Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected structured field in output, got %s", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("expected message in output, got %s", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: ErrorLevel, Output: &buf})

	log.Info().Msg("suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected info to be suppressed at error level, got %s", buf.String())
	}

	log.Error().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected error output, got %s", buf.String())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, Output: &buf})
	defer Init(DefaultConfig())

	log := Component("acl")
	log.Info().Msg("configured")

	if !strings.Contains(buf.String(), `"component":"acl"`) {
		t.Errorf("expected component field, got %s", buf.String())
	}
}
