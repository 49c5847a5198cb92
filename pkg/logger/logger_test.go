package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(Config{
		Level:     "debug",
		Format:    "json",
		Output:    "stderr",
		Component: "test",
	})
	if err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(Config{
		Level:     "trace",
		Format:    "console",
		Component: "test",
	})
	if err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.TraceLevel {
		t.Errorf("global level = %v, want trace", zerolog.GlobalLevel())
	}
}
