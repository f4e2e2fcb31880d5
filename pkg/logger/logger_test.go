package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   LoggerConfig
		expected zerolog.Level
	}{
		{"Default log level when no level specified", LoggerConfig{LogLevel: zerolog.NoLevel}, zerolog.InfoLevel},
		{"Debug log level", LoggerConfig{LogLevel: zerolog.DebugLevel}, zerolog.DebugLevel},
		{"Error log level", LoggerConfig{LogLevel: zerolog.ErrorLevel}, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFromConfig(tt.config)
			if l == nil {
				t.Fatal("Expected logger to be created, got nil")
			}
			if got := l.zl.GetLevel(); got != tt.expected {
				t.Errorf("Expected level %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLoggerConfigJsonConvertToDomain(t *testing.T) {
	if got := (LoggerConfigJson{LogLevel: "debug"}).ConvertToDomain().LogLevel; got != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", got)
	}
	if got := (LoggerConfigJson{LogLevel: "loud"}).ConvertToDomain().LogLevel; got != zerolog.NoLevel {
		t.Errorf("Expected unknown level to map to NoLevel, got %v", got)
	}
}

func TestLoggerWithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithLevel(zerolog.ErrorLevel)

	l.Info("info message")
	l.Error(errors.New("test error"), "error message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("Info message should not appear when level is set to Error")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should appear when level is set to Error")
	}
	if !strings.Contains(output, "test error") {
		t.Error("Expected error text in output")
	}
}

func TestLoggerDebugf(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithLevel(zerolog.DebugLevel)

	l.Debugf("debug message with %s", "formatting")

	output := buf.String()
	if !strings.Contains(output, "debug message with formatting") {
		t.Errorf("Expected formatted output, got: %s", output)
	}
	if !strings.Contains(output, `"level":"debug"`) {
		t.Error("Expected log level to be debug")
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New().WithOutput(&buf).WithFields(map[string]string{"component": "prover"})

	l.Warn("slow proof")

	output := buf.String()
	if !strings.Contains(output, `"component":"prover"`) {
		t.Errorf("Expected component field, got: %s", output)
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	l.Errorf(errors.New("boom"), "still %s", "nothing")
}

func TestSinkReceivesMessages(t *testing.T) {
	var got []string
	l := New().WithOutput(&bytes.Buffer{}).WithLevel(zerolog.ErrorLevel)
	AddSinkToLoggerInstance(l, func(msg string, level zerolog.Level) {
		got = append(got, level.String()+":"+msg)
	})

	l.Info("hello")
	l.Warnf("proof %d", 7)

	if len(got) != 2 {
		t.Fatalf("Expected 2 sink calls, got %d", len(got))
	}
	if got[0] != "info:hello" || got[1] != "warn:proof 7" {
		t.Errorf("Unexpected sink messages: %v", got)
	}
}
