package logging

import (
	"log/slog"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
		{Level(-1), slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.toSlogLevel(); got != tt.want {
				t.Errorf("Level.toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_Ordering(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be < LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be < LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be < LevelError")
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.slog == nil {
		t.Error("logger.slog is nil")
	}
}

func TestNew_AllLevels(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		t.Run(level.String(), func(t *testing.T) {
			logger := New(Config{Level: level})
			if logger == nil {
				t.Fatal("New() returned nil")
			}
		})
	}
}

func TestNew_WithService(t *testing.T) {
	logger := New(Config{Service: "test-service"})
	if logger.config.Service != "test-service" {
		t.Errorf("Service = %v, want test-service", logger.config.Service)
	}
}

func TestNew_WithJSON(t *testing.T) {
	logger := New(Config{JSON: true})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger.config.Level != LevelInfo {
		t.Errorf("Default level = %v, want LevelInfo", logger.config.Level)
	}
	if logger.config.Service != "dupefind" {
		t.Errorf("Default service = %v, want dupefind", logger.config.Service)
	}
}

// These just exercise the leveled methods for panics; slog's own handler
// tests cover formatting and level gating.
func TestLogger_LeveledMethodsDoNotPanic(t *testing.T) {
	logger := New(Config{Level: LevelDebug})
	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "count", 42)
	logger.Warn("warn message", "attempt", 2)
	logger.Error("error message", "error", "something failed")
}

func TestLogger_With(t *testing.T) {
	logger := New(Config{Level: LevelInfo})
	child := logger.With("request_id", "abc123")
	if child == nil {
		t.Fatal("With() returned nil")
	}
	child.Info("request started")
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{})
	if logger.Slog() == nil {
		t.Error("Slog() returned nil")
	}
}

func TestConfig_ZeroValue(t *testing.T) {
	var config Config
	if config.Level != LevelDebug {
		t.Errorf("zero Config.Level = %v, want LevelDebug", config.Level)
	}
	if config.Service != "" {
		t.Error("Service zero value should be empty")
	}
	if config.JSON {
		t.Error("JSON zero value should be false")
	}
}
