// Package logging wraps log/slog with the leveled, service-tagged logger
// used across the similarity store: a thin constructor over slog's handler
// chain, plus a Level type that matches dupefind's own severities instead of
// slog's wider, float-valued scale.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Level is one of the four severities the store logs at.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures a Logger. The zero value logs at LevelDebug, text
// formatted, to stderr, with no service tag.
type Config struct {
	Level   Level
	Service string
	JSON    bool
}

// Logger is a leveled wrapper around a single slog.Logger.
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New builds a Logger writing to stderr at config.Level. JSON selects
// slog's JSON handler over its text handler; everything else about the
// handler is left at slog's defaults.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	s := slog.New(handler)
	if config.Service != "" {
		s = s.With("service", config.Service)
	}

	return &Logger{slog: s, config: config}
}

// Default returns a Logger at LevelInfo tagged with the "dupefind" service
// name, suitable for a caller who does not configure logging explicitly.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "dupefind"})
}

func (l *Logger) log(level Level, msg string, args ...any) {
	l.slog.Log(context.Background(), level.toSlogLevel(), msg, args...)
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// With returns a child Logger that prepends args to every subsequent call.
// Used to scope a correlation id or request-level field across a handful of
// log lines without threading it through every call site.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config}
}

// Slog exposes the underlying slog.Logger for callers that need to pass a
// *slog.Logger into a third-party library.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}
