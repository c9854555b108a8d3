// Package logging adapts log/slog to the printf-style Debug/Info/Warn/
// Error convention the teacher's code is written against everywhere it
// takes a runtime.Logger, so the rest of this repository's call sites read
// the same way whether or not they're hosted inside Nakama.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger is the printf-style logging contract used throughout this
// repository, matching nakama-common/runtime.Logger's shape so
// internal/ports/nakama can hand its runtime.Logger straight through.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// slogLogger adapts a *slog.Logger to the Logger interface above.
type slogLogger struct {
	l *slog.Logger
}

// New builds a Logger backed by slog's JSON handler on stderr.
func New(level slog.Level) Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &slogLogger{l: slog.New(handler)}
}

// NewWithHandler builds a Logger backed by an arbitrary slog.Handler,
// mainly so tests can capture output.
func NewWithHandler(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) Debug(format string, args ...any) { s.l.Debug(sprintf(format, args...)) }
func (s *slogLogger) Info(format string, args ...any)  { s.l.Info(sprintf(format, args...)) }
func (s *slogLogger) Warn(format string, args ...any)  { s.l.Warn(sprintf(format, args...)) }
func (s *slogLogger) Error(format string, args ...any) { s.l.Error(sprintf(format, args...)) }

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
