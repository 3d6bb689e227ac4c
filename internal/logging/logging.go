// Package logging builds the slog loggers used by every command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/efebarandurmaz/codefinder/internal/config"
)

// ParseLevel maps a config level name onto a slog level. Unknown names fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger for cfg writing to w.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(w, &opts)
	case "text":
		h = slog.NewTextHandler(w, &opts)
	default:
		h = NewPrettyHandler(w, PrettyHandlerOptions{SlogOpts: opts})
	}
	return slog.New(h)
}

// Setup builds a stderr logger and installs it as the slog default.
func Setup(cfg config.LogConfig) *slog.Logger {
	logger := New(cfg, os.Stderr)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything. Used by tests and as the
// nil-logger fallback in constructors.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func sourceOf(pc uintptr) string {
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}
