// Package log configures the process-wide slog logger the entrypoints
// share. Every component logger descends from it via WithModule, so the
// "module" attribute identifies the subsystem (engine, dispatcher, web,
// cli) on each line.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. The level string is matched
// case-insensitively; anything unrecognized falls back to info. Setting
// LOG_FORMAT=json switches to JSON output for log collectors, otherwise
// lines go to stderr as text.
func Setup(logLevel string) {
	opts := &slog.HandlerOptions{Level: parseLevel(logLevel)}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithModule returns a logger tagged with the subsystem name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
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
