package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New constructs a text logger tagged with the service name.
func New(service string, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// FromEnv builds a service logger whose level comes from LOG_LEVEL.
func FromEnv(service string) *slog.Logger {
	return New(service, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// ParseLevel maps a level name to its slog.Level; unknown or empty input
// falls back to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
