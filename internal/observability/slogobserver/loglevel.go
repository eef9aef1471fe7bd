package slogobserver

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelFromEnv returns the log level configured via environment variables.
// It checks NODEGRAPH_LOG_LEVEL first, then falls back to LOG_LEVEL.
// Supported values: DEBUG, INFO, WARN, WARNING, ERROR. Default: INFO.
func LevelFromEnv() slog.Level {
	level := os.Getenv("NODEGRAPH_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		return slog.LevelInfo
	}
	return ParseLevel(level)
}

// ParseLevel parses a log level string into slog.Level (case-insensitive).
// Returns INFO for unknown values and prints a warning to stderr.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "warning: unknown log level %q, using INFO\n", level)
		return slog.LevelInfo
	}
}
