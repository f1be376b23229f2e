// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel is the environment variable consulted by DefaultConfig.
const EnvLevel = "TUNESTREAM_LOG_LEVEL"

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string    // "text" or "json"
	Output io.Writer // defaults to stderr; stdout is reserved for the now-playing line
}

// NewLogger creates a configured slog.Logger.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to a slog.Level.
// Valid values (case-insensitive): DEBUG, INFO, WARN, WARNING, ERROR.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// DefaultConfig returns the default logger configuration.
// The level comes from TUNESTREAM_LOG_LEVEL; unknown values fall back to INFO.
func DefaultConfig() Config {
	level, err := ParseLevel(os.Getenv(EnvLevel))
	if err != nil {
		level = slog.LevelInfo
	}
	return Config{
		Level:  level,
		Format: "text",
	}
}
