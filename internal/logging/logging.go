// Package logging builds the process-wide slog loggers. The MCP transport
// owns stdout, so handlers always write to stderr (or a caller-chosen sink).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel maps a config string onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a logger writing to w. Unknown formats fall back to text so a
// typo in configuration never silences logging.
func New(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything. Used by tests and as a
// safe default for optional loggers.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
