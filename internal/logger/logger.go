package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/polkiloo/cryptostore/internal/config"
)

// New creates a preconfigured slog.Logger writing JSON to stdout.
func New(cfg *config.Config) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	return slog.New(handler)
}

// ParseLevel maps a textual level to slog. Unknown values fall back to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
