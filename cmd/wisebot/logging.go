package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jithsungh/wisebot/internal/config"
)

// newLogger builds the process logger from LOG_FORMAT, LOG_LEVEL and DEBUG.
func newLogger(w io.Writer, cfg config.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", cfg.Name)
}
