// Package logger builds the JSON slog logger shared by the gateway and the
// worker services.
package logger

import (
	"log/slog"
	"os"
)

// New returns a structured logger. level is one of debug, info, warn or
// error; anything else falls back to info.
func New(level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
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
