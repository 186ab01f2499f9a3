// Package logging sets up the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
)

// New builds a logger for the given environment: human-readable text with
// debug level locally, JSON elsewhere.
func New(env string) *slog.Logger {
	var h slog.Handler
	switch env {
	case "local", "test":
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(h)
}
