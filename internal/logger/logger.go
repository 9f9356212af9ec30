package logger

import (
	"log/slog"
	"os"
)

// InitLogger configures the process-wide logger. Development gets a
// verbose text handler with source locations; anything else gets JSON
// for structured log shipping.
func InitLogger(environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
