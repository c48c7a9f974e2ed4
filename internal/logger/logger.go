// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and propagates
// the active momentum-window ID through context.Context, so every log
// line between window open and consume/expiry can be correlated.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const windowIDKey ctxKey = "window_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a LOG_LEVEL string to a slog.Level. Unknown values
// fall back to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithWindowID stores a momentum-window ID in the context.
func WithWindowID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, windowIDKey, id)
}

// WindowID extracts the window ID from context. Returns 0 if not set.
func WindowID(ctx context.Context) int64 {
	if v, ok := ctx.Value(windowIDKey).(int64); ok {
		return v
	}
	return 0
}

// WithWindow returns slog attributes including the window ID from
// context. Usage: slog.Info("msg", logger.WithWindow(ctx)...)
func WithWindow(ctx context.Context) []any {
	id := WindowID(ctx)
	if id == 0 {
		return nil
	}
	return []any{slog.Int64("window_id", id)}
}
