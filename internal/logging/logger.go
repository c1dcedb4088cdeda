// Package logging provides structured logging configuration using log/slog.
//
// Every csvtools invocation carries a run ID in its context. FromContext
// attaches it to log entries together with chi's request ID when the
// context belongs to an HTTP request, so a run or a request can be followed
// across everything it logged.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Setup configures the global slog logger based on level and format and
// returns it. Logs go to stderr so stdout stays free for command output.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	return SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type contextKey string

const ctxKeyRunID contextKey = "run_id"

// WithRunID stores the run ID in ctx.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, id)
}

// NewRun stores a fresh random run ID in ctx and returns both.
func NewRun(ctx context.Context) (context.Context, uuid.UUID) {
	id := uuid.New()
	return WithRunID(ctx, id), id
}

// RunID returns the run ID stored in ctx, or uuid.Nil.
func RunID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ctxKeyRunID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// FromContext returns the default logger enriched with run_id and, inside
// an HTTP request, request_id.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("scan finished", "file", path, "invalid", summary.Invalid)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if id := RunID(ctx); id != uuid.Nil {
		logger = logger.With("run_id", id.String())
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	scanLogger := logging.WithFields(ctx, "file", path, "model", m.Name())
//	scanLogger.Info("scan started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
