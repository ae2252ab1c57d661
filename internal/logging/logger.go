// Package logging configures structured logging with log/slog and
// propagates run identifiers through context so every entry of one
// import or export run can be correlated.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey int

const runIDKey ctxKey = 0

// Setup configures the global slog logger.
//
// Level values: "debug", "info", "warn", "error" (default: "info").
// Format values: "text", "json" (default: "text"). Use "json" when the
// output is shipped to a log pipeline; "text" reads better on a terminal.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

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

// WithRunID stores a run identifier in the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// FromContext returns a logger that includes the context's run_id, when
// one was stored with WithRunID.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		logger = logger.With("run_id", runID)
	}
	return logger
}

// WithFields returns a context logger with additional structured fields,
// for multi-step operations that carry consistent context.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
