package dframe

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with frame-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithFrame tags every record with the page prefix of a frame.
func (l *Logger) WithFrame(prefix string) *Logger {
	if prefix == "" {
		return l
	}
	return &Logger{
		Logger: l.Logger.With("frame", prefix),
	}
}

// LogSeal logs a page write.
func (l *Logger) LogSeal(ctx context.Context, slice, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "slice write failed",
			"slice", slice,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "slice written",
		"slice", slice,
		"bytes", bytes,
	)
}

// LogLoad logs a page read.
func (l *Logger) LogLoad(ctx context.Context, slice, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "slice load failed",
			"slice", slice,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "slice loaded",
		"slice", slice,
		"bytes", bytes,
	)
}

// LogScan logs a completed ReadRows or WriteColumns call.
func (l *Logger) LogScan(ctx context.Context, op string, groups, rows int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"groups", groups,
			"rows", rows,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, op+" completed",
		"groups", groups,
		"rows", rows,
		"elapsed", elapsed,
	)
}

// LogResize logs a structural change.
func (l *Logger) LogResize(ctx context.Context, op string, rows, columns int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"rows", rows,
			"columns", columns,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, op+" completed",
		"rows", rows,
		"columns", columns,
	)
}

// LogClose logs the release of a frame.
func (l *Logger) LogClose(ctx context.Context, slices int, err error) {
	if err != nil {
		l.WarnContext(ctx, "frame close incomplete",
			"slices", slices,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "frame closed",
		"slices", slices,
	)
}
