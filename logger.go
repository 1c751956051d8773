package cmsketch

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with sketch-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogCreate logs the creation of a sketch.
func (l *Logger) LogCreate(ctx context.Context, path string, width, maxValue uint64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create failed",
			"path", path,
			"width", width,
			"max_value", maxValue,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "sketch created",
			"path", path,
			"width", width,
			"max_value", maxValue,
			"elapsed", elapsed,
		)
	}
}

// LogOpen logs an open or load of an existing sketch file.
func (l *Logger) LogOpen(ctx context.Context, op, path string, flags Flags, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"path", path,
			"flags", flags,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"path", path,
			"flags", flags,
		)
	}
}

// LogSave logs a save.
func (l *Logger) LogSave(ctx context.Context, path string, bytes int64, atomic bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"path", path,
			"atomic", atomic,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sketch saved",
			"path", path,
			"bytes", bytes,
			"atomic", atomic,
		)
	}
}

// LogMerge logs a merge.
func (l *Logger) LogMerge(ctx context.Context, width uint64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"width", width,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "merge completed",
			"width", width,
			"elapsed", elapsed,
		)
	}
}

// LogShrink logs a shrink from one width to another.
func (l *Logger) LogShrink(ctx context.Context, fromWidth, toWidth uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "shrink failed",
			"from_width", fromWidth,
			"to_width", toWidth,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "shrink completed",
			"from_width", fromWidth,
			"to_width", toWidth,
		)
	}
}

// LogExport logs an archive export.
func (l *Logger) LogExport(ctx context.Context, name string, compression Compression, raw, written int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"name", name,
			"compression", compression,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sketch exported",
			"name", name,
			"compression", compression,
			"raw_bytes", raw,
			"written_bytes", written,
		)
	}
}

// LogImport logs an archive import.
func (l *Logger) LogImport(ctx context.Context, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "import failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sketch imported",
			"name", name,
			"bytes", bytes,
		)
	}
}
