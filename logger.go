package splitgo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with splitgo-specific context.
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
	return NewJSONLoggerTo(os.Stderr, level)
}

// NewJSONLoggerTo is NewJSONLogger writing to w.
func NewJSONLoggerTo(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewTextLoggerTo(os.Stderr, level)
}

// NewTextLoggerTo is NewTextLogger writing to w.
func NewTextLoggerTo(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID tags every record with the id of a partition run.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithSource adds the source directory to the logger.
func (l *Logger) WithSource(src string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", src),
	}
}

// LogStage logs the completion of a pipeline stage.
func (l *Logger) LogStage(ctx context.Context, stage Stage, duration time.Duration, err error, attrs ...any) {
	if err != nil {
		l.ErrorContext(ctx, "stage failed",
			append([]any{"stage", stage.String(), "duration", duration, "error", err}, attrs...)...,
		)
		return
	}
	l.InfoContext(ctx, "stage completed",
		append([]any{"stage", stage.String(), "duration", duration}, attrs...)...,
	)
}

// LogRemovedClass logs a class dropped by validation.
func (l *Logger) LogRemovedClass(ctx context.Context, classID int, name string, imageCount, minSamples int) {
	l.WarnContext(ctx, "class removed",
		"class_id", classID,
		"name", name,
		"image_count", imageCount,
		"min_samples", minSamples,
	)
}

// LogDumpShort logs a dump request that exceeded the available backgrounds.
func (l *Logger) LogDumpShort(ctx context.Context, requested, available int) {
	l.WarnContext(ctx, "dump count exceeds background images",
		"requested", requested,
		"available", available,
	)
}

// LogFallback logs the switch to random partitioning.
func (l *Logger) LogFallback(ctx context.Context, cause error) {
	l.WarnContext(ctx, "stratification infeasible, falling back to random split",
		"cause", cause,
	)
}

// LogMaterialize logs a materialization run.
func (l *Logger) LogMaterialize(ctx context.Context, files, failed int, bytes int64, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "materialize failed",
			"files", files,
			"failed", failed,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "materialize completed with failures",
			"files", files,
			"failed", failed,
			"bytes", bytes,
		)
	default:
		l.InfoContext(ctx, "materialize completed",
			"files", files,
			"bytes", bytes,
		)
	}
}
