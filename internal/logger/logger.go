package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

type implLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// New creates a text Logger writing to stdout.
func New(level string) Logger {
	return NewWithFormat(level, "text", os.Stdout)
}

// NewWithFormat creates a Logger with the given level and format ("json" or "text").
func NewWithFormat(level, format string, w io.Writer) Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &implLogger{
		logger: slog.New(handler),
		level:  lvl,
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return NewWithFormat("error", "text", io.Discard)
}

// WithTaskID returns a context whose log lines carry the task id.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, taskID)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func (l *implLogger) shouldLog(level slog.Level) bool {
	return level >= l.level
}

func (l *implLogger) log(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if taskID, ok := ctx.Value(ctxKey{}).(string); ok && taskID != "" {
		l.logger.Log(ctx, level, msg, "task_id", taskID)
		return
	}
	l.logger.Log(ctx, level, msg)
}

func (l *implLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

func (l *implLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

func (l *implLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

func (l *implLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.log(ctx, slog.LevelError, msg, args...)
}
