package logger

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/lmittmann/tint"
)

// ConsoleLogger writes colored, human-readable lines to stderr.
type ConsoleLogger struct {
	log *slog.Logger
}

func NewConsoleLogger(level string) Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel(level),
		TimeFormat: time.Kitchen,
	})
	return &ConsoleLogger{log: slog.New(handler)}
}

func slogLevel(level string) slog.Level {
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

func (c *ConsoleLogger) Debug(msg string, fields map[string]any) {
	c.emit(slog.LevelDebug, msg, fields)
}

func (c *ConsoleLogger) Info(msg string, fields map[string]any) {
	c.emit(slog.LevelInfo, msg, fields)
}

func (c *ConsoleLogger) Warn(msg string, fields map[string]any) {
	c.emit(slog.LevelWarn, msg, fields)
}

func (c *ConsoleLogger) Error(msg string, fields map[string]any) {
	c.emit(slog.LevelError, msg, fields)
}

func (c *ConsoleLogger) emit(level slog.Level, msg string, fields map[string]any) {
	// sorted keys keep console lines stable between runs
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	c.log.LogAttrs(context.Background(), level, msg, attrs...)
}
