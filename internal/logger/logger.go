// Package logger provides the process-wide structured logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	closeFn = func() error { return nil }
)

// Initialize sets up the logger with the provided configuration.
// Console output goes to stderr so stdout stays free for command output.
func Initialize(config Config) error {
	l, closer, err := New(config, os.Stderr)
	if err != nil {
		return err
	}
	mu.Lock()
	prev := closeFn
	logger, closeFn = l, closer
	mu.Unlock()
	return prev()
}

// Close flushes and closes the rotating log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := closeFn()
	closeFn = func() error { return nil }
	return err
}

// L returns the current logger for components that take a *slog.Logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// New builds a logger from config writing console output to console.
// The returned closer releases the log file.
func New(config Config, console io.Writer) (*slog.Logger, func() error, error) {
	var handlers []slog.Handler
	closer := func() error { return nil }

	level := parseLogLevel(config.Level)
	opts := &slog.HandlerOptions{Level: level}

	// Console handler
	if config.ConsoleEnabled && console != nil {
		handlers = append(handlers, newHandler(console, config.ConsoleFormat, opts))
	}

	// File handler
	if config.FileEnabled {
		if config.FilePath == "" {
			return nil, nil, fmt.Errorf("logging: file_enabled requires file_path")
		}
		// Create lumberjack logger for log rotation
		logFile := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.FileMaxSizeMB,
			MaxBackups: config.FileMaxBackups,
			MaxAge:     config.FileMaxAgeDays,
			Compress:   config.FileCompress,
		}
		handlers = append(handlers, newHandler(logFile, config.FileFormat, opts))
		closer = logFile.Close
	}

	// If no handlers configured, discard
	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), closer, nil
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(newMultiHandler(handlers...)), closer, nil
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs an info message
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs a warning message
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs an error message
func Error(msg string, args ...any) { L().Error(msg, args...) }

// multiHandler is a handler that writes to multiple underlying handlers
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

// Enabled reports whether any handler handles records at the given level
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return newMultiHandler(handlers...)
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return newMultiHandler(handlers...)
}
