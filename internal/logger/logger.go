package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"log/slog"

	"github.com/disco/terminald/internal/config"
)

// Level represents the log level
type Level slog.Level

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// String returns the string representation of the log level
func (l Level) String() string {
	return slog.Level(l).String()
}

// Logger wraps slog.Logger with level tracking and file-output ownership
type Logger struct {
	logger *slog.Logger
	level  Level
	closer io.Closer // set only when logging to a file
}

// New creates a new logger with the specified configuration
func New(cfg config.LoggingConfig) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var writer io.Writer
	var closer io.Closer
	switch cfg.Output {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
		closer = file
	}

	opts := &slog.HandlerOptions{
		Level: slog.Level(level),
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s (must be json or text)", cfg.Format)
	}

	return &Logger{
		logger: slog.New(handler),
		level:  level,
		closer: closer,
	}, nil
}

// NewDefault creates a new logger with default settings
func NewDefault() (*Logger, error) {
	return New(config.DefaultLoggingConfig())
}

// parseLevel converts a string log level to a Level
func parseLevel(level string) (Level, error) {
	switch level {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// With returns a new logger with additional key-value pairs. The derived
// logger shares the underlying handler but not the file-handle ownership;
// only the root logger created by New() should be closed.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger: l.logger.With(args...),
		level:  l.level,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// GetLevel returns the logger's level
func (l *Logger) GetLevel() Level {
	return l.level
}

// Enabled returns true if logging is enabled for the given level
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

// Close releases the log file handle, if any. Only the root logger owns the
// handle; calling Close on a derived logger is a no-op.
func (l *Logger) Close() error {
	if l.closer != nil {
		if err := l.closer.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.closer = nil
	}
	return nil
}

// global logger instance
var (
	globalLogger *Logger
	globalOnce   sync.Once
)

// InitGlobal initializes the global logger with the specified configuration
func InitGlobal(cfg config.LoggingConfig) error {
	var initErr error
	globalOnce.Do(func() {
		logger, err := New(cfg)
		if err != nil {
			initErr = err
			return
		}
		globalLogger = logger
	})
	return initErr
}

// Global returns the global logger instance
func Global() *Logger {
	if globalLogger == nil {
		logger, err := NewDefault()
		if err != nil {
			globalLogger = &Logger{
				logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
					Level: slog.LevelInfo,
				})),
				level: LevelInfo,
			}
		} else {
			globalLogger = logger
		}
	}
	return globalLogger
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	globalLogger = l
	globalOnce = sync.Once{}
}
