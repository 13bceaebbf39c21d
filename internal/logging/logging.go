// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// DatabaseKey is the context key for the database path.
	DatabaseKey ContextKey = "database"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Initialize with a default logger (JSON format, Info level)
	InitLogger(LevelInfo, FormatJSON)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithDatabase adds the database path to the context.
func WithDatabase(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, DatabaseKey, path)
}

// GetDatabase retrieves the database path from the context.
func GetDatabase(ctx context.Context) string {
	if path, ok := ctx.Value(DatabaseKey).(string); ok {
		return path
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if path := GetDatabase(ctx); path != "" {
		logger = logger.With("database", path)
	}
	return logger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Debug(msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// SchemaChange logs a schema catalog mutation.
func SchemaChange(operation string, tableOID int64, args ...any) {
	allArgs := []any{
		"operation", operation,
		"table_oid", tableOID,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("schema_change", allArgs...)
}

// RowChange logs a data row mutation.
func RowChange(operation string, tableOID, rowOID int64, args ...any) {
	allArgs := []any{
		"operation", operation,
		"table_oid", tableOID,
		"row_oid", rowOID,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("row_change", allArgs...)
}

// QueryExecution logs a data query with timing information.
func QueryExecution(tableOID int64, rows int, duration time.Duration, args ...any) {
	allArgs := []any{
		"table_oid", tableOID,
		"rows", rows,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("query_execution", allArgs...)
}

// SurrogateRebuild logs a display view rebuild cascade.
func SurrogateRebuild(tableOID int64, rebuilt int, args ...any) {
	allArgs := []any{
		"table_oid", tableOID,
		"rebuilt", rebuilt,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("surrogate_rebuild", allArgs...)
}

// SessionEvent logs database session lifecycle events.
func SessionEvent(event, path string, args ...any) {
	allArgs := []any{
		"event", event,
		"path", path,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("session_event", allArgs...)
}

// UndoEvent logs undo stack activity.
func UndoEvent(event string, depth int, args ...any) {
	allArgs := []any{
		"event", event,
		"depth", depth,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("undo_event", allArgs...)
}
