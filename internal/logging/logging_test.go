package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger

	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{
			name:   "Debug level JSON format",
			level:  LevelDebug,
			format: FormatJSON,
		},
		{
			name:   "Info level JSON format",
			level:  LevelInfo,
			format: FormatJSON,
		},
		{
			name:   "Warn level JSON format",
			level:  LevelWarn,
			format: FormatJSON,
		},
		{
			name:   "Error level JSON format",
			level:  LevelError,
			format: FormatJSON,
		},
		{
			name:   "Info level Text format",
			level:  LevelInfo,
			format: FormatText,
		},
		{
			name:   "Default level (invalid value)",
			level:  Level(999),
			format: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			logger := GetLogger()
			if logger == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}

	InitLogger(LevelInfo, FormatJSON)
}

func TestWithDatabase(t *testing.T) {
	ctx := context.Background()
	path := "/tmp/test.db"

	newCtx := WithDatabase(ctx, path)

	if got := GetDatabase(newCtx); got != path {
		t.Errorf("Expected database path %s, got %s", path, got)
	}
}

func TestGetDatabase(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "Context with database path",
			ctx:      context.WithValue(context.Background(), DatabaseKey, "/tmp/x.db"),
			expected: "/tmp/x.db",
		},
		{
			name:     "Context without database path",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "Context with wrong type value",
			ctx:      context.WithValue(context.Background(), DatabaseKey, 12345),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetDatabase(tt.ctx)
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)

	tests := []struct {
		name string
		fn   func()
	}{
		{
			name: "Debug",
			fn: func() {
				Debug("debug message", "key", "value")
			},
		},
		{
			name: "Info",
			fn: func() {
				Info("info message", "key", "value")
			},
		},
		{
			name: "Warn",
			fn: func() {
				Warn("warning message", "key", "value")
			},
		},
		{
			name: "Error",
			fn: func() {
				Error("error message", "key", "value")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			if output == "" {
				t.Error("Expected log output, got empty string")
			}
		})
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)
	ctx := WithDatabase(context.Background(), "/tmp/ctx.db")

	tests := []struct {
		name string
		fn   func()
	}{
		{
			name: "DebugContext",
			fn: func() {
				DebugContext(ctx, "debug message", "key", "value")
			},
		},
		{
			name: "InfoContext",
			fn: func() {
				InfoContext(ctx, "info message", "key", "value")
			},
		},
		{
			name: "WarnContext",
			fn: func() {
				WarnContext(ctx, "warning message", "key", "value")
			},
		},
		{
			name: "ErrorContext",
			fn: func() {
				ErrorContext(ctx, "error message", "key", "value")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			if output == "" {
				t.Error("Expected log output, got empty string")
			}
			if !strings.Contains(output, "/tmp/ctx.db") {
				t.Error("Expected output to contain database path")
			}
		})
	}
}

func TestSchemaChange(t *testing.T) {
	InitLogger(LevelInfo, FormatJSON)

	output := captureLogOutput(func() {
		SchemaChange("create_table", 12, "name", "Person")
	})

	if !strings.Contains(output, "schema_change") {
		t.Error("Expected output to contain schema_change")
	}
	if !strings.Contains(output, "create_table") {
		t.Error("Expected output to contain operation")
	}
	if !strings.Contains(output, "Person") {
		t.Error("Expected output to contain custom args")
	}
}

func TestRowChange(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)

	output := captureLogOutput(func() {
		RowChange("trash", 12, 4)
	})

	if !strings.Contains(output, "row_change") {
		t.Error("Expected output to contain row_change")
	}
	if !strings.Contains(output, "trash") {
		t.Error("Expected output to contain operation")
	}
}

func TestQueryExecution(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)

	output := captureLogOutput(func() {
		QueryExecution(12, 50, 10*time.Millisecond)
	})

	if !strings.Contains(output, "query_execution") {
		t.Error("Expected output to contain query_execution")
	}
	if !strings.Contains(output, "duration_ms") {
		t.Error("Expected output to contain duration_ms")
	}
}

func TestSurrogateRebuild(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)

	output := captureLogOutput(func() {
		SurrogateRebuild(12, 3)
	})

	if !strings.Contains(output, "surrogate_rebuild") {
		t.Error("Expected output to contain surrogate_rebuild")
	}
}

func TestSessionEvent(t *testing.T) {
	InitLogger(LevelInfo, FormatJSON)

	output := captureLogOutput(func() {
		SessionEvent("open", "/tmp/session.db")
	})

	if !strings.Contains(output, "session_event") {
		t.Error("Expected output to contain session_event")
	}
	if !strings.Contains(output, "/tmp/session.db") {
		t.Error("Expected output to contain path")
	}
}

func TestUndoEvent(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)

	output := captureLogOutput(func() {
		UndoEvent("undo", 2, "action", "trash_row")
	})

	if !strings.Contains(output, "undo_event") {
		t.Error("Expected output to contain undo_event")
	}
	if !strings.Contains(output, "trash_row") {
		t.Error("Expected output to contain custom args")
	}
}

func TestLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("Expected LevelDebug < LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("Expected LevelInfo < LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("Expected LevelWarn < LevelError")
	}
}

func TestFormatConstants(t *testing.T) {
	if FormatJSON == FormatText {
		t.Error("Expected FormatJSON != FormatText")
	}
}
