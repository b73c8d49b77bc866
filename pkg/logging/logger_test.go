package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// decode parses the single JSON record in buf
func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFromEnv(t *testing.T) {
	t.Setenv(LevelEnv, "ERROR")
	logger := NewLogger()
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn enabled with ARENA_LOG_LEVEL=ERROR")
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled with ARENA_LOG_LEVEL=ERROR")
	}
}

func TestCorrelationIDs(t *testing.T) {
	if id := GetCorrelationID(context.Background()); id != "" {
		t.Errorf("GetCorrelationID() on empty context = %q", id)
	}

	run := WithCorrelationID(context.Background(), "")
	runID := GetCorrelationID(run)
	if len(runID) != 16 {
		t.Errorf("generated correlation ID %q, want 16 hex characters", runID)
	}
	if other := GenerateCorrelationID(); other == runID {
		t.Error("GenerateCorrelationID() repeated an ID")
	}

	tick := WithTick(run, 42)
	if got := GetCorrelationID(tick); got != "tick-42" {
		t.Errorf("GetCorrelationID() = %q, want %q", got, "tick-42")
	}
	if got := GetCorrelationID(run); got != runID {
		t.Errorf("WithTick changed the parent context: %q", got)
	}
}

func TestSanitizeAttributes(t *testing.T) {
	tests := []struct {
		key      string
		redacted bool
	}{
		{"pair_key", false},
		{"shape_a", false},
		{"collider_id", false},
		{"session_id", true},
		{"AUTH_TOKEN", true},
		{"db_password", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := sanitizeAttributes(nil, slog.String(tt.key, "value")).Value.String()
			if redacted := got == "[REDACTED]"; redacted != tt.redacted {
				t.Errorf("sanitizeAttributes(%q) = %q, redacted want %v", tt.key, got, tt.redacted)
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)
	ctx := WithTick(context.Background(), 7)

	tests := []struct {
		name  string
		log   func()
		level string
	}{
		{"debug", func() { logger.Debug(ctx, "pass complete", "pairs", 3) }, "DEBUG"},
		{"info", func() { logger.Info(ctx, "simulation started", "tick_rate", 20) }, "INFO"},
		{"warn", func() { logger.Warn(ctx, "remove of unregistered collider", "collider_id", 9) }, "WARN"},
		{"error", func() {
			logger.Error(ctx, "narrow phase test missing", errors.New("unsupported shape pair"),
				"pair_key", "1:0|2:1")
		}, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()
			entry := decode(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["correlation_id"] != "tick-7" {
				t.Errorf("correlation_id = %v, want tick-7", entry["correlation_id"])
			}
		})
	}

	buf.Reset()
	logger.Error(ctx, "narrow phase test missing", errors.New("unsupported shape pair"), "pair_key", "1:0|2:1")
	entry := decode(t, &buf)
	if entry["error"] != "unsupported shape pair" {
		t.Errorf("error = %v", entry["error"])
	}
	if entry["pair_key"] != "1:0|2:1" {
		t.Errorf("pair_key = %v, want it logged unredacted", entry["pair_key"])
	}
}

func TestNewLoggerWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelWarn)

	logger.Info(context.Background(), "filtered out")
	if buf.Len() != 0 {
		t.Fatalf("info record written below warn level: %s", buf.String())
	}

	logger.Warn(context.Background(), "spatial index overflowed at max depth", "overflows", 3)
	entry := decode(t, &buf)
	if entry["overflows"] != float64(3) {
		t.Errorf("overflows = %v, want 3", entry["overflows"])
	}
	if _, ok := entry["correlation_id"]; ok {
		t.Error("correlation_id logged without one in the context")
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "body %d", 1) != nil {
		t.Error("WrapError(nil) returned an error")
	}

	base := errors.New("unknown kind")
	wrapped := WrapError(base, "body %d", 3)
	if wrapped.Error() != "body 3: unknown kind" {
		t.Errorf("WrapError() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("WrapError() lost the wrapped error")
	}
	if got := WrapError(base, "failed to spawn boundary").Error(); got != "failed to spawn boundary: unknown kind" {
		t.Errorf("WrapError() = %q", got)
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo).With("component", "registry")

	logger.Info(context.Background(), "pass complete")
	if !strings.Contains(buf.String(), `"component":"registry"`) {
		t.Errorf("With() attribute missing from output: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard() logger enabled at error level")
	}
	// Must not panic at any level
	logger.Error(context.Background(), "dropped", errors.New("boom"))
	logger.Debug(context.Background(), "dropped")
}
