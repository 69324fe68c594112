package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pkgvet/pkgvet/internal/observability"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

func TestJSONLLogger_EventEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logger := &jsonlLogger{writer: &buf}

	ctx := observability.WithOpID(context.Background())
	logger.Event(ctx, "package.evaluated", map[string]any{"outcome": "invalid", "violations": 2})

	entry := decodeLine(t, buf.String())

	for _, field := range []string{"ts", "level", "event", "component", "op_id", "schema_version", "pkgvet_version"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
	if entry["event"] != "pkgvet.package.evaluated" {
		t.Errorf("event = %v, want pkgvet.package.evaluated", entry["event"])
	}
	if entry["schema_version"] != SchemaVersion {
		t.Errorf("schema_version = %v, want %s", entry["schema_version"], SchemaVersion)
	}
	if entry["op_id"] != observability.OpID(ctx) {
		t.Errorf("op_id = %v, want %v", entry["op_id"], observability.OpID(ctx))
	}
	if entry["component"] != "package" {
		t.Errorf("component = %v, want package", entry["component"])
	}

	fields, ok := entry["fields"].(map[string]any)
	if !ok {
		t.Fatal("fields is not a map")
	}
	if fields["violations"] != float64(2) {
		t.Errorf("violations = %v, want 2", fields["violations"])
	}
	if fields["outcome"] != "invalid" {
		t.Errorf("outcome = %v, want invalid", fields["outcome"])
	}
}

func TestJSONLLogger_KeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	logger := &jsonlLogger{writer: &buf}

	logger.Info("runner", "resolved", "pattern", "*.nupkg", "count", 3, "dangling")

	entry := decodeLine(t, buf.String())
	if entry["component"] != "runner" || entry["msg"] != "resolved" {
		t.Errorf("component/msg = %v/%v", entry["component"], entry["msg"])
	}
	fields := entry["fields"].(map[string]any)
	if fields["pattern"] != "*.nupkg" || fields["count"] != float64(3) {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := fields["dangling"]; ok {
		t.Error("odd trailing key should be dropped")
	}
}

func TestJSONLLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		minLevel string
		method   func(*jsonlLogger)
		want     bool
	}{
		{LevelInfo, func(l *jsonlLogger) { l.Debug("c", "m") }, false},
		{LevelInfo, func(l *jsonlLogger) { l.Info("c", "m") }, true},
		{LevelDebug, func(l *jsonlLogger) { l.Debug("c", "m") }, true},
		{LevelWarn, func(l *jsonlLogger) { l.Info("c", "m") }, false},
		{LevelWarn, func(l *jsonlLogger) { l.Error("c", "m") }, true},
		{LevelError, func(l *jsonlLogger) { l.Warn("c", "m") }, false},
		{LevelError, func(l *jsonlLogger) { l.Event(context.Background(), "run.finish", nil) }, true},
	}

	for _, tt := range tests {
		lvl, err := Config{Level: tt.minLevel}.minLevel()
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		logger := &jsonlLogger{writer: &buf, minLevel: lvl}
		tt.method(logger)

		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("minLevel=%s: got output=%v, want %v", tt.minLevel, got, tt.want)
		}
	}
}

func TestJSONLLogger_OneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := &jsonlLogger{writer: &buf}

	ctx := observability.WithOpID(context.Background())
	logger.Event(ctx, "run.start", nil)
	logger.Event(ctx, "run.finish", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		decodeLine(t, line)
	}
}

func TestPrettyLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := newPrettyLogger(&buf, nil, log.InfoLevel)

	logger.Debug("cli", "hidden")
	logger.Event(context.Background(), "run.finish", map[string]any{"valid": 1, "invalid": 3})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
	for _, want := range []string{"pkgvet.run.finish", "invalid=3", "valid=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q should contain %q", out, want)
		}
	}
	if strings.Index(out, "invalid=3") > strings.Index(out, "valid=1") {
		t.Error("event fields should be sorted by key")
	}
}

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		format Format
		check  func(Logger) bool
	}{
		{"", func(l Logger) bool { return l == Nop }},
		{FormatNone, func(l Logger) bool { return l == Nop }},
		{FormatPretty, func(l Logger) bool { _, ok := l.(*prettyLogger); return ok }},
		{FormatJSONL, func(l Logger) bool { _, ok := l.(*jsonlLogger); return ok }},
	}

	for _, tt := range tests {
		logger, err := NewLogger(Config{Format: tt.format})
		if err != nil {
			t.Fatalf("NewLogger(%q) failed: %v", tt.format, err)
		}
		if !tt.check(logger) {
			t.Errorf("NewLogger(%q) returned %T", tt.format, logger)
		}
		logger.Close()
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, err := NewLogger(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
	for _, level := range []string{"trace", "fatal"} {
		if _, err := NewLogger(Config{Format: FormatJSONL, Level: level}); err == nil {
			t.Errorf("expected error for level %q", level)
		}
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "pkgvet.log")

	logger, err := NewLogger(Config{Format: FormatJSONL, Output: logFile})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Event(observability.WithOpID(context.Background()), "run.start", nil)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	decodeLine(t, string(data))
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	logger := From(ctx)
	if logger == nil {
		t.Fatal("From should never return nil")
	}
	// must not panic
	logger.Info("test", "msg")
	logger.Event(ctx, "test.event", nil)

	original := &jsonlLogger{writer: &bytes.Buffer{}}
	if From(WithLogger(ctx, original)) != original {
		t.Error("From should return the logger stored in context")
	}
}
