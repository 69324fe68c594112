package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pkgvet/pkgvet/internal/observability"
	"github.com/pkgvet/pkgvet/internal/version"
)

const SchemaVersion = "1.0"

// EventPrefix namespaces event names
const EventPrefix = "pkgvet."

// jsonlLogger writes one envelope per line. The zero minLevel is info.
type jsonlLogger struct {
	mu       sync.Mutex
	writer   io.Writer
	closer   io.Closer
	minLevel log.Level
}

type logEntry struct {
	Timestamp     string         `json:"ts"`
	Level         string         `json:"level"`
	Event         string         `json:"event,omitempty"`
	Component     string         `json:"component"`
	OpID          string         `json:"op_id,omitempty"`
	SchemaVersion string         `json:"schema_version"`
	PkgvetVersion string         `json:"pkgvet_version"`
	GoVersion     string         `json:"go_version"`
	Message       string         `json:"msg,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

func newEntry(level log.Level, component string) logEntry {
	return logEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level.String(),
		Component:     component,
		SchemaVersion: SchemaVersion,
		PkgvetVersion: version.BuildVersion(),
		GoVersion:     runtime.Version(),
	}
}

func (j *jsonlLogger) log(level log.Level, component, msg string, fields []any) {
	if level < j.minLevel {
		return
	}
	entry := newEntry(level, component)
	entry.Message = msg
	entry.Fields = pairsToMap(fields)
	j.write(entry)
}

// Event is logged at info regardless of the level; its component is the
// first segment of the event name.
func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	component, _, _ := strings.Cut(event, ".")
	entry := newEntry(log.InfoLevel, component)
	entry.Event = EventPrefix + event
	entry.OpID = observability.OpID(ctx)
	entry.Fields = fields
	j.write(entry)
}

// pairsToMap turns key/value varargs into a map; odd trailing keys are dropped
func pairsToMap(fields []any) map[string]any {
	if len(fields) < 2 {
		return nil
	}
	m := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			m[key] = fields[i+1]
		}
	}
	return m
}

// write drops entries it cannot encode or deliver
func (j *jsonlLogger) write(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(data)
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(log.DebugLevel, component, msg, fields)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(log.InfoLevel, component, msg, fields)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(log.WarnLevel, component, msg, fields)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(log.ErrorLevel, component, msg, fields)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
