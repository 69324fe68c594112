package logging

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pkgvet/pkgvet/internal/observability"
)

// prettyLogger writes human oriented lines through charmbracelet/log
type prettyLogger struct {
	base   *log.Logger
	closer io.Closer
}

func newPrettyLogger(w io.Writer, closer io.Closer, level log.Level) *prettyLogger {
	return &prettyLogger{
		base: log.NewWithOptions(w, log.Options{
			Level:           level,
			Prefix:          "pkgvet",
			ReportTimestamp: true,
			TimeFormat:      time.StampMilli,
		}),
		closer: closer,
	}
}

func (p *prettyLogger) Debug(component, msg string, fields ...any) {
	p.base.With("component", component).Debug(msg, fields...)
}

func (p *prettyLogger) Info(component, msg string, fields ...any) {
	p.base.With("component", component).Info(msg, fields...)
}

func (p *prettyLogger) Warn(component, msg string, fields ...any) {
	p.base.With("component", component).Warn(msg, fields...)
}

func (p *prettyLogger) Error(component, msg string, fields ...any) {
	p.base.With("component", component).Error(msg, fields...)
}

// Event logs at info. Field keys are sorted so lines are stable.
func (p *prettyLogger) Event(ctx context.Context, event string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 2+2*len(keys))
	if id := observability.OpID(ctx); id != "" {
		kv = append(kv, "op_id", id)
	}
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	p.base.Info(EventPrefix+event, kv...)
}

func (p *prettyLogger) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
