package logging

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Logger is the structured logger handed through the command context.
// component names the subsystem ("cli", "runner"); fields are key/value pairs.
type Logger interface {
	Debug(component, msg string, fields ...any)
	Info(component, msg string, fields ...any)
	Warn(component, msg string, fields ...any)
	Error(component, msg string, fields ...any)
	// Event records a named lifecycle point such as "run.finish"
	Event(ctx context.Context, event string, fields map[string]any)
	Close() error
}

// Nop discards everything
var Nop Logger = nopLogger{}

type loggerKey struct{}

func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From never returns nil
func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok && l != nil {
		return l
	}
	return Nop
}

// NewLogger builds the logger cfg asks for. A file Output is opened for
// append and closed by Close.
func NewLogger(cfg Config) (Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Format == "" || cfg.Format == FormatNone {
		return Nop, nil
	}

	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	lvl, _ := cfg.minLevel()

	if cfg.Format == FormatPretty {
		return newPrettyLogger(w, closer, lvl), nil
	}
	return &jsonlLogger{writer: w, closer: closer, minLevel: lvl}, nil
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	if output == "" || output == OutputStderr {
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log output: %w", err)
	}
	return f, f, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, ...any)                  {}
func (nopLogger) Info(string, string, ...any)                   {}
func (nopLogger) Warn(string, string, ...any)                   {}
func (nopLogger) Error(string, string, ...any)                  {}
func (nopLogger) Event(context.Context, string, map[string]any) {}
func (nopLogger) Close() error                                  { return nil }
