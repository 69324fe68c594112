package otel

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Handle is an initialized tracer plus the flush of its provider
type Handle struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// shutdowner is implemented by sdktrace.TracerProvider
type shutdowner interface {
	Shutdown(context.Context) error
}

// NewHandle wraps an existing provider. Shutdown is forwarded when the
// provider supports it.
func NewHandle(tp trace.TracerProvider) *Handle {
	h := &Handle{tracer: tp.Tracer(ServiceName)}
	if s, ok := tp.(shutdowner); ok {
		h.shutdown = s.Shutdown
	}
	return h
}

func (h *Handle) Tracer() trace.Tracer { return h.tracer }

// Shutdown flushes pending spans
func (h *Handle) Shutdown(ctx context.Context) error {
	if h.shutdown == nil {
		return nil
	}
	return h.shutdown(ctx)
}

type handleKey struct{}

func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// From returns nil when tracing is off
func From(ctx context.Context) *Handle {
	h, _ := ctx.Value(handleKey{}).(*Handle)
	return h
}

// Tracer returns the context's tracer, or a no-op tracer when tracing is off
func Tracer(ctx context.Context) trace.Tracer {
	if h := From(ctx); h != nil && h.tracer != nil {
		return h.tracer
	}
	return noop.NewTracerProvider().Tracer(ServiceName)
}
