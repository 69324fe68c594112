package otel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled is always valid", Config{Enabled: false, Protocol: "invalid", SampleRatio: -1}, false},
		{"valid otlphttp", Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 0.5}, false},
		{"valid otlpgrpc", Config{Enabled: true, Protocol: ProtocolGRPC, SampleRatio: 1.0}, false},
		{"invalid protocol", Config{Enabled: true, Protocol: "zipkin", SampleRatio: 1.0}, true},
		{"sample ratio below 0", Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: -0.1}, true},
		{"sample ratio above 1", Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 1.5}, true},
		{"endpoint url", Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 1, Endpoint: "https://otel.example.com:4318"}, false},
		{"bad endpoint url", Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 1, Endpoint: "http://bad host"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Endpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "")

	if got := (Config{Endpoint: "collector:4317"}).endpoint(); got != "collector:4317" {
		t.Errorf("explicit endpoint = %q", got)
	}
	if got := (Config{Protocol: ProtocolGRPC}).endpoint(); got != "localhost:4317" {
		t.Errorf("grpc default = %q", got)
	}
	if got := (Config{Protocol: ProtocolHTTP}).endpoint(); got != "http://localhost:4318" {
		t.Errorf("http default = %q", got)
	}

	t.Setenv(EndpointEnv, "http://env:4318")
	if got := (Config{Protocol: ProtocolHTTP}).endpoint(); got != "http://env:4318" {
		t.Errorf("env endpoint = %q", got)
	}
}

func TestConfig_Sampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "ParentBased"},
	}
	for _, tt := range tests {
		got := Config{SampleRatio: tt.ratio}.sampler().Description()
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}

type closingProvider struct {
	noop.TracerProvider
	closed bool
}

func (p *closingProvider) Shutdown(context.Context) error {
	p.closed = true
	return nil
}

func TestHandle_ShutdownForwarded(t *testing.T) {
	tp := &closingProvider{}
	if err := NewHandle(tp).Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !tp.closed {
		t.Error("Shutdown not forwarded to the provider")
	}

	if err := NewHandle(noop.NewTracerProvider()).Shutdown(context.Background()); err != nil {
		t.Errorf("noop provider Shutdown = %v", err)
	}
}

func TestSpanCreatedWithAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx := WithHandle(context.Background(), NewHandle(tp))

	_, span := Tracer(ctx).Start(ctx, "pkgvet.package",
		trace.WithAttributes(
			attribute.String("pkgvet.package.id", "Contoso.Core"),
			attribute.Int("pkgvet.violations", 2),
		),
	)
	span.SetStatus(codes.Ok, "")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "pkgvet.package" {
		t.Errorf("span name = %q, want %q", s.Name(), "pkgvet.package")
	}

	found := map[string]bool{}
	for _, attr := range s.Attributes() {
		found[string(attr.Key)] = true
	}
	for _, key := range []string{"pkgvet.package.id", "pkgvet.violations"} {
		if !found[key] {
			t.Errorf("missing attribute: %s", key)
		}
	}
}

func TestSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	h := NewHandle(tp)

	_, span := h.Tracer().Start(context.Background(), "pkgvet.failing")
	span.RecordError(errors.New("corrupt archive"))
	span.SetStatus(codes.Error, "failed")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}

	foundError := false
	for _, e := range spans[0].Events() {
		if e.Name == "exception" {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected error event to be recorded")
	}
}

func TestTracer_NoHandle(t *testing.T) {
	ctx := context.Background()
	if h := From(ctx); h != nil {
		t.Error("expected nil handle from empty context")
	}

	// no-op tracer must be usable
	_, span := Tracer(ctx).Start(ctx, "pkgvet.noop")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("no-op span should not carry a valid span context")
	}
}
