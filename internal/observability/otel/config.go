// Package otel wires OpenTelemetry tracing for pkgvet runs.
// Tracing is off unless otel.enabled is set.
package otel

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// OTLP exporter protocols
const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// ServiceName reported in the trace resource
const ServiceName = "pkgvet"

// EndpointEnv is consulted when no endpoint is configured
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Config holds OTel initialization options.
type Config struct {
	Enabled     bool
	Endpoint    string // host:port, or a URL with http/https scheme
	Protocol    string
	Insecure    bool
	ServiceName string
	SampleRatio float64 // 0..1
}

func DefaultConfig() Config {
	return Config{
		Protocol:    ProtocolHTTP,
		ServiceName: ServiceName,
		SampleRatio: 1.0,
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		errs = append(errs, fmt.Errorf("otel: protocol must be %s or %s, got %q", ProtocolHTTP, ProtocolGRPC, c.Protocol))
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, errors.New("otel: sample-ratio must be between 0 and 1"))
	}
	if hasScheme(c.Endpoint) {
		if _, err := url.Parse(c.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("otel: invalid endpoint: %w", err))
		}
	}
	return errors.Join(errs...)
}

// endpoint falls back to EndpointEnv, then the protocol's local collector
func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if env := os.Getenv(EndpointEnv); env != "" {
		return env
	}
	if c.Protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "http://localhost:4318"
}

func (c Config) service() string {
	if c.ServiceName == "" {
		return ServiceName
	}
	return c.ServiceName
}

func (c Config) sampler() sdktrace.Sampler {
	switch {
	case c.SampleRatio >= 1.0:
		return sdktrace.AlwaysSample()
	case c.SampleRatio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
	}
}

// exporters take host:port; full URLs need the WithEndpointURL options
func hasScheme(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}
