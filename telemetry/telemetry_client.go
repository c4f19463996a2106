// Package telemetry installs the OpenTelemetry tracer provider that receives the spans
// of optimization passes.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/colorfulnotion/dexopt/log"
)

const ServiceName = "dexpeep"

// TelemetryClient owns the process-wide tracer provider.
type TelemetryClient struct {
	endpoint   string
	insecure   bool
	processors []sdktrace.SpanProcessor
	tp         *sdktrace.TracerProvider
	disabled   bool // if true, telemetry is disabled (no-op)
}

// NewNoOpTelemetryClient creates a disabled telemetry client that does nothing
func NewNoOpTelemetryClient() *TelemetryClient {
	return &TelemetryClient{disabled: true}
}

// NewTelemetryClient builds a client exporting over OTLP/HTTP to endpoint ("host:port").
// Extra processors receive every span as well; with an empty endpoint they are the only
// consumers.
func NewTelemetryClient(endpoint string, insecure bool, processors ...sdktrace.SpanProcessor) *TelemetryClient {
	return &TelemetryClient{endpoint: endpoint, insecure: insecure, processors: processors}
}

// Connect creates the exporter and installs the tracer provider globally.
func (c *TelemetryClient) Connect(ctx context.Context) error {
	if c.disabled {
		return nil
	}
	if c.tp != nil {
		return fmt.Errorf("telemetry client already connected to %q", c.endpoint)
	}

	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	popts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if c.endpoint != "" {
		eopts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.endpoint)}
		if c.insecure {
			eopts = append(eopts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, eopts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter for %s: %w", c.endpoint, err)
		}
		popts = append(popts, sdktrace.WithBatcher(exp))
	}
	for _, p := range c.processors {
		popts = append(popts, sdktrace.WithSpanProcessor(p))
	}
	c.tp = sdktrace.NewTracerProvider(popts...)
	otel.SetTracerProvider(c.tp)
	log.Debug(log.CLIModule, "telemetry connected", "endpoint", c.endpoint, "processors", len(c.processors))
	return nil
}

// Close flushes pending spans and shuts the provider down.
func (c *TelemetryClient) Close(ctx context.Context) error {
	if c.tp == nil {
		return nil
	}
	err := c.tp.Shutdown(ctx)
	c.tp = nil
	return err
}
