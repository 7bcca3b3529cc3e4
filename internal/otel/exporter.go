package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTraceExporter(ctx context.Context, c ExporterConfig) (sdktrace.SpanExporter, error) {
	if c.Protocol == ProtocolGRPC {
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(c.Endpoint),
		)
	}
	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(ensureHTTPEndpoint("traces", c.Endpoint)),
	)
}

func newMetricExporter(ctx context.Context, c ExporterConfig) (sdkmetric.Exporter, error) {
	if c.Protocol == ProtocolGRPC {
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithEndpoint(c.Endpoint),
		)
	}
	return otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(ensureHTTPEndpoint("metrics", c.Endpoint)),
	)
}

// ensureHTTPEndpoint turns "collector:4318" into
// "http://collector:4318/v1/<signal>". A scheme or signal path already
// present is kept.
func ensureHTTPEndpoint(signal, endpoint string) string {
	full := endpoint
	if !strings.HasPrefix(full, "http://") && !strings.HasPrefix(full, "https://") {
		full = "http://" + full
	}
	suffix := "/v1/" + signal
	if !strings.HasSuffix(strings.TrimRight(full, "/"), suffix) {
		full = strings.TrimRight(full, "/") + suffix
	}
	return full
}
