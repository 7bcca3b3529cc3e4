// Package otel sets up the OpenTelemetry SDK when an OTLP endpoint is
// configured. Without one the global no-op providers stay in place and the
// gin and redis instrumentation records nothing.
package otel

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

type ExporterConfig struct {
	Endpoint string
	Protocol string
}

func (c ExporterConfig) Enabled() bool {
	return c.Endpoint != ""
}

type Config struct {
	ServiceName string
	Traces      ExporterConfig
	Metrics     ExporterConfig
}

// Enabled reports whether any signal has an endpoint.
func (c Config) Enabled() bool {
	return c.Traces.Enabled() || c.Metrics.Enabled()
}

type ShutdownFunc func(context.Context) error

// SetupOTelSDK installs the tracer and meter providers for every configured
// signal. The returned function flushes and stops them.
func SetupOTelSDK(ctx context.Context, cfg Config) (shutdown ShutdownFunc, err error) {
	var shutdownFuncs []ShutdownFunc
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Traces.Enabled() {
		exporter, err := newTraceExporter(ctx, cfg.Traces)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
		otel.SetTracerProvider(tp)
	}

	if cfg.Metrics.Enabled() {
		exporter, err := newMetricExporter(ctx, cfg.Metrics)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Minute))),
		)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
		otel.SetMeterProvider(mp)
	}

	return shutdown, nil
}
