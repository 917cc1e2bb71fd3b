package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type otlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c otlpConnConfig) enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

func (c otlpConnConfig) protocol() (string, string) {
	if c.GrpcEndpoint != "" {
		return "grpc", c.GrpcEndpoint
	}
	return "http", c.HttpEndpoint
}

type otlpConfig struct {
	Traces  otlpConnConfig `json:"traces"`
	Metrics otlpConnConfig `json:"metrics"`
}

// Config is the shape of telemetry.json5. Leaving both endpoints of a
// signal empty disables its export.
type Config struct {
	Otlp otlpConfig `json:"otlp"`
	// SampleRatio is the fraction of traces kept, 0 keeps everything.
	SampleRatio float64 `json:"sample_ratio"`
	// MetricInterval is the export interval in seconds.
	MetricInterval int `json:"metric_interval"`
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config Config) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return nil, err
	}

	sampler := trace.AlwaysSample()
	if config.SampleRatio > 0 && config.SampleRatio < 1 {
		sampler = trace.ParentBased(trace.TraceIDRatioBased(config.SampleRatio))
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
		trace.WithSampler(sampler),
	), nil
}

func newSpanExporter(ctx context.Context, c otlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	protocol, endpoint := c.protocol()
	slog.Info(
		"trace exporter initialized",
		"type", protocol,
		"endpoint", endpoint,
		"headers", len(c.Headers) > 0,
	)
	if protocol == "grpc" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(endpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(endpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config Config) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(config.MetricInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		metric.WithResource(r),
	), nil
}

func newMetricExporter(ctx context.Context, c otlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	protocol, endpoint := c.protocol()
	slog.Info(
		"metric exporter initialized",
		"type", protocol,
		"endpoint", endpoint,
		"headers", len(c.Headers) > 0,
	)
	if protocol == "grpc" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(endpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(endpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
}
