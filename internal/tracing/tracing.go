// Package tracing installs the OpenTelemetry tracer provider of the feed
// server and offers span helpers for the feed pipeline and its Postgres reads.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Exporter kinds accepted in Config.Exporter.
const (
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

const (
	exporterDialTimeout = 10 * time.Second
	batchTimeout        = 5 * time.Second
)

// Configuration errors returned by Setup.
var (
	ErrMissingServiceName  = errors.New("tracing: service name is required")
	ErrInvalidSamplingRate = errors.New("tracing: sampling rate must be between 0 and 1")
	ErrUnsupportedExporter = errors.New("tracing: unsupported exporter")
)

// Config selects where feed spans go.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string // "dev" when empty
	Environment    string
	Exporter       string // ExporterOTLPHTTP when empty
	Endpoint       string // collector host:port; the exporter default when empty
	Insecure       bool

	// SamplingRate applies to traces started here. A request that arrives
	// with a sampled traceparent is always recorded.
	SamplingRate float64
}

// Validate reports every problem with c at once. A disabled config is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("%w: got %g", ErrInvalidSamplingRate, c.SamplingRate))
	}
	switch c.Exporter {
	case "", ExporterOTLPHTTP, ExporterOTLPGRPC:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedExporter, c.Exporter))
	}
	return errors.Join(errs...)
}

// ShutdownFunc flushes buffered spans and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

// Setup installs a batching tracer provider and the W3C trace context and
// baggage propagators as the process globals. When tracing is disabled it
// installs nothing and returns a no-op ShutdownFunc.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", exporterName(cfg), err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled",
		slog.String("exporter", exporterName(cfg)),
		slog.String("endpoint", cfg.Endpoint),
		slog.Float64("sampling_rate", cfg.SamplingRate),
		slog.String("version", version),
	)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to flush traces: %w", err)
		}
		return nil
	}, nil
}

func exporterName(cfg Config) string {
	if cfg.Exporter == "" {
		return ExporterOTLPHTTP
	}
	return cfg.Exporter
}

// newSampler samples new traces at rate and otherwise follows the caller.
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterDialTimeout)
	defer cancel()

	if exporterName(cfg) == ExporterOTLPGRPC {
		var opts []otlptracegrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	var opts []otlptracehttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}
