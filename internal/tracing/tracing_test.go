package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// restoreGlobals puts back the tracer provider and propagator Setup replaced.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestConfig_Validate(t *testing.T) {
	feed := Config{Enabled: true, ServiceName: "creatorfeed", SamplingRate: 0.1}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []error
	}{
		{"valid", func(*Config) {}, nil},
		{"disabled ignores the rest", func(c *Config) { *c = Config{SamplingRate: 7} }, nil},
		{"grpc", func(c *Config) { c.Exporter = ExporterOTLPGRPC }, nil},
		{"no service name", func(c *Config) { c.ServiceName = "" }, []error{ErrMissingServiceName}},
		{"negative rate", func(c *Config) { c.SamplingRate = -0.1 }, []error{ErrInvalidSamplingRate}},
		{"rate above one", func(c *Config) { c.SamplingRate = 1.5 }, []error{ErrInvalidSamplingRate}},
		{"unknown exporter", func(c *Config) { c.Exporter = "jaeger" }, []error{ErrUnsupportedExporter}},
		{"everything wrong", func(c *Config) {
			c.ServiceName, c.SamplingRate, c.Exporter = "", 2, "zipkin"
		}, []error{ErrMissingServiceName, ErrInvalidSamplingRate, ErrUnsupportedExporter}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := feed
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("expected %v in %v", want, err)
				}
			}
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{ServiceName: "creatorfeed"}, nil)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Error("disabled tracing must not replace the global provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestSetup_InvalidConfig(t *testing.T) {
	restoreGlobals(t)

	_, err := Setup(context.Background(), Config{Enabled: true, ServiceName: "creatorfeed", Exporter: "stdout"}, nil)
	if !errors.Is(err, ErrUnsupportedExporter) {
		t.Fatalf("expected ErrUnsupportedExporter, got %v", err)
	}
}

func TestSetup_Exporters(t *testing.T) {
	for _, exporter := range []string{"", ExporterOTLPHTTP, ExporterOTLPGRPC} {
		t.Run("exporter "+exporterName(Config{Exporter: exporter}), func(t *testing.T) {
			restoreGlobals(t)

			// Exporters connect lazily, so no collector is needed.
			shutdown, err := Setup(context.Background(), Config{
				Enabled:      true,
				ServiceName:  "creatorfeed",
				Environment:  "test",
				Exporter:     exporter,
				Endpoint:     "127.0.0.1:4318",
				Insecure:     true,
				SamplingRate: 1,
			}, nil)
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Errorf("global provider is %T, want the SDK provider", otel.GetTracerProvider())
			}
			fields := otel.GetTextMapPropagator().Fields()
			if !contains(fields, "traceparent") || !contains(fields, "baggage") {
				t.Errorf("propagator fields = %v", fields)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			// Nothing was recorded, so there is nothing to export.
			if err := shutdown(ctx); err != nil {
				t.Errorf("shutdown failed: %v", err)
			}
		})
	}
}

func contains(fields []string, want string) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}

func TestNewSampler(t *testing.T) {
	sampledCaller := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
	}))
	unsampledCaller := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{1},
	}))

	tests := []struct {
		name       string
		rate       float64
		ctx        context.Context
		wantSample bool
	}{
		{"new trace at full rate", 1, context.Background(), true},
		{"new trace at zero rate", 0, context.Background(), false},
		{"sampled caller at zero rate", 0, sampledCaller, true},
		{"unsampled caller at full rate", 1, unsampledCaller, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newSampler(tt.rate).ShouldSample(sdktrace.SamplingParameters{
				ParentContext: tt.ctx,
				TraceID:       trace.TraceID{2},
				Name:          "GET /feed",
			})
			if sampled := result.Decision == sdktrace.RecordAndSample; sampled != tt.wantSample {
				t.Errorf("sampled = %v, want %v", sampled, tt.wantSample)
			}
		})
	}
}
