package otel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"docstore/internal/config"
)

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

var exporters = map[string]func(context.Context) (*otlptrace.Exporter, error){
	"grpc": func(ctx context.Context) (*otlptrace.Exporter, error) { return otlptracegrpc.New(ctx) },
	"http/protobuf": func(ctx context.Context) (*otlptrace.Exporter, error) {
		return otlptracehttp.New(ctx)
	},
}

var samplers = map[string]func(ratio float64) trace.Sampler{
	"always_on":                func(float64) trace.Sampler { return trace.AlwaysSample() },
	"always_off":               func(float64) trace.Sampler { return trace.NeverSample() },
	"traceidratio":             trace.TraceIDRatioBased,
	"parentbased_always_on":    func(float64) trace.Sampler { return trace.ParentBased(trace.AlwaysSample()) },
	"parentbased_always_off":   func(float64) trace.Sampler { return trace.ParentBased(trace.NeverSample()) },
	"parentbased_traceidratio": func(r float64) trace.Sampler { return trace.ParentBased(trace.TraceIDRatioBased(r)) },
}

// Init installs the global propagator and, unless tracing is disabled, an OTLP tracer provider.
// An exporter that cannot be built degrades to the no-op provider instead of failing startup.
func Init(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	if cfg.Disabled {
		logger.Info("tracing_configured", "tracing_enabled", false)
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg.Protocol)
	if err != nil {
		logger.Error("tracing_init_failed", "error", err)
		return noopShutdown, nil
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(newSampler(cfg.Sampler, cfg.SamplerArg)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing_configured",
		"tracing_enabled", true,
		"otlp_protocol", cfg.Protocol,
		"otlp_endpoint", cfg.Endpoint,
		"sampler", cfg.Sampler,
		"sampler_arg", cfg.SamplerArg,
	)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, protocol string) (*otlptrace.Exporter, error) {
	build, ok := exporters[protocol]
	if !ok {
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
	return build(ctx)
}

// newSampler maps OTEL_TRACES_SAMPLER names to samplers. Unknown names sample everything
// under the parent's decision; an unparsable ratio counts as 1.
func newSampler(name, arg string) trace.Sampler {
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		ratio = 1
	}
	build, ok := samplers[name]
	if !ok {
		build = samplers["parentbased_always_on"]
	}
	return build(ratio)
}
