package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/powermix/internal/logging"
)

const tracerName = "github.com/signalsfoundry/powermix"

// Span exporters understood by InitTracing.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const defaultOTLPEndpoint = "localhost:4317"

// TracingConfig governs how transform tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // ExporterStdout or ExporterOTLP
	Endpoint    string // OTLP collector; defaults to localhost:4317
	SampleRatio float64
}

// TracingConfigFromEnv reads the POWERMIX_TRACING_* variables. Tracing is off
// unless POWERMIX_TRACING_ENABLED=true.
func TracingConfigFromEnv() TracingConfig {
	cfg := TracingConfig{
		Enabled:     strings.EqualFold(os.Getenv("POWERMIX_TRACING_ENABLED"), "true"),
		ServiceName: getenv("POWERMIX_TRACING_SERVICE_NAME", "powermix"),
		Exporter:    strings.ToLower(getenv("POWERMIX_TRACING_EXPORTER", ExporterStdout)),
		Endpoint:    getenv("POWERMIX_OTLP_ENDPOINT", defaultOTLPEndpoint),
		SampleRatio: 1,
	}
	if raw := os.Getenv("POWERMIX_TRACING_SAMPLE_RATIO"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			cfg.SampleRatio = v
		}
	}
	return cfg
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// InitTracing installs the global tracer provider and returns a shutdown
// function that flushes pending spans. With tracing disabled a noop provider
// is installed and the shutdown function does nothing.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "lci"),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.SampleRatio < 1 {
		opts = append(opts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)))
	} else {
		opts = append(opts, sdktrace.WithSampler(sdktrace.AlwaysSample()))
	}

	switch cfg.Exporter {
	case ExporterStdout, "":
		exp, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		// Spans print as they end.
		opts = append(opts, sdktrace.WithSyncer(exp))
	case ExporterOTLP, "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}

// ShutdownWithTimeout flushes spans with a bounded timeout and only logs a
// failure.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

// StartRun starts the root span of one CLI invocation.
func StartRun(ctx context.Context, command, scenario string, year int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "powermix "+command, trace.WithAttributes(
		attribute.String("powermix.command", command),
		attribute.String("powermix.scenario", scenario),
		attribute.Int("powermix.year", year),
	))
}

// StartPhase starts a span for one transform phase. The run_id on ctx, if
// any, is attached as an attribute.
func StartPhase(ctx context.Context, phase string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(extra)+2)
	attrs = append(attrs, attribute.String("powermix.phase", phase))
	if id := logging.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("run_id", id))
	}
	attrs = append(attrs, extra...)
	return otel.Tracer(tracerName).Start(ctx, "powermix/"+phase, trace.WithAttributes(attrs...))
}
