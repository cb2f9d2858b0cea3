package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "election-reconciliation-pipeline"
	ServiceVersion = "v1.0.0"
	MeterName      = "electionpulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Metrics        *PipelineMetrics
	Logger         *slog.Logger
}

// PipelineMetrics bundles the instruments recorded by the
// reconciliation pipeline.
type PipelineMetrics struct {
	PipelineRuns     metric.Int64Counter
	FetchFailures    metric.Int64Counter
	PipelineDuration metric.Float64Histogram
	UnitsResolved    metric.Int64Gauge
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing (stdout exporter) and metrics
// (Prometheus exporter served on /metrics by the HTTP transport).
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("environment", cfg.Environment),
	)

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing && cfg.TraceExporter == "stdout" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}

		providers.TracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		otel.SetTracerProvider(providers.TracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}
	providers.Tracer = otel.Tracer(MeterName)

	if cfg.EnableMetrics {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		providers.MeterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(providers.MeterProvider)
		providers.PrometheusHTTP = promhttp.Handler()
	}
	providers.Meter = otel.Meter(MeterName)

	metrics, err := newPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}
	providers.Metrics = metrics

	logger.Info("observability initialized",
		"tracing", cfg.EnableTracing,
		"metrics", cfg.EnableMetrics,
		"environment", cfg.Environment,
	)

	return providers, nil
}

// newPipelineMetrics registers the pipeline instruments on the meter
func newPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runs, err := meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Number of reconciliation pipeline runs by outcome"))
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("source_fetch_failures_total",
		metric.WithDescription("Number of upstream feed fetch or parse failures by source"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("pipeline_duration_seconds",
		metric.WithDescription("Wall-clock duration of a full pipeline run"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	units, err := meter.Int64Gauge("units_resolved",
		metric.WithDescription("Number of constituencies resolved in the latest snapshot"))
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		PipelineRuns:     runs,
		FetchFailures:    failures,
		PipelineDuration: duration,
		UnitsResolved:    units,
	}, nil
}

// RecordRun records the outcome and duration of a pipeline run
func (m *PipelineMetrics) RecordRun(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.PipelineDuration.Record(ctx, elapsed.Seconds())
}

// RecordFetchFailure records a failed fetch for the named source
func (m *PipelineMetrics) RecordFetchFailure(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.FetchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordUnitsResolved records the resolved unit count of the latest snapshot
func (m *PipelineMetrics) RecordUnitsResolved(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.UnitsResolved.Record(ctx, int64(n))
}

// Shutdown gracefully shuts down the providers, flushing pending spans
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var firstErr error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("shutdown tracer provider: %w", err)
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown meter provider: %w", err)
		}
	}

	return firstErr
}
