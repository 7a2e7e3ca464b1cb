package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/otlptranslator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// MetricNamespace prefixes every exported instrument, matching the promauto metrics.
const MetricNamespace = "evbot"

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	stageCounter  otelmetric.Int64Counter
	stageDuration otelmetric.Float64Histogram
	chatCounter   otelmetric.Int64Counter

	tracing *Tracing
	tracer  trace.Tracer
}

// New registers the OpenTelemetry prometheus exporter on the default registry.
func New(serviceName string) *Observability {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
}

// NewWithRegisterer is New with an explicit prometheus registerer.
func NewWithRegisterer(serviceName string, reg promclient.Registerer) *Observability {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(reg),
		prometheus.WithNamespace(MetricNamespace),
		prometheus.WithTranslationStrategy(otlptranslator.UnderscoreEscapingWithSuffixes),
	)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	stageCounter, _ := meter.Int64Counter(
		"prediction_stages",
		otelmetric.WithDescription("Number of prediction pipeline stages executed"),
	)

	stageDuration, _ := meter.Float64Histogram(
		"prediction_stage_duration",
		otelmetric.WithDescription("Prediction pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)

	chatCounter, _ := meter.Int64Counter(
		"chat_turns",
		otelmetric.WithDescription("Number of chat turns answered"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.stageCounter = stageCounter
	o.stageDuration = stageDuration
	o.chatCounter = chatCounter
	return o
}

// WithTracing routes spans to the given tracing provider.
func (o *Observability) WithTracing(t *Tracing) *Observability {
	if t != nil {
		o.tracing = t
		o.tracer = t.Tracer()
	}
	return o
}

// StartSpan starts a span on the configured tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordStage records one prediction pipeline stage (normalize, encode, classify).
func (o *Observability) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	if o.stageCounter != nil {
		o.stageCounter.Add(ctx, 1, attrs)
	}
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

// RecordChatTurn records one answered chat turn.
func (o *Observability) RecordChatTurn(ctx context.Context, provider, status string) {
	if o.chatCounter != nil {
		o.chatCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracing != nil {
		_ = o.tracing.Shutdown(ctx)
	}
}
