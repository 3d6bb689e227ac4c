// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for the ingestion and query paths.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/efebarandurmaz/codefinder/internal/llm"
	"github.com/efebarandurmaz/codefinder/internal/rag"
)

// TracerName is the instrumentation scope for every span this module starts.
const TracerName = "github.com/efebarandurmaz/codefinder"

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// InitTracing initializes OpenTelemetry tracing. Without an OTLPEndpoint
// the global no-op provider stays in place.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil || cfg.OTLPEndpoint == "" {
		return &TracerProvider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "codefinder"
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{provider: provider}, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

const (
	SpanKindIngest = "ingest"
	SpanKindQuery  = "query"
	SpanKindStage  = "stage"
	SpanKindLLM    = "llm"
)

// StartIngestSpan starts the root span of an ingestion run.
func StartIngestSpan(ctx context.Context, user, collection string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "ingest",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("codefinder.span.kind", SpanKindIngest),
			attribute.String("github.user", user),
			attribute.String("vector.collection", collection),
		),
	)
}

// RecordIngestResult annotates an ingest span with its counts.
func RecordIngestResult(span trace.Span, documents, chunks, records int) {
	span.SetAttributes(
		attribute.Int("ingest.documents", documents),
		attribute.Int("ingest.chunks", chunks),
		attribute.Int("ingest.records", records),
	)
}

// StartQuerySpan starts the root span of a /query/ request.
func StartQuerySpan(ctx context.Context, collection string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "query",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("codefinder.span.kind", SpanKindQuery),
			attribute.String("vector.collection", collection),
		),
	)
}

// StartStageSpan starts a child span for one pipeline stage, such as
// "retrieve" or "split".
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("codefinder.span.kind", SpanKindStage),
			attribute.String("stage.name", stage),
		),
	)
}

// StartLLMSpan starts a span for a completion or embedding call.
func StartLLMSpan(ctx context.Context, provider, model, op string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "llm."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("codefinder.span.kind", SpanKindLLM),
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		),
	)
}

// RecordLLMUsage records token usage from resp on span. A nil response is
// ignored.
func RecordLLMUsage(span trace.Span, resp *llm.Response) {
	if resp == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.InputTokens),
		attribute.Int("llm.output_tokens", resp.OutputTokens),
		attribute.Int("llm.total_tokens", resp.InputTokens+resp.OutputTokens),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// StageHooks returns query-engine hooks that open a stage span per step and
// feed stage latency into m. m may be nil.
func StageHooks(m *Metrics) rag.Hooks {
	return rag.Hooks{
		StartStage: func(ctx context.Context, stage string) (context.Context, func(error)) {
			ctx, span := StartStageSpan(ctx, stage)
			done := m.StageTimer(stage)
			return ctx, func(err error) {
				RecordError(span, err)
				span.End()
				done(err)
			}
		},
	}
}
