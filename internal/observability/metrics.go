package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultBuckets returns latency buckets in seconds. The upper end covers
// slow completion calls.
func DefaultBuckets() []float64 {
	return []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
}

// Metrics is the set of series exported on the ops listener. Each Metrics
// owns its registry so tests and multiple servers never collide.
type Metrics struct {
	Registry *prometheus.Registry

	QueriesTotal     prometheus.Counter
	QueryNotFound    prometheus.Counter
	QueryErrorsTotal prometheus.Counter
	QueryDuration    prometheus.Histogram

	IngestRunsTotal      prometheus.Counter
	IngestErrorsTotal    prometheus.Counter
	IngestDocumentsTotal prometheus.Counter
	IngestChunksTotal    prometheus.Counter
	IngestRecordsTotal   prometheus.Counter
	IngestDuration       prometheus.Histogram

	LLMRequestsTotal   prometheus.Counter
	LLMErrorsTotal     prometheus.Counter
	LLMTokensTotal     prometheus.Counter
	LLMRequestDuration prometheus.Histogram

	InFlightQueries prometheus.Gauge

	StageDuration *prometheus.HistogramVec
}

// NewMetrics registers the codefinder series on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return f.NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets})
	}

	return &Metrics{
		Registry: reg,

		QueriesTotal:     counter("codefinder_queries_total", "Total /query/ requests"),
		QueryNotFound:    counter("codefinder_query_not_found_total", "Queries answered with 404"),
		QueryErrorsTotal: counter("codefinder_query_errors_total", "Queries that failed"),
		QueryDuration:    histogram("codefinder_query_duration_seconds", "End-to-end query latency", DefaultBuckets()),

		IngestRunsTotal:      counter("codefinder_ingest_runs_total", "Ingestion runs"),
		IngestErrorsTotal:    counter("codefinder_ingest_errors_total", "Ingestion runs that failed"),
		IngestDocumentsTotal: counter("codefinder_ingest_documents_total", "Source documents fetched"),
		IngestChunksTotal:    counter("codefinder_ingest_chunks_total", "Chunks produced by the splitter"),
		IngestRecordsTotal:   counter("codefinder_ingest_records_total", "Records upserted into the vector store"),
		IngestDuration:       histogram("codefinder_ingest_duration_seconds", "Ingestion run duration", []float64{1, 5, 15, 60, 300, 900, 3600}),

		LLMRequestsTotal:   counter("codefinder_llm_requests_total", "Completion requests"),
		LLMErrorsTotal:     counter("codefinder_llm_errors_total", "Completion requests that failed"),
		LLMTokensTotal:     counter("codefinder_llm_tokens_total", "Prompt and completion tokens"),
		LLMRequestDuration: histogram("codefinder_llm_request_duration_seconds", "Completion latency", DefaultBuckets()),

		InFlightQueries: f.NewGauge(prometheus.GaugeOpts{
			Name: "codefinder_queries_in_flight",
			Help: "Queries currently being answered",
		}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codefinder_stage_duration_seconds",
			Help:    "Pipeline stage latency",
			Buckets: DefaultBuckets(),
		}, []string{"stage", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordQuery records one query outcome. found is false for a 404.
func (m *Metrics) RecordQuery(d time.Duration, found bool, err error) {
	if m == nil {
		return
	}
	m.QueriesTotal.Inc()
	m.QueryDuration.Observe(d.Seconds())
	switch {
	case err != nil:
		m.QueryErrorsTotal.Inc()
	case !found:
		m.QueryNotFound.Inc()
	}
}

// RecordIngest records one ingestion run.
func (m *Metrics) RecordIngest(d time.Duration, documents, chunks, records int, err error) {
	if m == nil {
		return
	}
	m.IngestRunsTotal.Inc()
	m.IngestDuration.Observe(d.Seconds())
	m.IngestDocumentsTotal.Add(float64(documents))
	m.IngestChunksTotal.Add(float64(chunks))
	m.IngestRecordsTotal.Add(float64(records))
	if err != nil {
		m.IngestErrorsTotal.Inc()
	}
}

// RecordLLMRequest records one completion call.
func (m *Metrics) RecordLLMRequest(d time.Duration, tokens int, err error) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.Inc()
	m.LLMRequestDuration.Observe(d.Seconds())
	m.LLMTokensTotal.Add(float64(tokens))
	if err != nil {
		m.LLMErrorsTotal.Inc()
	}
}

// StageTimer starts timing a pipeline stage and returns the function that
// stops it.
func (m *Metrics) StageTimer(stage string) func(error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.StageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
	}
}
