// Package monitoring exposes Prometheus metrics for the retrieval and
// ingestion pipelines.  All metric holders are nil-safe so callers can skip
// wiring them in tests and small tools.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "molkit"

// Search mode labels.
const (
	SearchModeSemantic  = "semantic"
	SearchModeStructure = "structure"
)

// SearchMetrics tracks retrieval outcomes by mode.
type SearchMetrics struct {
	searches           *prometheus.CounterVec
	results            *prometheus.HistogramVec
	embeddingFailures  prometheus.Counter
	inferenceFailures  prometheus.Counter
	resolutionFailures prometheus.Counter
}

// NewSearchMetrics builds and registers the search metrics on reg.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	m := &SearchMetrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests completed, by mode.",
		}, []string{"mode"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Result counts per completed search, by mode.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}, []string{"mode"}),
		embeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "embedding_failures_total",
			Help:      "Query embeddings that failed or came back empty.",
		}),
		inferenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "inference_failures_total",
			Help:      "Scaffold inference calls that failed.",
		}),
		resolutionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "resolution_failures_total",
			Help:      "Reference names that could not be resolved to an identifier.",
		}),
	}
	reg.MustRegister(m.searches, m.results,
		m.embeddingFailures, m.inferenceFailures, m.resolutionFailures)
	return m
}

// ObserveSearch records one completed search and its result count.
func (m *SearchMetrics) ObserveSearch(mode string, results int) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(mode).Inc()
	m.results.WithLabelValues(mode).Observe(float64(results))
}

// IncEmbeddingFailure records a failed or empty query embedding.
func (m *SearchMetrics) IncEmbeddingFailure() {
	if m == nil {
		return
	}
	m.embeddingFailures.Inc()
}

// IncInferenceFailure records a failed scaffold inference call.
func (m *SearchMetrics) IncInferenceFailure() {
	if m == nil {
		return
	}
	m.inferenceFailures.Inc()
}

// IncResolutionFailure records a reference name that failed to resolve.
func (m *SearchMetrics) IncResolutionFailure() {
	if m == nil {
		return
	}
	m.resolutionFailures.Inc()
}

// IngestMetrics tracks the ingestion pipeline.
type IngestMetrics struct {
	processed prometheus.Counter
	failed    prometheus.Counter
	fallbacks prometheus.Counter
	apiCalls  *prometheus.CounterVec
}

// NewIngestMetrics builds and registers the ingestion metrics on reg.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	m := &IngestMetrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "compounds_processed_total",
			Help:      "Compounds successfully parsed and written.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "compounds_failed_total",
			Help:      "Compounds that failed ingestion.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "fingerprint_fallbacks_total",
			Help:      "Fingerprints computed locally because none were downloaded.",
		}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "api_calls_total",
			Help:      "Upstream API calls, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
	reg.MustRegister(m.processed, m.failed, m.fallbacks, m.apiCalls)
	return m
}

// IncProcessed records one compound written to the parsed store.
func (m *IngestMetrics) IncProcessed() {
	if m == nil {
		return
	}
	m.processed.Inc()
}

// IncFailed records one compound that could not be ingested.
func (m *IngestMetrics) IncFailed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

// IncFingerprintFallback records a locally computed fingerprint.
func (m *IngestMetrics) IncFingerprintFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// ObserveAPICall records one upstream call with its outcome ("ok" or "error").
func (m *IngestMetrics) ObserveAPICall(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(endpoint, outcome).Inc()
}
