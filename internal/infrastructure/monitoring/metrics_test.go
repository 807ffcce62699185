package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchMetrics_NilSafe(t *testing.T) {
	var m *SearchMetrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(SearchModeSemantic, 3)
		m.IncEmbeddingFailure()
		m.IncInferenceFailure()
		m.IncResolutionFailure()
	})
}

func TestIngestMetrics_NilSafe(t *testing.T) {
	var m *IngestMetrics
	assert.NotPanics(t, func() {
		m.IncProcessed()
		m.IncFailed()
		m.IncFingerprintFallback()
		m.ObserveAPICall("properties", "ok")
	})
}

func TestSearchMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSearchMetrics(reg)

	m.ObserveSearch(SearchModeSemantic, 5)
	m.ObserveSearch(SearchModeSemantic, 0)
	m.ObserveSearch(SearchModeStructure, 2)
	m.IncEmbeddingFailure()

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.searches.WithLabelValues(SearchModeSemantic)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues(SearchModeStructure)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.embeddingFailures), 1e-9)
}

func TestIngestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg)

	m.IncProcessed()
	m.IncProcessed()
	m.IncFailed()
	m.ObserveAPICall("synonyms", "ok")
	m.ObserveAPICall("synonyms", "error")

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.processed), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.failed), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.apiCalls.WithLabelValues("synonyms", "ok")), 1e-9)
}

func TestMetrics_RegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSearchMetrics(reg)
	require.Panics(t, func() { NewSearchMetrics(reg) })
}
