package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordContextLookup(LookupHit)
	m.RecordContextLookup(LookupHit)
	m.RecordContextLookup(LookupStale)
	m.RecordOCR("completed", "vision", time.Second)
	m.RecordHTTP(http.MethodGet, "/api/cases", http.StatusOK, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ContextLookups.WithLabelValues(LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextLookups.WithLabelValues(LookupStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OCRJobs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/cases", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "legaldesk_context_cache_lookups_total")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordContextLookup(LookupMiss)
		m.RecordOCR("failed", "", 0)
		m.RecordChat("ok")
		m.RecordHTTP("GET", "/", 200, 0)
	})
}
