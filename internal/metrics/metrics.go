// Package metrics holds the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

type Metrics struct {
	ContextLookups *prometheus.CounterVec   // by result: hit, miss, stale
	OCRJobs        *prometheus.CounterVec   // by status: completed, failed
	OCRDuration    *prometheus.HistogramVec // by source: text_layer, vision
	ChatRequests   *prometheus.CounterVec   // by status: ok, error
	HTTPRequests   *prometheus.CounterVec   // by method, route, status
	HTTPDuration   *prometheus.HistogramVec // by method, route
	registry       *prometheus.Registry
}

// New creates the collectors and registers them with registry, together
// with the Go runtime and process collectors.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.ContextLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legaldesk_context_cache_lookups_total",
			Help: "Case context lookups by result",
		},
		[]string{"result"},
	)
	m.OCRJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legaldesk_ocr_jobs_total",
			Help: "Finished OCR jobs by final status",
		},
		[]string{"status"},
	)
	m.OCRDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "legaldesk_ocr_duration_seconds",
			Help:    "Time spent recognising one document",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)
	m.ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legaldesk_chat_requests_total",
			Help: "AI chat requests by outcome",
		},
		[]string{"status"},
	)
	m.HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legaldesk_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "legaldesk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	toRegister := []prometheus.Collector{
		m.ContextLookups,
		m.OCRJobs,
		m.OCRDuration,
		m.ChatRequests,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordContextLookup(result string) {
	if m == nil {
		return
	}
	m.ContextLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordOCR(status, source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OCRJobs.WithLabelValues(status).Inc()
	if source != "" {
		m.OCRDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) RecordChat(status string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, fmt.Sprint(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
