package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds HTTP-related Prometheus metrics
type HTTPMetrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsTotal    *prometheus.CounterVec
	RequestsInFlight prometheus.Gauge
}

// NewHTTPMetrics creates HTTP metrics collectors
func NewHTTPMetrics(namespace string) *HTTPMetrics {
	return &HTTPMetrics{
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
	}
}

// CacheMetrics holds artifact-cache Prometheus metrics
type CacheMetrics struct {
	HitsTotal   prometheus.Counter
	MissesTotal prometheus.Counter
}

// NewCacheMetrics creates cache metrics collectors
func NewCacheMetrics(namespace string) *CacheMetrics {
	return &CacheMetrics{
		HitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of requests served from the artifact cache",
			},
		),
		MissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of requests that triggered a render",
			},
		),
	}
}

// RenderMetrics holds render-pipeline Prometheus metrics
type RenderMetrics struct {
	Duration     *prometheus.HistogramVec
	RendersTotal *prometheus.CounterVec
	OutputBytes  prometheus.Counter
}

// NewRenderMetrics creates render metrics collectors
func NewRenderMetrics(namespace string) *RenderMetrics {
	return &RenderMetrics{
		Duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Render pipeline duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"format", "status"},
		),
		RendersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of render pipeline executions",
			},
			[]string{"format", "status"},
		),
		OutputBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "render_output_bytes_total",
				Help:      "Total number of encoded bytes produced by the render pipeline",
			},
		),
	}
}

// OriginMetrics holds source-origin Prometheus metrics
type OriginMetrics struct {
	FetchDuration *prometheus.HistogramVec
	FetchesTotal  *prometheus.CounterVec
	BytesFetched  prometheus.Counter
}

// NewOriginMetrics creates origin metrics collectors
func NewOriginMetrics(namespace string) *OriginMetrics {
	return &OriginMetrics{
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "origin_fetch_duration_seconds",
				Help:      "Origin fetch duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		FetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "origin_fetches_total",
				Help:      "Total number of origin fetches",
			},
			[]string{"status"},
		),
		BytesFetched: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "origin_bytes_fetched_total",
				Help:      "Total number of bytes fetched from the origin",
			},
		),
	}
}

// RecordDuration helper to record operation duration
func RecordDuration(start time.Time, histogram prometheus.Observer) {
	duration := time.Since(start).Seconds()
	histogram.Observe(duration)
}
