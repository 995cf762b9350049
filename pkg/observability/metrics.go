// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the copaw relay.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM streaming latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copaw_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds. For streaming
	// routes this covers the whole stream.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copaw_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copaw_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// UpstreamRequestsTotal counts calls to the chat-completions backend.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copaw_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"model", "status"},
	)

	// UpstreamLatency records the duration of a full upstream stream in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copaw_upstream_latency_seconds",
			Help:    "Upstream stream duration",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// UpstreamMalformedChunks counts upstream stream lines that were skipped
	// because they could not be decoded.
	UpstreamMalformedChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copaw_upstream_malformed_chunks_total",
			Help: "Skipped malformed upstream stream chunks",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		UpstreamMalformedChunks,
	)
}

// RegisterSessionGauge exposes the number of known sessions as
// copaw_sessions_active, read from count at scrape time. It may be called
// once per registry.
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "copaw_sessions_active",
			Help: "Sessions held in memory",
		},
		func() float64 { return float64(count()) },
	))
}

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
