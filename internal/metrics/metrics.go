// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routerx_requests_total", Help: "Total chat completion requests"},
		[]string{"provider", "status"},
	)
	LatencyMS = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "routerx_latency_ms", Help: "End to end latency in ms", Buckets: prometheus.LinearBuckets(50, 50, 20)},
		[]string{"provider"},
	)
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routerx_fallbacks_total", Help: "Requests served by a fallback provider"},
		[]string{"provider"},
	)
)

func Register() {
	prometheus.MustRegister(RequestsTotal, LatencyMS, FallbacksTotal)
}
