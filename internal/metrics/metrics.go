// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for supportd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportd_tool_calls_total",
		Help: "MCP tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supportd_tool_duration_seconds",
		Help:    "MCP tool execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	githubRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportd_github_requests_total",
		Help: "Requests to the GitHub Issues API by operation and status class",
	}, []string{"operation", "status"})

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supportd_github_request_duration_seconds",
		Help:    "GitHub Issues API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "supportd_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"client"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportd_cache_hits_total",
		Help: "Cache hits by backend",
	}, []string{"backend"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportd_cache_misses_total",
		Help: "Cache misses by backend",
	}, []string{"backend"})
)

// RecordToolCall records one tool invocation with its latency.
func RecordToolCall(tool, outcome string, seconds float64) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
	toolDuration.WithLabelValues(tool).Observe(seconds)
}

// RecordGitHubRequest records one upstream API request.
func RecordGitHubRequest(operation, status string, seconds float64) {
	githubRequests.WithLabelValues(operation, status).Inc()
	githubRequestDuration.WithLabelValues(operation).Observe(seconds)
}

// SetCircuitBreakerState publishes the current breaker state for a client.
func SetCircuitBreakerState(client string, state float64) {
	circuitBreakerState.WithLabelValues(client).Set(state)
}

// RecordCacheHit increments the hit counter for a backend.
func RecordCacheHit(backend string) {
	cacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss increments the miss counter for a backend.
func RecordCacheMiss(backend string) {
	cacheMisses.WithLabelValues(backend).Inc()
}
