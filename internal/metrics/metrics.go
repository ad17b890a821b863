// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Engine Metrics
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation engine operations",
		},
		[]string{"operation", "status"}, // status: "ok", "error"
	)

	RecommendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Duration of recommendation engine operations in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	LaneDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_lane_duration_seconds",
			Help:    "Duration of a single scoring lane in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"lane"},
	)

	LaneCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_lane_candidates",
			Help:    "Number of candidates produced by a scoring lane",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
		},
		[]string{"lane"},
	)

	LaneFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_lane_failures_total",
			Help: "Total number of scoring lanes that contributed zero candidates due to an error",
		},
		[]string{"lane", "reason"}, // reason: "timeout", "canceled", "error"
	)

	ColdStartServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cold_start_total",
			Help: "Total number of cold-start strategy invocations",
		},
		[]string{"strategy"},
	)

	PredictionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_prediction_fallbacks_total",
			Help: "Total number of rating predictions that fell back to average ratings",
		},
		[]string{"method"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"}, // "response", "matrix", "similarity"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// Rating Matrix Metrics
	MatrixBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rating_matrix_build_duration_seconds",
			Help:    "Duration of rating matrix builds in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)

	MatrixUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rating_matrix_users",
			Help: "Number of users in the current rating matrix snapshot",
		},
	)

	MatrixItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rating_matrix_items",
			Help: "Number of recipes in the current rating matrix snapshot",
		},
	)

	MatrixSparsity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rating_matrix_sparsity",
			Help: "Sparsity ratio of the current rating matrix snapshot (0-1)",
		},
	)

	MatrixVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rating_matrix_version",
			Help: "Version of the current rating matrix snapshot",
		},
	)

	// Repository Metrics
	RepositoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_query_duration_seconds",
			Help:    "Duration of repository queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RepositoryQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_query_errors_total",
			Help: "Total number of repository query errors",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// RecordRecommendRequest records an engine operation
func RecordRecommendRequest(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecommendRequestsTotal.WithLabelValues(operation, status).Inc()
	RecommendRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLane records the outcome of a single scoring lane.
// A failed lane is counted under its failure reason and contributes zero candidates.
func RecordLane(lane string, duration time.Duration, candidates int, err error) {
	LaneDuration.WithLabelValues(lane).Observe(duration.Seconds())
	if err != nil {
		LaneFailures.WithLabelValues(lane, failureReason(err)).Inc()
		candidates = 0
	}
	LaneCandidates.WithLabelValues(lane).Observe(float64(candidates))
}

// RecordColdStart records a cold-start strategy invocation
func RecordColdStart(strategy string) {
	ColdStartServed.WithLabelValues(strategy).Inc()
}

// RecordPredictionFallback records a fallback prediction
func RecordPredictionFallback(method string) {
	PredictionFallbacks.WithLabelValues(method).Inc()
}

// RecordCacheAccess records a hit or miss for the named cache
func RecordCacheAccess(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordMatrixBuild records a completed rating matrix build
func RecordMatrixBuild(duration time.Duration, users, items int, sparsity float64, version uint64) {
	MatrixBuildDuration.Observe(duration.Seconds())
	MatrixUsers.Set(float64(users))
	MatrixItems.Set(float64(items))
	MatrixSparsity.Set(sparsity)
	MatrixVersion.Set(float64(version))
}

// RecordRepositoryQuery records a repository query metric
func RecordRepositoryQuery(operation string, duration time.Duration, err error) {
	RepositoryQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RepositoryQueryErrors.WithLabelValues(operation).Inc()
	}
}

// SetCircuitBreakerState updates the circuit breaker state gauge
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerTransition records a circuit breaker state change
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
