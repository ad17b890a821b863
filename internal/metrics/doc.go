// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

/*
Package metrics provides Prometheus metrics for the recommendation service.

Metrics are registered with promauto at package init and exposed at the
/metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Engine Metrics:
  - recommend_requests_total: Engine operations (counter)
    Labels: operation, status
  - recommend_request_duration_seconds: Operation latency (histogram)
  - recommend_lane_duration_seconds: Per-lane latency (histogram)
    Labels: lane (rule_based, collaborative, content_based)
  - recommend_lane_candidates: Candidates produced per lane (histogram)
  - recommend_lane_failures_total: Lanes dropped from a request (counter)
    Labels: lane, reason (timeout, canceled, error)
  - recommend_cold_start_total: Cold-start strategy runs (counter)
    Labels: strategy
  - recommend_prediction_fallbacks_total: Average-rating fallbacks (counter)

Cache Metrics:
  - recommend_cache_hits_total / recommend_cache_misses_total
    Labels: cache (response, matrix, similarity)

Rating Matrix Metrics:
  - rating_matrix_build_duration_seconds (histogram)
  - rating_matrix_users, rating_matrix_items, rating_matrix_sparsity,
    rating_matrix_version (gauges)

Repository Metrics:
  - repository_query_duration_seconds, repository_query_errors_total
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - circuit_breaker_transitions_total: Labels name, from, to

HTTP Metrics:
  - http_requests_total, http_request_duration_seconds,
    http_requests_in_flight

# Usage

Record helpers wrap the label handling:

	start := time.Now()
	recs, err := engine.GetRecommendations(ctx, rc, 10, nil)
	metrics.RecordRecommendRequest("get_recommendations", time.Since(start), err)
*/
package metrics
