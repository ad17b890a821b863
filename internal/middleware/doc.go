// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package middleware provides the HTTP middleware the API router installs
// in front of every handler:
//
//   - RequestID assigns or propagates X-Request-ID and puts it in the
//     logging context.
//   - PrometheusMetrics records request counts and latency per chi route
//     pattern, so /users/1 and /users/2 share one series.
//   - AccessLog writes one zerolog line per request and warns on slow ones.
//
// All three have the func(http.Handler) http.Handler shape chi's Use expects.
package middleware
