// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/recipewise/internal/logging"
	"github.com/tomtom215/recipewise/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "upstream-123", keep: true},
		{name: "control characters rejected", incoming: "bad\nid"},
		{name: "too long rejected", incoming: strings.Repeat("a", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = logging.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			header := rec.Header().Get(RequestIDHeader)
			if header == "" || header != seen {
				t.Errorf("header %q and context %q should match and be non-empty", header, seen)
			}
			if tt.keep && header != tt.incoming {
				t.Errorf("request ID = %q, want %q", header, tt.incoming)
			}
			if !tt.keep && header == tt.incoming {
				t.Errorf("request ID %q should have been replaced", header)
			}
		})
	}
}

func TestPrometheusMetrics_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/recipes/{recipeID}/similar", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	pattern := "/api/v1/recipes/{recipeID}/similar"
	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, pattern, "404"))
	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+id+"/similar", nil))
	}
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, pattern, "404"))
	if after-before != 3 {
		t.Errorf("requests counted = %v, want 3 under one pattern", after-before)
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)
	if _, err := sw.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if sw.status != http.StatusCreated || sw.bytes != 5 {
		t.Errorf("status=%d bytes=%d, want 201/5", sw.status, sw.bytes)
	}
	if sw.Unwrap() != rec {
		t.Error("Unwrap() did not return the wrapped writer")
	}
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		delay     time.Duration
		wantLevel string
	}{
		{name: "ok", status: http.StatusOK, wantLevel: `"level":"debug"`},
		{name: "server error", status: http.StatusServiceUnavailable, wantLevel: `"level":"error"`},
		{name: "slow", status: http.StatusOK, delay: 30 * time.Millisecond, wantLevel: `"level":"warn"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := AccessLog(10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(tt.delay)
				w.WriteHeader(tt.status)
			}))

			ctx := logging.ContextWithLogger(context.Background(), logging.NewTestLogger(&buf))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/popular", nil).WithContext(ctx)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("output %q missing %s", out, tt.wantLevel)
			}
			if !strings.Contains(out, `"path":"/api/v1/recipes/popular"`) {
				t.Errorf("output %q missing path", out)
			}
		})
	}
}
