// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/recipewise/internal/middleware"
)

// slowRequestThreshold is the latency above which requests are logged at warn.
const slowRequestThreshold = time.Second

// NewRouter builds the chi router for h.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(slowRequestThreshold))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(mw.CORS())
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeRouteNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllow, "Method not allowed", nil)
	})

	r.With(SecurityHeaders).Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(SecurityHeaders)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/recommendations", h.GetRecommendations)
			r.Post("/recommendations/refresh", h.RefreshRecommendations)
			r.Post("/preferences/learn", h.LearnPreferences)
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/popular", h.GetPopularRecipes)
			r.Get("/{recipeID}/similar", h.GetSimilarRecipes)
		})
	})

	return r
}
