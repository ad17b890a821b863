// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/recipewise/internal/recommend"
	"github.com/tomtom215/recipewise/internal/supervisor/services"
)

const healthPingTimeout = 2 * time.Second

// HealthStatus is the data payload of /health.
type HealthStatus struct {
	Status            string                 `json:"status"`
	Version           string                 `json:"version"`
	DatabaseConnected bool                   `json:"database_connected"`
	CircuitBreaker    string                 `json:"circuit_breaker,omitempty"`
	Matrix            *services.MatrixStatus `json:"matrix,omitempty"`
	Engine            recommend.Stats        `json:"engine"`
	Uptime            float64                `json:"uptime_seconds"`
}

// Health handles GET /health. The service is degraded when the database
// does not answer a ping or the repository breaker is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := false
	if h.health.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		dbConnected = h.health.DB.Ping(ctx) == nil
		cancel()
	}

	status := HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		DatabaseConnected: dbConnected,
		Engine:            h.engine.GetStats(),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if !dbConnected {
		status.Status = "degraded"
	}
	if h.health.Breaker != nil {
		state := h.health.Breaker.State()
		status.CircuitBreaker = state.String()
		if state == gobreaker.StateOpen {
			status.Status = "degraded"
		}
	}
	if h.health.Matrix != nil {
		ms := h.health.Matrix.Status()
		status.Matrix = &ms
	}

	respondSuccess(w, r, status, start)
}
