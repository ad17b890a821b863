// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package api

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/recipewise/internal/recommend"
	"github.com/tomtom215/recipewise/internal/supervisor/services"
)

// Recommender is the subset of *recommend.Engine the handlers use.
type Recommender interface {
	GetRecommendations(ctx context.Context, rc recommend.Context, limit int, overrides *recommend.LaneWeights) (*recommend.Result, error)
	RefreshRecommendations(ctx context.Context, rc recommend.Context, previous []int64, limit int, overrides *recommend.LaneWeights) (*recommend.Result, error)
	GetSimilarRecipes(ctx context.Context, recipeID int64, limit int) ([]recommend.Recommendation, error)
	GetPopularRecipes(ctx context.Context, limit int, category string) ([]recommend.Recommendation, error)
	UpdateUserPreferences(ctx context.Context, userID int64) (*recommend.LearnedPreference, error)
	RecentlyShown(userID int64) []int64
	GetStats() recommend.Stats
}

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerState reports the repository circuit breaker state.
type BreakerState interface {
	State() gobreaker.State
}

// MatrixStatusReporter reports the last rating matrix refresh.
type MatrixStatusReporter interface {
	Status() services.MatrixStatus
}

// HealthSources are the optional dependencies probed by /health. Nil
// fields are reported as absent.
type HealthSources struct {
	DB      Pinger
	Breaker BreakerState
	Matrix  MatrixStatusReporter
}

// Handler serves the HTTP API.
type Handler struct {
	engine       Recommender
	health       HealthSources
	version      string
	startTime    time.Time
	queryTimeout time.Duration
}

// NewHandler creates a handler. queryTimeout bounds each engine call; zero
// leaves the request context unchanged.
func NewHandler(engine Recommender, health HealthSources, version string, queryTimeout time.Duration) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{
		engine:       engine,
		health:       health,
		version:      version,
		startTime:    time.Now(),
		queryTimeout: queryTimeout,
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.queryTimeout)
}
