// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/recipewise/internal/metrics"
	"github.com/tomtom215/recipewise/internal/recommend"
)

// BreakerConfig tunes the repository circuit breaker.
type BreakerConfig struct {
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval resets the failure counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration

	// The breaker opens once at least MinRequests were made and the
	// failure ratio reaches FailureRatio.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig returns the repository breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "repository",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Breaker wraps a repository with a circuit breaker. Not-found results and
// cancelled requests do not count as failures.
type Breaker struct {
	repo recommend.Repository
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreaker wraps repo.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreaker(repo recommend.Repository, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	logger = logger.With().Str("component", "circuit_breaker").Str("breaker", cfg.Name).Logger()
	metrics.SetCircuitBreakerState(cfg.Name, stateToInt(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio).
					Msg("opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, recommend.ErrRecipeNotFound) ||
				errors.Is(err, ErrInvalidRecord) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
			metrics.SetCircuitBreakerState(name, stateToInt(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})

	return &Breaker{repo: repo, cb: cb, name: cfg.Name}
}

// State returns the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// call runs fn through the breaker and restores its static result type.
func call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w", b.name, err)
		}
		return zero, err
	}
	typed, ok := res.(T)
	if !ok && res != nil {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", res)
	}
	return typed, nil
}

// exec runs a call with no result through the breaker.
func exec(b *Breaker, fn func() error) error {
	_, err := call(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func stateToInt(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (b *Breaker) RatingsForUser(ctx context.Context, userID int64) ([]recommend.Rating, error) {
	return call(b, func() ([]recommend.Rating, error) { return b.repo.RatingsForUser(ctx, userID) })
}

func (b *Breaker) Ratings(ctx context.Context, since time.Time) ([]recommend.Rating, error) {
	return call(b, func() ([]recommend.Rating, error) { return b.repo.Ratings(ctx, since) })
}

func (b *Breaker) FavoritesForUser(ctx context.Context, userID int64) ([]recommend.Favorite, error) {
	return call(b, func() ([]recommend.Favorite, error) { return b.repo.FavoritesForUser(ctx, userID) })
}

func (b *Breaker) Favorites(ctx context.Context, since time.Time) ([]recommend.Favorite, error) {
	return call(b, func() ([]recommend.Favorite, error) { return b.repo.Favorites(ctx, since) })
}

func (b *Breaker) ViewsForUser(ctx context.Context, userID int64) ([]recommend.View, error) {
	return call(b, func() ([]recommend.View, error) { return b.repo.ViewsForUser(ctx, userID) })
}

func (b *Breaker) Recipe(ctx context.Context, recipeID int64) (*recommend.Recipe, error) {
	return call(b, func() (*recommend.Recipe, error) { return b.repo.Recipe(ctx, recipeID) })
}

func (b *Breaker) Recipes(ctx context.Context, ids []int64) ([]recommend.Recipe, error) {
	return call(b, func() ([]recommend.Recipe, error) { return b.repo.Recipes(ctx, ids) })
}

func (b *Breaker) PublishedRecipes(ctx context.Context, f recommend.RecipeFilter) ([]recommend.Recipe, error) {
	return call(b, func() ([]recommend.Recipe, error) { return b.repo.PublishedRecipes(ctx, f) })
}

func (b *Breaker) PopularRecipes(ctx context.Context, limit int, category string) ([]recommend.Recipe, error) {
	return call(b, func() ([]recommend.Recipe, error) { return b.repo.PopularRecipes(ctx, limit, category) })
}

func (b *Breaker) Preference(ctx context.Context, userID int64) (*recommend.Preference, error) {
	return call(b, func() (*recommend.Preference, error) { return b.repo.Preference(ctx, userID) })
}

func (b *Breaker) UpsertPreference(ctx context.Context, p *recommend.Preference) error {
	return exec(b, func() error { return b.repo.UpsertPreference(ctx, p) })
}

func (b *Breaker) LearnedPreference(ctx context.Context, userID int64) (*recommend.LearnedPreference, error) {
	return call(b, func() (*recommend.LearnedPreference, error) { return b.repo.LearnedPreference(ctx, userID) })
}

func (b *Breaker) UpsertLearnedPreference(ctx context.Context, lp *recommend.LearnedPreference) error {
	return exec(b, func() error { return b.repo.UpsertLearnedPreference(ctx, lp) })
}

func (b *Breaker) ActiveHealthGoal(ctx context.Context, userID int64) (*recommend.HealthGoal, error) {
	return call(b, func() (*recommend.HealthGoal, error) { return b.repo.ActiveHealthGoal(ctx, userID) })
}

func (b *Breaker) Demographics(ctx context.Context, userID int64) (*recommend.Demographics, error) {
	return call(b, func() (*recommend.Demographics, error) { return b.repo.Demographics(ctx, userID) })
}

func (b *Breaker) Inventory(ctx context.Context, userID int64) ([]recommend.InventoryItem, error) {
	return call(b, func() ([]recommend.InventoryItem, error) { return b.repo.Inventory(ctx, userID) })
}

var _ recommend.Repository = (*Breaker)(nil)
