// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine and the
// lanes wired into it.
type Config struct {
	// Weights are the default lane weights, used when neither the request
	// nor the stored preference sets a weight.
	Weights LaneWeights `json:"weights" koanf:"weights"`

	// Matrix contains rating matrix build parameters.
	Matrix MatrixConfig `json:"matrix" koanf:"matrix"`

	// Neighbors contains neighbor selection parameters.
	Neighbors NeighborConfig `json:"neighbors" koanf:"neighbors"`

	// Predictor contains rating prediction parameters.
	Predictor PredictorConfig `json:"predictor" koanf:"predictor"`

	// Diversity contains reranking parameters.
	Diversity DiversityConfig `json:"diversity" koanf:"diversity"`

	// Explain contains explanation parameters.
	Explain ExplainConfig `json:"explain" koanf:"explain"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache contains response caching parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// MatrixConfig controls which ratings enter the rating matrix.
type MatrixConfig struct {
	// MinUserRatings is the minimum number of ratings a user needs.
	MinUserRatings int `json:"min_user_ratings" koanf:"min_user_ratings"`

	// MinItemRatings is the minimum number of ratings a recipe needs among
	// qualifying users.
	MinItemRatings int `json:"min_item_ratings" koanf:"min_item_ratings"`

	// Lookback limits ratings to this window. Zero means all history.
	Lookback time.Duration `json:"lookback" koanf:"lookback"`

	// TTL is how long a built snapshot is reused.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// SimilarityCacheSize bounds the similarity memo.
	SimilarityCacheSize int `json:"similarity_cache_size" koanf:"similarity_cache_size"`
}

// NeighborConfig controls neighbor selection.
type NeighborConfig struct {
	// Strategy is one of "top_k", "threshold" or "hybrid".
	Strategy string `json:"strategy" koanf:"strategy"`

	// MaxNeighbors caps the neighbor set.
	MaxNeighbors int `json:"max_neighbors" koanf:"max_neighbors"`

	// MinSimilarity is the similarity floor.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`

	// MinCommonItems is the minimum number of co-rated items.
	MinCommonItems int `json:"min_common_items" koanf:"min_common_items"`

	// DiversityThreshold rejects neighbors whose similarity to an already
	// chosen neighbor exceeds it. 1 disables the check.
	DiversityThreshold float64 `json:"diversity_threshold" koanf:"diversity_threshold"`

	// TimeDecayWindow discounts neighbors whose shared ratings are older
	// than the window. Zero disables decay.
	TimeDecayWindow time.Duration `json:"time_decay_window" koanf:"time_decay_window"`

	// Adaptive enables per-user neighbor parameters.
	Adaptive bool `json:"adaptive" koanf:"adaptive"`
}

// PredictorConfig controls rating prediction.
type PredictorConfig struct {
	// Method is one of "user_based", "item_based", "hybrid" or
	// "matrix_factorization".
	Method string `json:"method" koanf:"method"`

	// Metric is the similarity metric used for neighbors.
	Metric string `json:"metric" koanf:"metric"`

	// MinNeighbors is the minimum number of contributing neighbors.
	MinNeighbors int `json:"min_neighbors" koanf:"min_neighbors"`

	// ConfidenceThreshold triggers fallback when confidence is below it.
	ConfidenceThreshold float64 `json:"confidence_threshold" koanf:"confidence_threshold"`

	// EnableFallback substitutes average ratings for weak predictions.
	EnableFallback bool `json:"enable_fallback" koanf:"enable_fallback"`

	// MinPredictedRating drops collaborative candidates below this rating.
	MinPredictedRating float64 `json:"min_predicted_rating" koanf:"min_predicted_rating"`
}

// DiversityConfig controls post-ranking diversity.
type DiversityConfig struct {
	// TemporalEnabled penalizes recipes similar to recently shown ones.
	TemporalEnabled bool `json:"temporal_enabled" koanf:"temporal_enabled"`

	// TemporalThreshold is the similarity above which the penalty applies.
	TemporalThreshold float64 `json:"temporal_threshold" koanf:"temporal_threshold"`

	// TemporalPenalty is subtracted from the score of similar recipes.
	TemporalPenalty float64 `json:"temporal_penalty" koanf:"temporal_penalty"`

	// RecentWindow is how many recently shown recipes are remembered per user.
	RecentWindow int `json:"recent_window" koanf:"recent_window"`

	// MMRLambda enables maximal marginal relevance reranking when positive.
	// 1 is pure relevance; lower values favor variety.
	MMRLambda float64 `json:"mmr_lambda" koanf:"mmr_lambda"`
}

// ExplainConfig controls reason generation.
type ExplainConfig struct {
	// ReasonThreshold is the metadata ratio above which a reason is attached.
	ReasonThreshold float64 `json:"reason_threshold" koanf:"reason_threshold"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	DefaultLimit int `json:"default_limit" koanf:"default_limit"`
	MaxLimit     int `json:"max_limit" koanf:"max_limit"`

	// CandidateMultiplier sets how many candidates each lane returns
	// relative to the requested limit.
	CandidateMultiplier int `json:"candidate_multiplier" koanf:"candidate_multiplier"`

	// LaneTimeout bounds each lane. A timed-out lane contributes nothing.
	LaneTimeout time.Duration `json:"lane_timeout" koanf:"lane_timeout"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled    bool          `json:"enabled" koanf:"enabled"`
	TTL        time.Duration `json:"ttl" koanf:"ttl"`
	MaxEntries int           `json:"max_entries" koanf:"max_entries"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: DefaultLaneWeights(),
		Matrix: MatrixConfig{
			MinUserRatings:      1,
			MinItemRatings:      1,
			TTL:                 time.Hour,
			SimilarityCacheSize: 100000,
		},
		Neighbors: NeighborConfig{
			Strategy:           "hybrid",
			MaxNeighbors:       50,
			MinSimilarity:      0.1,
			MinCommonItems:     2,
			DiversityThreshold: 1,
			Adaptive:           true,
		},
		Predictor: PredictorConfig{
			Method:              "hybrid",
			Metric:              "cosine",
			MinNeighbors:        2,
			ConfidenceThreshold: 0.1,
			EnableFallback:      true,
			MinPredictedRating:  3.0,
		},
		Diversity: DiversityConfig{
			TemporalEnabled:   true,
			TemporalThreshold: 0.7,
			TemporalPenalty:   20,
			RecentWindow:      20,
		},
		Explain: ExplainConfig{
			ReasonThreshold: 0.7,
		},
		Limits: LimitsConfig{
			DefaultLimit:        10,
			MaxLimit:            100,
			CandidateMultiplier: 2,
			LaneTimeout:         5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Weights.Inventory < 0 || c.Weights.Price < 0 || c.Weights.Nutrition < 0 ||
		c.Weights.Preference < 0 || c.Weights.Seasonal < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", c.Weights)
	}
	if c.Weights.IsZero() {
		return fmt.Errorf("weights must not all be zero")
	}

	if c.Matrix.MinUserRatings < 1 {
		return fmt.Errorf("matrix.min_user_ratings must be positive, got %d", c.Matrix.MinUserRatings)
	}
	if c.Matrix.MinItemRatings < 1 {
		return fmt.Errorf("matrix.min_item_ratings must be positive, got %d", c.Matrix.MinItemRatings)
	}
	if c.Matrix.TTL <= 0 {
		return fmt.Errorf("matrix.ttl must be positive, got %v", c.Matrix.TTL)
	}

	switch c.Neighbors.Strategy {
	case "top_k", "threshold", "hybrid":
	default:
		return fmt.Errorf("neighbors.strategy must be top_k, threshold or hybrid, got %q", c.Neighbors.Strategy)
	}
	if c.Neighbors.MaxNeighbors < 1 {
		return fmt.Errorf("neighbors.max_neighbors must be positive, got %d", c.Neighbors.MaxNeighbors)
	}
	if c.Neighbors.MinSimilarity < -1 || c.Neighbors.MinSimilarity > 1 {
		return fmt.Errorf("neighbors.min_similarity must be in [-1, 1], got %f", c.Neighbors.MinSimilarity)
	}
	if c.Neighbors.DiversityThreshold <= 0 || c.Neighbors.DiversityThreshold > 1 {
		return fmt.Errorf("neighbors.diversity_threshold must be in (0, 1], got %f", c.Neighbors.DiversityThreshold)
	}
	if c.Neighbors.TimeDecayWindow < 0 {
		return fmt.Errorf("neighbors.time_decay_window must not be negative, got %s", c.Neighbors.TimeDecayWindow)
	}

	switch c.Predictor.Method {
	case "user_based", "item_based", "hybrid", "matrix_factorization":
	default:
		return fmt.Errorf("predictor.method is unknown: %q", c.Predictor.Method)
	}
	switch c.Predictor.Metric {
	case "cosine", "pearson", "jaccard", "adjusted_cosine", "euclidean":
	default:
		return fmt.Errorf("predictor.metric is unknown: %q", c.Predictor.Metric)
	}
	if c.Predictor.ConfidenceThreshold < 0 || c.Predictor.ConfidenceThreshold > 1 {
		return fmt.Errorf("predictor.confidence_threshold must be in [0, 1], got %f", c.Predictor.ConfidenceThreshold)
	}

	if c.Diversity.MMRLambda < 0 || c.Diversity.MMRLambda > 1 {
		return fmt.Errorf("diversity.mmr_lambda must be in [0, 1], got %f", c.Diversity.MMRLambda)
	}
	if c.Diversity.TemporalThreshold < 0 || c.Diversity.TemporalThreshold > 1 {
		return fmt.Errorf("diversity.temporal_threshold must be in [0, 1], got %f", c.Diversity.TemporalThreshold)
	}
	if c.Explain.ReasonThreshold < 0 || c.Explain.ReasonThreshold > 1 {
		return fmt.Errorf("explain.reason_threshold must be in [0, 1], got %f", c.Explain.ReasonThreshold)
	}

	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit must be >= limits.default_limit, got %d < %d", c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.CandidateMultiplier < 1 {
		return fmt.Errorf("limits.candidate_multiplier must be positive, got %d", c.Limits.CandidateMultiplier)
	}
	if c.Limits.LaneTimeout <= 0 {
		return fmt.Errorf("limits.lane_timeout must be positive, got %v", c.Limits.LaneTimeout)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache is enabled, got %v", c.Cache.TTL)
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	clone := *c
	return &clone
}
