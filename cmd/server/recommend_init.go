// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/recommend"
	"github.com/tomtom215/recipewise/internal/recommend/algorithms"
	"github.com/tomtom215/recipewise/internal/recommend/reranking"
)

// RecommendComponents holds the wired recommendation pipeline.
type RecommendComponents struct {
	Engine    *recommend.Engine
	Matrix    *algorithms.MatrixBuilder
	Predictor *algorithms.Predictor
}

// initRecommend builds the engine and registers every lane and reranker
// against repo.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(cfg *recommend.Config, repo recommend.Repository, logger zerolog.Logger) (*RecommendComponents, error) {
	engine, err := recommend.NewEngine(cfg, repo, logger)
	if err != nil {
		return nil, err
	}

	matrix := algorithms.NewMatrixBuilder(repo, algorithms.MatrixOptions{
		MinUserRatings: cfg.Matrix.MinUserRatings,
		MinItemRatings: cfg.Matrix.MinItemRatings,
	}, cfg.Matrix.TTL, cfg.Matrix.Lookback, logger)

	predictorCfg, err := algorithms.PredictorConfigFrom(cfg)
	if err != nil {
		return nil, fmt.Errorf("predictor config: %w", err)
	}
	predictor, err := algorithms.NewPredictor(predictorCfg, algorithms.NewSimilarityCalculator(cfg.Matrix.SimilarityCacheSize))
	if err != nil {
		return nil, fmt.Errorf("create predictor: %w", err)
	}

	content := algorithms.NewContentLane(repo, logger)
	engine.RegisterLane(algorithms.NewRuleLane(repo, logger))
	engine.RegisterLane(algorithms.NewCollaborativeLane(repo, matrix, predictor, cfg.Predictor.MinPredictedRating, logger))
	engine.RegisterLane(content)
	engine.SetSimilarFinder(content)
	engine.SetColdStart(algorithms.NewColdStartHandler(repo, logger))
	engine.SetRanker(reranking.NewRanker(reranking.DefaultRankerConfig()))

	registerRerankers(engine, cfg, repo)

	logger.Info().
		Str("method", cfg.Predictor.Method).
		Str("metric", cfg.Predictor.Metric).
		Str("neighbor_strategy", cfg.Neighbors.Strategy).
		Bool("temporal_diversity", cfg.Diversity.TemporalEnabled).
		Float64("mmr_lambda", cfg.Diversity.MMRLambda).
		Msg("Recommendation engine initialized")

	return &RecommendComponents{Engine: engine, Matrix: matrix, Predictor: predictor}, nil
}

// registerRerankers adds the rerankers enabled in cfg. The temporal
// penalty re-sorts by score, so MMR runs after it.
func registerRerankers(engine *recommend.Engine, cfg *recommend.Config, repo recommend.Repository) {
	if cfg.Diversity.TemporalEnabled {
		engine.RegisterReranker(reranking.NewTemporalDiversity(
			engine,
			repo,
			algorithms.RecipeSimilarity,
			cfg.Diversity.TemporalThreshold,
			cfg.Diversity.TemporalPenalty,
		))
	}
	if cfg.Diversity.MMRLambda > 0 && cfg.Diversity.MMRLambda < 1 {
		engine.RegisterReranker(reranking.NewMMR(cfg.Diversity.MMRLambda, algorithms.RecipeSimilarity))
	}
}
