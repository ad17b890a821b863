// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package algorithms implements the scoring lanes and the collaborative
// filtering machinery behind them.
//
// # Collaborative Filtering
//
//   - MatrixBuilder: turns ratings and favorites into an immutable
//     user x recipe RatingMatrix snapshot, cached with a TTL
//   - SimilarityCalculator: cosine, Pearson, Jaccard, adjusted cosine and
//     Euclidean similarity between users or recipes, memoized per snapshot
//   - SelectNeighbors: top_k, threshold and hybrid neighbor selection with
//     adaptive, time-decayed and diversity-constrained variants
//   - Predictor: user-based, item-based, hybrid and simplified
//     matrix-factorization rating prediction with confidence and fallback
//
// # Lanes
//
// Each lane implements recommend.Lane and is registered with the engine:
//
//   - RuleLane: deterministic inventory, price, nutrition, preference and
//     seasonal points behind a hard dietary gate
//   - CollaborativeLane: predicted ratings for unseen recipes
//   - ContentLane: feature match against a learned taste profile; also
//     serves recipe-to-recipe similarity
//
// # Cold Start
//
// ColdStartHandler implements recommend.ColdStarter with a registry of
// prioritized strategies (health goal, dietary, cooking, demographic,
// popularity). Custom strategies can be added with Register.
//
// # Usage Example
//
//	builder := algorithms.NewMatrixBuilder(repo, algorithms.DefaultMatrixOptions(), time.Hour, 0, logger)
//	predictor, err := algorithms.NewPredictor(algorithms.DefaultPredictorConfig(), algorithms.NewSimilarityCalculator(100000))
//	if err != nil {
//	    return err
//	}
//
//	m, err := builder.Current(ctx)
//	if errors.Is(err, recommend.ErrEmptyMatrix) {
//	    // no collaborative signal
//	}
//	pred, err := predictor.Predict(ctx, m, userID, recipeID)
//
// # Thread Safety
//
// Rating matrix snapshots are never mutated after construction; incremental
// updates produce a new snapshot. Lanes, the predictor and the similarity
// calculator are safe for concurrent use.
package algorithms
