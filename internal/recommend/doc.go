// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package recommend implements a hybrid recipe recommendation engine.
//
// # Architecture
//
// The engine blends three independent scoring lanes into one ranked,
// explained list:
//
//   - Rule-based: inventory, budget, nutrition-goal, preference and
//     seasonal points, behind a hard dietary gate
//   - Collaborative: rating prediction over a user x recipe rating matrix
//   - Content-based: ingredient, nutrition, cooking and category match
//     against a learned taste profile
//
// Users with too little history are served by a cold-start handler
// instead of the lanes.
//
// # Request Flow
//
//  1. Resolve lane weights (override > stored preference > default)
//  2. Classify the user as cold-start or not
//  3. Run all lanes concurrently, each under its own timeout
//  4. Merge candidates by recipe, keeping the highest score
//  5. Rank with popularity, freshness, quality and diversity adjustments
//  6. Apply rerankers, truncate and attach reasons
//
// A lane that errors or times out contributes no candidates; the request
// still completes with the remaining lanes.
//
// # Usage
//
//	engine, err := recommend.NewEngine(cfg, repo, logger)
//	engine.RegisterLane(algorithms.NewRuleLane(repo))
//	engine.RegisterLane(algorithms.NewCollaborativeLane(repo, builder, predictorCfg))
//	engine.RegisterLane(algorithms.NewContentLane(repo))
//	engine.SetColdStart(algorithms.NewColdStartHandler(repo))
//	engine.SetRanker(reranking.NewRanker(reranking.DefaultRankerConfig()))
//
//	res, err := engine.GetRecommendations(ctx, recommend.Context{UserID: 42}, 10, nil)
//
// # Thread Safety
//
// The engine is safe for concurrent use. Lane registration takes an
// exclusive lock; requests only read the registered lanes. Rating matrix
// snapshots are immutable and caches are safe to drop at any time.
package recommend
