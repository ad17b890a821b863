// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package reranking orders merged lane candidates into the final list.
//
// # Ranker
//
// Ranker implements recommend.Ranker. Each candidate's lane score is blended
// with signals derived from the recipe itself:
//
//	score = 0.3*lane + 0.2*popularity + 0.1*freshness
//	      + 0.2*personalization + 0.1*quality
//
// The blend is multiplied by 1.1 when the user's inventory weight exceeds
// 0.4, or by 1.05 when the preference weight exceeds 0.3. A diversity pass
// then walks the ranked list and rewards the first recipe of each category
// (+10), cuisine (+8) and new tags (+2 each, at most +5). Scores are capped
// at 100.
//
// # Rerankers
//
// Rerankers implement recommend.Reranker and run after ranking:
//
//   - TemporalDiversity subtracts 20 points from candidates resembling a
//     recipe the user was shown recently.
//   - MMR reorders the list by Maximal Marginal Relevance.
//
// Both take a SimilarityFunc, normally algorithms.RecipeSimilarity.
//
// # Usage Example
//
//	engine.SetRanker(reranking.NewRanker(reranking.DefaultRankerConfig()))
//	engine.RegisterReranker(reranking.NewTemporalDiversity(
//	    engine, repo, algorithms.RecipeSimilarity, 0.7, 20))
package reranking
