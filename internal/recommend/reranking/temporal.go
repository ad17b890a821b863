// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package reranking

import (
	"context"
	"math"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// SimilarityFunc returns the similarity of two recipes in [0, 1].
type SimilarityFunc func(a, b *recommend.Recipe) float64

// RecentProvider returns the recipes recently shown to a user.
type RecentProvider interface {
	RecentlyShown(userID int64) []int64
}

// RecipeSource loads recipes by id.
type RecipeSource interface {
	Recipes(ctx context.Context, ids []int64) ([]recommend.Recipe, error)
}

// TemporalDiversity penalizes candidates that closely resemble recipes the
// user was shown recently.
type TemporalDiversity struct {
	recent    RecentProvider
	recipes   RecipeSource
	sim       SimilarityFunc
	threshold float64
	penalty   float64
}

// NewTemporalDiversity creates the temporal diversity reranker. A candidate
// more similar than threshold to any recent recipe loses penalty points.
func NewTemporalDiversity(recent RecentProvider, recipes RecipeSource, sim SimilarityFunc, threshold, penalty float64) *TemporalDiversity {
	return &TemporalDiversity{
		recent:    recent,
		recipes:   recipes,
		sim:       sim,
		threshold: threshold,
		penalty:   penalty,
	}
}

// Name returns the reranker identifier.
func (t *TemporalDiversity) Name() string {
	return "temporal_diversity"
}

// Rerank applies the penalty and re-sorts. If recent recipes cannot be
// loaded the list is returned unchanged.
func (t *TemporalDiversity) Rerank(ctx context.Context, userID int64, recs []recommend.Recommendation) []recommend.Recommendation {
	ids := t.recent.RecentlyShown(userID)
	if len(ids) == 0 || len(recs) == 0 {
		return recs
	}

	shown, err := t.recipes.Recipes(ctx, ids)
	if err != nil || len(shown) == 0 {
		return recs
	}

	return Penalize(recs, shown, t.sim, t.threshold, t.penalty)
}

// Penalize subtracts penalty (floored at 0) from each candidate whose
// similarity to any recipe in shown exceeds threshold, then re-sorts.
func Penalize(recs []recommend.Recommendation, shown []recommend.Recipe, sim SimilarityFunc, threshold, penalty float64) []recommend.Recommendation {
	out := make([]recommend.Recommendation, len(recs))
	copy(out, recs)

	for i := range out {
		if out[i].Recipe == nil {
			continue
		}
		for j := range shown {
			if shown[j].ID == out[i].RecipeID {
				continue
			}
			if sim(out[i].Recipe, &shown[j]) > threshold {
				out[i].Score = math.Max(0, out[i].Score-penalty)
				break
			}
		}
	}

	recommend.SortByScore(out)
	return out
}

var _ recommend.Reranker = (*TemporalDiversity)(nil)
