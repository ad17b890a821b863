// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/recipewise/internal/metrics"
)

// Signal weights used when mining learned preferences.
const (
	favoriteSignal    = 3.0
	likedRatingSignal = 2.0
	viewSignal        = 1.0

	// likedRatingMin is the lowest rating counted as a positive signal.
	likedRatingMin = 4.0

	learnedCuisines    = 5
	learnedIngredients = 15
	learnedCategories  = 5

	// confidenceSampleCap is the sample size at which confidence saturates.
	confidenceSampleCap = 100
)

// UpdateUserPreferences mines a user's rating, favorite and view history
// into a learned preference record and persists it. Confidence grows with
// the sample size: min(n, 100) / 100.
func (e *Engine) UpdateUserPreferences(ctx context.Context, userID int64) (*LearnedPreference, error) {
	start := time.Now()
	lp, err := e.updateUserPreferences(ctx, userID)
	metrics.RecordRecommendRequest("update_user_preferences", time.Since(start), err)
	return lp, err
}

func (e *Engine) updateUserPreferences(ctx context.Context, userID int64) (*LearnedPreference, error) {
	history, err := e.loadHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	signals := history.signals()
	ids := make([]int64, 0, len(signals))
	for id := range signals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	recipes, err := e.repo.Recipes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	cuisines := make(map[string]float64)
	ingredients := make(map[string]float64)
	categories := make(map[string]float64)
	for i := range recipes {
		w := signals[recipes[i].ID]
		if c := NormalizeName(recipes[i].Cuisine); c != "" {
			cuisines[c] += w
		}
		if c := NormalizeName(recipes[i].Category); c != "" {
			categories[c] += w
		}
		for _, name := range recipes[i].IngredientNames() {
			ingredients[name] += w
		}
	}

	sampleSize := len(history.ratings) + len(history.favorites) + len(history.views)
	lp := &LearnedPreference{
		UserID:              userID,
		FrequentCuisines:    TopCounts(cuisines, learnedCuisines),
		FrequentIngredients: TopCounts(ingredients, learnedIngredients),
		FrequentCategories:  TopCounts(categories, learnedCategories),
		AverageRating:       averageRating(history.ratings),
		FavoriteCount:       len(history.favorites),
		SampleSize:          sampleSize,
		Confidence:          LearnedConfidence(sampleSize),
		UpdatedAt:           time.Now().UTC(),
	}

	if err := e.repo.UpsertLearnedPreference(ctx, lp); err != nil {
		return nil, fmt.Errorf("save learned preference: %w", err)
	}
	e.responses.Invalidate("preferences updated")

	e.logger.Info().
		Int64("user_id", userID).
		Int("sample_size", sampleSize).
		Float64("confidence", lp.Confidence).
		Msg("updated learned preferences")

	return lp, nil
}

// signals returns a positive-signal weight per recipe. Ratings below
// likedRatingMin carry no signal.
func (h *userHistory) signals() map[int64]float64 {
	signals := make(map[int64]float64)
	for _, r := range h.ratings {
		if r.Value >= likedRatingMin {
			signals[r.RecipeID] += likedRatingSignal
		}
	}
	for _, f := range h.favorites {
		signals[f.RecipeID] += favoriteSignal
	}
	for _, v := range h.views {
		signals[v.RecipeID] += viewSignal
	}
	return signals
}

// LearnedConfidence returns min(n, 100) / 100.
func LearnedConfidence(sampleSize int) float64 {
	if sampleSize <= 0 {
		return 0
	}
	return math.Min(float64(sampleSize), confidenceSampleCap) / confidenceSampleCap
}

// TopCounts returns up to n keys with the highest counts, ties broken
// alphabetically.
func TopCounts(counts map[string]float64, n int) []string {
	keys := make([]string, 0, len(counts))
	for k, c := range counts {
		if c > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func averageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r.Value
	}
	return sum / float64(len(ratings))
}
