// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import "sort"

// MergeByMax merges candidate lists by recipe id, keeping the
// highest-scoring instance of each recipe. On equal scores the first
// instance seen wins. The result is sorted by score descending with recipe
// id as tie-break, so merging is idempotent.
func MergeByMax(lists ...[]Recommendation) []Recommendation {
	best := make(map[int64]Recommendation)
	for _, list := range lists {
		for _, rec := range list {
			if cur, ok := best[rec.RecipeID]; !ok || rec.Score > cur.Score {
				best[rec.RecipeID] = rec
			}
		}
	}

	merged := make([]Recommendation, 0, len(best))
	for _, rec := range best {
		merged = append(merged, rec)
	}
	SortByScore(merged)
	return merged
}

// SortByScore sorts recommendations by score descending, then recipe id.
func SortByScore(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].RecipeID < recs[j].RecipeID
	})
}

// filterExcluded drops recommendations whose recipe id is excluded.
func filterExcluded(recs []Recommendation, exclude map[int64]struct{}) []Recommendation {
	if len(exclude) == 0 {
		return recs
	}
	filtered := recs[:0:0]
	for _, rec := range recs {
		if _, skip := exclude[rec.RecipeID]; !skip {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// truncate returns at most n recommendations.
func truncate(recs []Recommendation, n int) []Recommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}
