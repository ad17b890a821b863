// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// Ensure all lanes implement the engine interfaces.
var (
	_ recommend.Lane          = (*RuleLane)(nil)
	_ recommend.Lane          = (*CollaborativeLane)(nil)
	_ recommend.Lane          = (*ContentLane)(nil)
	_ recommend.SimilarFinder = (*ContentLane)(nil)
	_ recommend.ColdStarter   = (*ColdStartHandler)(nil)
)

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// catalogPageSize is how many recipes one catalog query returns.
const catalogPageSize = 500

// loadCatalog pages through every published recipe matching f in id order.
// Ids in f.ExcludeIDs are skipped by the repository.
//
//nolint:gocritic // hugeParam: f passed by value so paging does not leak to the caller
func loadCatalog(ctx context.Context, repo recommend.Repository, f recommend.RecipeFilter) ([]recommend.Recipe, error) {
	f.Limit = catalogPageSize
	f.AfterID = 0

	var out []recommend.Recipe
	for {
		page, err := repo.PublishedRecipes(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < f.Limit {
			return out, nil
		}
		last := page[len(page)-1].ID
		if last <= f.AfterID {
			return out, nil
		}
		f.AfterID = last
	}
}

// jaccardSimilarity computes Jaccard similarity between two sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// toSet builds a set of normalized names.
func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := recommend.NormalizeName(v); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// ingredientMatches reports whether an ingredient name matches a wanted
// name. "chicken breast" matches "chicken".
func ingredientMatches(ingredient, wanted string) bool {
	if ingredient == "" || wanted == "" {
		return false
	}
	return ingredient == wanted || strings.Contains(ingredient, wanted) || strings.Contains(wanted, ingredient)
}

// countMatches returns how many ingredients match any of the wanted names.
func countMatches(ingredients, wanted []string) int {
	if len(wanted) == 0 {
		return 0
	}
	n := 0
	for _, ing := range ingredients {
		for _, w := range wanted {
			if ingredientMatches(ing, w) {
				n++
				break
			}
		}
	}
	return n
}

// normalizeAll normalizes and deduplicates names, preserving order.
func normalizeAll(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			n := recommend.NormalizeName(v)
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// containsName reports whether list contains name, case-insensitively.
func containsName(list []string, name string) bool {
	name = recommend.NormalizeName(name)
	if name == "" {
		return false
	}
	for _, v := range list {
		if recommend.NormalizeName(v) == name {
			return true
		}
	}
	return false
}

// CurrentSeason returns the northern-hemisphere season for t.
func CurrentSeason(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}

// round rounds v to the given number of decimals.
func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
