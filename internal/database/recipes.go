// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// PutRecipe inserts or replaces a recipe. Aggregates maintained by the
// store (average rating, rating count, view count) and the creation time
// of an existing recipe are preserved.
func (d *DB) PutRecipe(ctx context.Context, r *recommend.Recipe) error {
	if r.ID <= 0 {
		return invalid("recipe id must be positive, got %d", r.ID)
	}
	if r.Title == "" {
		return invalid("recipe %d has no title", r.ID)
	}

	return d.update(ctx, "put_recipe", func(txn *badger.Txn) error {
		rec := *r
		var existing recommend.Recipe
		found, err := getJSON(txn, recipeKey(r.ID), &existing)
		if err != nil {
			return err
		}
		if found {
			rec.AvgRating = existing.AvgRating
			rec.RatingCount = existing.RatingCount
			rec.ViewCount = existing.ViewCount
			rec.CreatedAt = existing.CreatedAt
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		return setJSON(txn, recipeKey(rec.ID), &rec)
	})
}

// Recipe returns a recipe by id or recommend.ErrRecipeNotFound.
func (d *DB) Recipe(ctx context.Context, recipeID int64) (*recommend.Recipe, error) {
	var rec recommend.Recipe
	err := d.view(ctx, "recipe", func(txn *badger.Txn) error {
		found, err := getJSON(txn, recipeKey(recipeID), &rec)
		if err != nil {
			return err
		}
		if !found {
			return recommend.ErrRecipeNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recipes returns the recipes with the given ids in request order,
// skipping unknown ids.
func (d *DB) Recipes(ctx context.Context, ids []int64) ([]recommend.Recipe, error) {
	out := make([]recommend.Recipe, 0, len(ids))
	err := d.view(ctx, "recipes", func(txn *badger.Txn) error {
		for _, recipeID := range ids {
			var rec recommend.Recipe
			found, err := getJSON(txn, recipeKey(recipeID), &rec)
			if err != nil {
				return err
			}
			if found {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PublishedRecipes returns visible recipes matching f in id order, starting
// after f.AfterID.
func (d *DB) PublishedRecipes(ctx context.Context, f recommend.RecipeFilter) ([]recommend.Recipe, error) {
	cuisines := make(map[string]struct{}, len(f.Cuisines))
	for _, c := range f.Cuisines {
		cuisines[recommend.NormalizeName(c)] = struct{}{}
	}

	var out []recommend.Recipe
	err := d.view(ctx, "published_recipes", func(txn *badger.Txn) error {
		return d.scanRecipes(txn, f.AfterID, func(rec *recommend.Recipe) bool {
			if !matchesFilter(rec, &f, cuisines) {
				return true
			}
			out = append(out, *rec)
			return f.Limit <= 0 || len(out) < f.Limit
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesFilter(rec *recommend.Recipe, f *recommend.RecipeFilter, cuisines map[string]struct{}) bool {
	if !rec.Visible() {
		return false
	}
	if _, skip := f.ExcludeIDs[rec.ID]; skip {
		return false
	}
	if f.Category != "" && recommend.NormalizeName(rec.Category) != recommend.NormalizeName(f.Category) {
		return false
	}
	if f.MaxCookTime > 0 && rec.CookTimeMinutes > f.MaxCookTime {
		return false
	}
	if len(cuisines) > 0 {
		if _, ok := cuisines[recommend.NormalizeName(rec.Cuisine)]; !ok {
			return false
		}
	}
	return true
}

// PopularRecipes returns visible recipes ordered by average rating, rating
// count and view count, optionally restricted to a category.
func (d *DB) PopularRecipes(ctx context.Context, limit int, category string) ([]recommend.Recipe, error) {
	var out []recommend.Recipe
	err := d.view(ctx, "popular_recipes", func(txn *badger.Txn) error {
		return d.scanRecipes(txn, 0, func(rec *recommend.Recipe) bool {
			if rec.Visible() && (category == "" || recommend.NormalizeName(rec.Category) == recommend.NormalizeName(category)) {
				out = append(out, *rec)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.AvgRating != b.AvgRating {
			return a.AvgRating > b.AvgRating
		}
		if a.RatingCount != b.RatingCount {
			return a.RatingCount > b.RatingCount
		}
		return a.ViewCount > b.ViewCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountRecipes returns the number of stored recipes, visible or not.
func (d *DB) CountRecipes(ctx context.Context) (int, error) {
	n := 0
	err := d.view(ctx, "count_recipes", func(txn *badger.Txn) error {
		n = len(scanKeys(txn, []byte(recipePrefix)))
		return nil
	})
	return n, err
}

// scanRecipes decodes recipes with ids above afterID in id order until fn
// returns false.
func (d *DB) scanRecipes(txn *badger.Txn, afterID int64, fn func(rec *recommend.Recipe) bool) error {
	prefix := []byte(recipePrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	start := prefix
	if afterID > 0 {
		start = recipeKey(afterID + 1)
	}
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		var rec recommend.Recipe
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		if !fn(&rec) {
			return nil
		}
	}
	return nil
}
