// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// Rating bounds accepted by AddRating.
const (
	minRating = 1.0
	maxRating = 5.0
)

// AddRating stores or replaces a user's rating of a recipe and updates the
// recipe's rating aggregates.
//
//nolint:gocritic // hugeParam: r passed by value for immutability
func (d *DB) AddRating(ctx context.Context, r recommend.Rating) error {
	if r.UserID <= 0 || r.RecipeID <= 0 {
		return invalid("rating needs positive user and recipe ids")
	}
	if r.Value < minRating || r.Value > maxRating {
		return invalid("rating %.2f outside [%g, %g]", r.Value, minRating, maxRating)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	return d.update(ctx, "add_rating", func(txn *badger.Txn) error {
		var rec recommend.Recipe
		found, err := getJSON(txn, recipeKey(r.RecipeID), &rec)
		if err != nil {
			return err
		}
		if !found {
			return recommend.ErrRecipeNotFound
		}

		var prev recommend.Rating
		replaced, err := getJSON(txn, ratingKey(r.UserID, r.RecipeID), &prev)
		if err != nil {
			return err
		}

		sum := rec.AvgRating * float64(rec.RatingCount)
		if replaced {
			sum += r.Value - prev.Value
		} else {
			sum += r.Value
			rec.RatingCount++
		}
		rec.AvgRating = sum / float64(rec.RatingCount)

		if err := setJSON(txn, ratingKey(r.UserID, r.RecipeID), &r); err != nil {
			return err
		}
		return setJSON(txn, recipeKey(rec.ID), &rec)
	})
}

// RatingsForUser returns all ratings by a user in recipe id order.
func (d *DB) RatingsForUser(ctx context.Context, userID int64) ([]recommend.Rating, error) {
	var out []recommend.Rating
	err := d.view(ctx, "ratings_for_user", func(txn *badger.Txn) error {
		return scanJSON(txn, userScope(ratingPrefix, userID), func(val []byte) error {
			var r recommend.Rating
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	return out, err
}

// Ratings returns every rating at or after since. A zero since returns
// all ratings.
func (d *DB) Ratings(ctx context.Context, since time.Time) ([]recommend.Rating, error) {
	var out []recommend.Rating
	err := d.view(ctx, "ratings", func(txn *badger.Txn) error {
		return scanJSON(txn, []byte(ratingPrefix), func(val []byte) error {
			var r recommend.Rating
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			if since.IsZero() || !r.Timestamp.Before(since) {
				out = append(out, r)
			}
			return nil
		})
	})
	return out, err
}

// AddFavorite marks a recipe as a user favorite. Adding an existing
// favorite keeps the original timestamp.
//
//nolint:gocritic // hugeParam: f passed by value for immutability
func (d *DB) AddFavorite(ctx context.Context, f recommend.Favorite) error {
	if f.UserID <= 0 || f.RecipeID <= 0 {
		return invalid("favorite needs positive user and recipe ids")
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	return d.update(ctx, "add_favorite", func(txn *badger.Txn) error {
		if _, err := txn.Get(recipeKey(f.RecipeID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return recommend.ErrRecipeNotFound
			}
			return err
		}
		var existing recommend.Favorite
		found, err := getJSON(txn, favoriteKey(f.UserID, f.RecipeID), &existing)
		if err != nil || found {
			return err
		}
		return setJSON(txn, favoriteKey(f.UserID, f.RecipeID), &f)
	})
}

// RemoveFavorite deletes a favorite. Removing a missing favorite is not an
// error.
func (d *DB) RemoveFavorite(ctx context.Context, userID, recipeID int64) error {
	return d.update(ctx, "remove_favorite", func(txn *badger.Txn) error {
		return txn.Delete(favoriteKey(userID, recipeID))
	})
}

// FavoritesForUser returns a user's favorites in recipe id order.
func (d *DB) FavoritesForUser(ctx context.Context, userID int64) ([]recommend.Favorite, error) {
	var out []recommend.Favorite
	err := d.view(ctx, "favorites_for_user", func(txn *badger.Txn) error {
		return scanJSON(txn, userScope(favoritePrefix, userID), func(val []byte) error {
			var f recommend.Favorite
			if err := json.Unmarshal(val, &f); err != nil {
				return err
			}
			out = append(out, f)
			return nil
		})
	})
	return out, err
}

// Favorites returns every favorite created at or after since.
func (d *DB) Favorites(ctx context.Context, since time.Time) ([]recommend.Favorite, error) {
	var out []recommend.Favorite
	err := d.view(ctx, "favorites", func(txn *badger.Txn) error {
		return scanJSON(txn, []byte(favoritePrefix), func(val []byte) error {
			var f recommend.Favorite
			if err := json.Unmarshal(val, &f); err != nil {
				return err
			}
			if since.IsZero() || !f.CreatedAt.Before(since) {
				out = append(out, f)
			}
			return nil
		})
	})
	return out, err
}

// AddView records a recipe view and bumps the recipe's view count.
//
//nolint:gocritic // hugeParam: v passed by value for immutability
func (d *DB) AddView(ctx context.Context, v recommend.View) error {
	if v.UserID <= 0 || v.RecipeID <= 0 {
		return invalid("view needs positive user and recipe ids")
	}
	if v.ViewedAt.IsZero() {
		v.ViewedAt = time.Now().UTC()
	}

	return d.update(ctx, "add_view", func(txn *badger.Txn) error {
		var rec recommend.Recipe
		found, err := getJSON(txn, recipeKey(v.RecipeID), &rec)
		if err != nil {
			return err
		}
		if !found {
			return recommend.ErrRecipeNotFound
		}
		rec.ViewCount++

		if err := setJSON(txn, viewKey(v.UserID, v.RecipeID, v.ViewedAt.UnixNano()), &v); err != nil {
			return err
		}
		return setJSON(txn, recipeKey(rec.ID), &rec)
	})
}

// ViewsForUser returns a user's views, grouped by recipe and oldest first
// within a recipe.
func (d *DB) ViewsForUser(ctx context.Context, userID int64) ([]recommend.View, error) {
	var out []recommend.View
	err := d.view(ctx, "views_for_user", func(txn *badger.Txn) error {
		return scanJSON(txn, userScope(viewPrefix, userID), func(val []byte) error {
			var v recommend.View
			if err := json.Unmarshal(val, &v); err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
	})
	return out, err
}

// InteractionCounts returns how many ratings, favorites and views a user
// has, without decoding the records.
func (d *DB) InteractionCounts(ctx context.Context, userID int64) (recommend.InteractionCounts, error) {
	var c recommend.InteractionCounts
	err := d.view(ctx, "interaction_counts", func(txn *badger.Txn) error {
		c.Ratings = len(scanKeys(txn, userScope(ratingPrefix, userID)))
		c.Favorites = len(scanKeys(txn, userScope(favoritePrefix, userID)))
		c.Views = len(scanKeys(txn, userScope(viewPrefix, userID)))
		return nil
	})
	return c, err
}
