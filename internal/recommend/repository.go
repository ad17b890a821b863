// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import (
	"context"
	"time"
)

// RecipeFilter narrows a catalog query. Only published, public recipes are
// ever returned.
type RecipeFilter struct {
	Category    string
	Cuisines    []string
	MaxCookTime int
	Limit       int

	// AfterID pages through the catalog: only ids above it are returned.
	AfterID int64

	// ExcludeIDs are skipped without counting toward Limit.
	ExcludeIDs map[int64]struct{}
}

// Repository is the persistence contract the pipeline reads from.
// It is typically implemented by the database package. List fields are
// decoded into typed slices at this boundary.
//
// Lookups of single optional records (preference, learned preference,
// health goal, demographics) return nil and no error when absent.
type Repository interface {
	// RatingsForUser returns all explicit ratings by a user.
	RatingsForUser(ctx context.Context, userID int64) ([]Rating, error)

	// Ratings returns all explicit ratings at or after since. A zero since
	// returns every rating.
	Ratings(ctx context.Context, since time.Time) ([]Rating, error)

	FavoritesForUser(ctx context.Context, userID int64) ([]Favorite, error)
	Favorites(ctx context.Context, since time.Time) ([]Favorite, error)
	ViewsForUser(ctx context.Context, userID int64) ([]View, error)

	// Recipe returns a single recipe or ErrRecipeNotFound.
	Recipe(ctx context.Context, id int64) (*Recipe, error)

	// Recipes returns the recipes with the given ids, skipping unknown ids.
	Recipes(ctx context.Context, ids []int64) ([]Recipe, error)

	// PublishedRecipes returns visible recipes matching the filter.
	PublishedRecipes(ctx context.Context, filter RecipeFilter) ([]Recipe, error)

	// PopularRecipes returns visible recipes ordered by average rating,
	// rating count and view count, optionally restricted to a category.
	PopularRecipes(ctx context.Context, limit int, category string) ([]Recipe, error)

	Preference(ctx context.Context, userID int64) (*Preference, error)
	UpsertPreference(ctx context.Context, pref *Preference) error
	LearnedPreference(ctx context.Context, userID int64) (*LearnedPreference, error)
	UpsertLearnedPreference(ctx context.Context, lp *LearnedPreference) error
	ActiveHealthGoal(ctx context.Context, userID int64) (*HealthGoal, error)
	Demographics(ctx context.Context, userID int64) (*Demographics, error)
	Inventory(ctx context.Context, userID int64) ([]InventoryItem, error)
}
