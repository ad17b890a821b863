// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/recommend"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func putRecipes(t *testing.T, db *DB, recipes ...recommend.Recipe) {
	t.Helper()
	for i := range recipes {
		if err := db.PutRecipe(context.Background(), &recipes[i]); err != nil {
			t.Fatalf("PutRecipe(%d) error = %v", recipes[i].ID, err)
		}
	}
}

func visible(id int64, title, category, cuisine string) recommend.Recipe {
	return recommend.Recipe{
		ID:        id,
		Title:     title,
		Category:  category,
		Cuisine:   cuisine,
		Published: true,
		Public:    true,
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}, zerolog.Nop()); err == nil {
		t.Error("Open() without path succeeded, want error")
	}
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(Config{Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	putRecipes(t, db, visible(1, "soup", "lunch", "french"))
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = Open(Config{Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	rec, err := db.Recipe(ctx, 1)
	if err != nil {
		t.Fatalf("Recipe() after reopen error = %v", err)
	}
	if rec.Title != "soup" {
		t.Errorf("Title = %q, want soup", rec.Title)
	}
}

func TestDB_CloseAndPing(t *testing.T) {
	db, err := Open(Config{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := db.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after close = %v, want ErrClosed", err)
	}
	if _, err := db.Recipe(ctx, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Recipe() after close = %v, want ErrClosed", err)
	}
}

func TestDB_CancelledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.Recipe(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Recipe() error = %v, want context.Canceled", err)
	}
}

func TestDB_PutRecipe(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		recipe  recommend.Recipe
		wantErr bool
	}{
		{name: "valid", recipe: visible(1, "pasta", "dinner", "italian")},
		{name: "zero id", recipe: visible(0, "pasta", "dinner", "italian"), wantErr: true},
		{name: "missing title", recipe: visible(2, "", "dinner", "italian"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.PutRecipe(ctx, &tt.recipe)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutRecipe() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("PutRecipe() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestDB_PutRecipePreservesAggregates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	putRecipes(t, db, visible(1, "pasta", "dinner", "italian"))

	if err := db.AddRating(ctx, recommend.Rating{UserID: 5, RecipeID: 1, Value: 4}); err != nil {
		t.Fatalf("AddRating() error = %v", err)
	}
	if err := db.AddView(ctx, recommend.View{UserID: 5, RecipeID: 1}); err != nil {
		t.Fatalf("AddView() error = %v", err)
	}
	before, _ := db.Recipe(ctx, 1)

	updated := visible(1, "fresh pasta", "dinner", "italian")
	updated.AvgRating = 1
	putRecipes(t, db, updated)

	rec, err := db.Recipe(ctx, 1)
	if err != nil {
		t.Fatalf("Recipe() error = %v", err)
	}
	if rec.Title != "fresh pasta" {
		t.Errorf("Title = %q, want fresh pasta", rec.Title)
	}
	if rec.AvgRating != 4 || rec.RatingCount != 1 || rec.ViewCount != 1 {
		t.Errorf("aggregates = %v/%d/%d, want 4/1/1", rec.AvgRating, rec.RatingCount, rec.ViewCount)
	}
	if !rec.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", before.CreatedAt, rec.CreatedAt)
	}
}

func TestDB_RecipeLookups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hidden := visible(3, "draft", "dinner", "thai")
	hidden.Published = false
	putRecipes(t, db, visible(1, "pasta", "dinner", "italian"), visible(2, "pancakes", "breakfast", "american"), hidden)

	if _, err := db.Recipe(ctx, 99); !errors.Is(err, recommend.ErrRecipeNotFound) {
		t.Errorf("Recipe(99) error = %v, want ErrRecipeNotFound", err)
	}

	got, err := db.Recipes(ctx, []int64{2, 99, 1})
	if err != nil {
		t.Fatalf("Recipes() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("Recipes() = %v, want ids [2 1]", recipeIDs(got))
	}

	n, err := db.CountRecipes(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountRecipes() = %d, %v; want 3, nil", n, err)
	}
}

func TestDB_PublishedRecipes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	quick := visible(4, "salad", "lunch", "greek")
	quick.CookTimeMinutes = 10
	slow := visible(5, "stew", "dinner", "irish")
	slow.CookTimeMinutes = 120
	private := visible(6, "secret", "dinner", "italian")
	private.Public = false
	putRecipes(t, db,
		visible(1, "pasta", "Dinner", "Italian"),
		visible(2, "pancakes", "breakfast", "american"),
		quick, slow, private,
	)

	tests := []struct {
		name   string
		filter recommend.RecipeFilter
		want   []int64
	}{
		{name: "all visible", filter: recommend.RecipeFilter{}, want: []int64{1, 2, 4, 5}},
		{name: "category is case insensitive", filter: recommend.RecipeFilter{Category: "dinner"}, want: []int64{1, 5}},
		{name: "cuisines", filter: recommend.RecipeFilter{Cuisines: []string{"italian", "GREEK"}}, want: []int64{1, 4}},
		{name: "max cook time", filter: recommend.RecipeFilter{MaxCookTime: 30}, want: []int64{1, 2, 4}},
		{name: "limit", filter: recommend.RecipeFilter{Limit: 2}, want: []int64{1, 2}},
		{name: "after id", filter: recommend.RecipeFilter{AfterID: 2}, want: []int64{4, 5}},
		{name: "after id past end", filter: recommend.RecipeFilter{AfterID: 9}, want: []int64{}},
		{
			name:   "excluded ids do not use limit slots",
			filter: recommend.RecipeFilter{Limit: 2, ExcludeIDs: map[int64]struct{}{1: {}, 2: {}}},
			want:   []int64{4, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.PublishedRecipes(ctx, tt.filter)
			if err != nil {
				t.Fatalf("PublishedRecipes() error = %v", err)
			}
			if !equalIDs(recipeIDs(got), tt.want) {
				t.Errorf("PublishedRecipes() = %v, want %v", recipeIDs(got), tt.want)
			}
		})
	}
}

func TestDB_PopularRecipes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	putRecipes(t, db,
		visible(1, "a", "dinner", "x"),
		visible(2, "b", "dinner", "x"),
		visible(3, "c", "lunch", "x"),
		visible(4, "d", "dinner", "x"),
	)

	// 1: avg 4 from two ratings; 2: avg 4 from one rating; 3: avg 5; 4: unrated but viewed.
	for _, r := range []recommend.Rating{
		{UserID: 1, RecipeID: 1, Value: 5},
		{UserID: 2, RecipeID: 1, Value: 3},
		{UserID: 1, RecipeID: 2, Value: 4},
		{UserID: 1, RecipeID: 3, Value: 5},
	} {
		if err := db.AddRating(ctx, r); err != nil {
			t.Fatalf("AddRating() error = %v", err)
		}
	}
	if err := db.AddView(ctx, recommend.View{UserID: 1, RecipeID: 4}); err != nil {
		t.Fatalf("AddView() error = %v", err)
	}

	got, err := db.PopularRecipes(ctx, 0, "")
	if err != nil {
		t.Fatalf("PopularRecipes() error = %v", err)
	}
	if want := []int64{3, 1, 2, 4}; !equalIDs(recipeIDs(got), want) {
		t.Errorf("PopularRecipes() = %v, want %v", recipeIDs(got), want)
	}

	got, err = db.PopularRecipes(ctx, 2, "dinner")
	if err != nil {
		t.Fatalf("PopularRecipes(dinner) error = %v", err)
	}
	if want := []int64{1, 2}; !equalIDs(recipeIDs(got), want) {
		t.Errorf("PopularRecipes(2, dinner) = %v, want %v", recipeIDs(got), want)
	}
}

func TestDB_AddRating(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	putRecipes(t, db, visible(1, "pasta", "dinner", "italian"))

	tests := []struct {
		name    string
		rating  recommend.Rating
		wantErr error
	}{
		{name: "below range", rating: recommend.Rating{UserID: 1, RecipeID: 1, Value: 0.5}, wantErr: ErrInvalidRecord},
		{name: "above range", rating: recommend.Rating{UserID: 1, RecipeID: 1, Value: 6}, wantErr: ErrInvalidRecord},
		{name: "bad user", rating: recommend.Rating{UserID: 0, RecipeID: 1, Value: 3}, wantErr: ErrInvalidRecord},
		{name: "unknown recipe", rating: recommend.Rating{UserID: 1, RecipeID: 9, Value: 3}, wantErr: recommend.ErrRecipeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.AddRating(ctx, tt.rating); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddRating() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	steps := []struct {
		rating    recommend.Rating
		wantAvg   float64
		wantCount int
	}{
		{recommend.Rating{UserID: 1, RecipeID: 1, Value: 5}, 5, 1},
		{recommend.Rating{UserID: 2, RecipeID: 1, Value: 2}, 3.5, 2},
		{recommend.Rating{UserID: 2, RecipeID: 1, Value: 4}, 4.5, 2},
	}
	for i, s := range steps {
		if err := db.AddRating(ctx, s.rating); err != nil {
			t.Fatalf("step %d AddRating() error = %v", i, err)
		}
		rec, _ := db.Recipe(ctx, 1)
		if math.Abs(rec.AvgRating-s.wantAvg) > 1e-9 || rec.RatingCount != s.wantCount {
			t.Errorf("step %d: avg/count = %v/%d, want %v/%d", i, rec.AvgRating, rec.RatingCount, s.wantAvg, s.wantCount)
		}
	}

	ratings, err := db.RatingsForUser(ctx, 2)
	if err != nil {
		t.Fatalf("RatingsForUser() error = %v", err)
	}
	if len(ratings) != 1 || ratings[0].Value != 4 {
		t.Errorf("RatingsForUser(2) = %+v, want one rating of 4", ratings)
	}
	if ratings[0].Timestamp.IsZero() {
		t.Error("rating timestamp not set")
	}
}

func TestDB_RatingsSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	putRecipes(t, db, visible(1, "a", "dinner", "x"), visible(2, "b", "dinner", "x"))

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range []recommend.Rating{
		{UserID: 1, RecipeID: 1, Value: 4, Timestamp: old},
		{UserID: 2, RecipeID: 2, Value: 3, Timestamp: recent},
	} {
		if err := db.AddRating(ctx, r); err != nil {
			t.Fatalf("AddRating() error = %v", err)
		}
	}

	all, err := db.Ratings(ctx, time.Time{})
	if err != nil || len(all) != 2 {
		t.Errorf("Ratings(zero) = %d, %v; want 2, nil", len(all), err)
	}
	since, err := db.Ratings(ctx, recent)
	if err != nil || len(since) != 1 || since[0].UserID != 2 {
		t.Errorf("Ratings(recent) = %+v, %v; want user 2 only", since, err)
	}
}

func TestDB_Favorites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	putRecipes(t, db, visible(1, "a", "dinner", "x"), visible(2, "b", "dinner", "x"))

	first := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := db.AddFavorite(ctx, recommend.Favorite{UserID: 1, RecipeID: 1, CreatedAt: first}); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	if err := db.AddFavorite(ctx, recommend.Favorite{UserID: 1, RecipeID: 1}); err != nil {
		t.Fatalf("repeat AddFavorite() error = %v", err)
	}
	if err := db.AddFavorite(ctx, recommend.Favorite{UserID: 1, RecipeID: 2}); err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	if err := db.AddFavorite(ctx, recommend.Favorite{UserID: 1, RecipeID: 9}); !errors.Is(err, recommend.ErrRecipeNotFound) {
		t.Errorf("AddFavorite(unknown) error = %v, want ErrRecipeNotFound", err)
	}

	favs, err := db.FavoritesForUser(ctx, 1)
	if err != nil {
		t.Fatalf("FavoritesForUser() error = %v", err)
	}
	if len(favs) != 2 || !favs[0].CreatedAt.Equal(first) {
		t.Errorf("FavoritesForUser() = %+v, want 2 with original timestamp kept", favs)
	}

	since, err := db.Favorites(ctx, first.Add(time.Hour))
	if err != nil || len(since) != 1 || since[0].RecipeID != 2 {
		t.Errorf("Favorites(since) = %+v, %v; want recipe 2 only", since, err)
	}

	if err := db.RemoveFavorite(ctx, 1, 1); err != nil {
		t.Fatalf("RemoveFavorite() error = %v", err)
	}
	if err := db.RemoveFavorite(ctx, 1, 1); err != nil {
		t.Errorf("repeat RemoveFavorite() error = %v", err)
	}
	favs, _ = db.FavoritesForUser(ctx, 1)
	if len(favs) != 1 {
		t.Errorf("FavoritesForUser() after remove = %d, want 1", len(favs))
	}
}

func TestDB_ViewsAndCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	putRecipes(t, db, visible(1, "a", "dinner", "x"), visible(2, "b", "dinner", "x"))

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, recipeID := range []int64{1, 1, 2} {
		v := recommend.View{UserID: 3, RecipeID: recipeID, ViewedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.AddView(ctx, v); err != nil {
			t.Fatalf("AddView() error = %v", err)
		}
	}
	if err := db.AddRating(ctx, recommend.Rating{UserID: 3, RecipeID: 2, Value: 5}); err != nil {
		t.Fatalf("AddRating() error = %v", err)
	}
	// Another user with an id sharing a prefix must not leak into user 3.
	if err := db.AddView(ctx, recommend.View{UserID: 30, RecipeID: 1}); err != nil {
		t.Fatalf("AddView() error = %v", err)
	}

	views, err := db.ViewsForUser(ctx, 3)
	if err != nil {
		t.Fatalf("ViewsForUser() error = %v", err)
	}
	if len(views) != 3 {
		t.Errorf("ViewsForUser() = %d views, want 3", len(views))
	}

	counts, err := db.InteractionCounts(ctx, 3)
	if err != nil {
		t.Fatalf("InteractionCounts() error = %v", err)
	}
	want := recommend.InteractionCounts{Ratings: 1, Favorites: 0, Views: 3}
	if counts != want {
		t.Errorf("InteractionCounts() = %+v, want %+v", counts, want)
	}

	rec, _ := db.Recipe(ctx, 1)
	if rec.ViewCount != 3 {
		t.Errorf("ViewCount = %d, want 3", rec.ViewCount)
	}
}

func TestDB_Profiles(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if p, err := db.Preference(ctx, 1); err != nil || p != nil {
		t.Errorf("Preference(absent) = %v, %v; want nil, nil", p, err)
	}
	if g, err := db.ActiveHealthGoal(ctx, 1); err != nil || g != nil {
		t.Errorf("ActiveHealthGoal(absent) = %v, %v; want nil, nil", g, err)
	}

	pref := &recommend.Preference{UserID: 1, DietaryType: recommend.DietaryType("vegetarian"), PreferredCuisines: []string{"thai"}}
	if err := db.UpsertPreference(ctx, pref); err != nil {
		t.Fatalf("UpsertPreference() error = %v", err)
	}
	got, err := db.Preference(ctx, 1)
	if err != nil || got == nil || len(got.PreferredCuisines) != 1 || got.DietaryType != pref.DietaryType {
		t.Errorf("Preference() = %+v, %v", got, err)
	}

	if err := db.UpsertPreference(ctx, &recommend.Preference{UserID: 0}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("UpsertPreference(user 0) error = %v, want ErrInvalidRecord", err)
	}

	lp := &recommend.LearnedPreference{UserID: 1, FrequentCuisines: []string{"thai"}, SampleSize: 4, Confidence: 0.04}
	if err := db.UpsertLearnedPreference(ctx, lp); err != nil {
		t.Fatalf("UpsertLearnedPreference() error = %v", err)
	}
	if got, err := db.LearnedPreference(ctx, 1); err != nil || got == nil || got.SampleSize != 4 {
		t.Errorf("LearnedPreference() = %+v, %v", got, err)
	}

	if err := db.PutHealthGoal(ctx, &recommend.HealthGoal{UserID: 1, GoalType: "LOSE_WEIGHT", Active: false}); err != nil {
		t.Fatalf("PutHealthGoal() error = %v", err)
	}
	if g, err := db.ActiveHealthGoal(ctx, 1); err != nil || g != nil {
		t.Errorf("ActiveHealthGoal(inactive) = %+v, %v; want nil, nil", g, err)
	}
	if err := db.PutHealthGoal(ctx, &recommend.HealthGoal{UserID: 1, GoalType: "LOSE_WEIGHT", Active: true}); err != nil {
		t.Fatalf("PutHealthGoal() error = %v", err)
	}
	if g, err := db.ActiveHealthGoal(ctx, 1); err != nil || g == nil || g.CreatedAt.IsZero() {
		t.Errorf("ActiveHealthGoal(active) = %+v, %v", g, err)
	}

	if err := db.PutDemographics(ctx, &recommend.Demographics{UserID: 1, Age: 34}); err != nil {
		t.Fatalf("PutDemographics() error = %v", err)
	}
	if dm, err := db.Demographics(ctx, 1); err != nil || dm == nil || dm.Age != 34 {
		t.Errorf("Demographics() = %+v, %v", dm, err)
	}
}

func TestDB_Inventory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	items := []recommend.InventoryItem{
		{Name: " Garlic ", Quantity: 3},
		{Name: "basil", Quantity: 1},
		{Name: "salt", Quantity: 0},
		{Name: "", Quantity: 2},
	}
	if err := db.SetInventory(ctx, 1, items); err != nil {
		t.Fatalf("SetInventory() error = %v", err)
	}

	got, err := db.Inventory(ctx, 1)
	if err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "basil" || got[1].Name != "garlic" || got[1].UserID != 1 {
		t.Errorf("Inventory() = %+v, want basil then garlic", got)
	}

	if err := db.SetInventory(ctx, 1, []recommend.InventoryItem{{Name: "rice", Quantity: 1}}); err != nil {
		t.Fatalf("SetInventory() replace error = %v", err)
	}
	got, _ = db.Inventory(ctx, 1)
	if len(got) != 1 || got[0].Name != "rice" {
		t.Errorf("Inventory() after replace = %+v, want rice only", got)
	}
}

func recipeIDs(recs []recommend.Recipe) []int64 {
	ids := make([]int64, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
