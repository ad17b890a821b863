// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/recommend"
)

func TestIsColdStart(t *testing.T) {
	tests := []struct {
		counts recommend.InteractionCounts
		want   bool
	}{
		{recommend.InteractionCounts{}, true},
		{recommend.InteractionCounts{Ratings: 2, Favorites: 1, Views: 9}, true},
		{recommend.InteractionCounts{Ratings: 3}, false},
		{recommend.InteractionCounts{Favorites: 2}, false},
		{recommend.InteractionCounts{Views: 10}, false},
		{recommend.InteractionCounts{Ratings: 5, Favorites: 3, Views: 20}, false},
	}
	for _, tt := range tests {
		if got := IsColdStart(tt.counts); got != tt.want {
			t.Errorf("IsColdStart(%+v) = %v, want %v", tt.counts, got, tt.want)
		}
	}
}

func TestIsColdStart_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 1000; i++ {
		c := recommend.InteractionCounts{Ratings: rng.Intn(6), Favorites: rng.Intn(4), Views: rng.Intn(15)}
		if IsColdStart(c) {
			continue
		}
		more := c
		switch rng.Intn(3) {
		case 0:
			more.Ratings++
		case 1:
			more.Favorites++
		default:
			more.Views++
		}
		if IsColdStart(more) {
			t.Fatalf("IsColdStart(%+v) = true after growing from warm %+v", more, c)
		}
	}
}

func coldStartRepo() *memRepo {
	repo := newMemRepo()
	repo.addRecipe(recommend.Recipe{
		ID: 1, Title: "Grilled chicken", AvgRating: 4.8, RatingCount: 120, ViewCount: 5000,
		Ingredients: []recommend.Ingredient{{Name: "chicken", Category: "poultry"}},
		Nutrition:   recommend.Nutrition{Calories: 350, Carbs: 10, Protein: 40},
	})
	repo.addRecipe(recommend.Recipe{
		ID: 2, Title: "Lentil soup", AvgRating: 4.2, RatingCount: 40, ViewCount: 900,
		Ingredients: ingredients("lentils", "carrot"),
		Nutrition:   recommend.Nutrition{Calories: 300, Carbs: 40, Protein: 18},
	})
	repo.addRecipe(recommend.Recipe{
		ID: 3, Title: "Cheese lasagna", AvgRating: 4.5, RatingCount: 80, ViewCount: 3000,
		Ingredients: ingredients("pasta", "cheese"),
		Nutrition:   recommend.Nutrition{Calories: 900, Carbs: 90, Protein: 30},
	})
	return repo
}

func TestColdStartHandler_NewUserGetsPopularity(t *testing.T) {
	h := NewColdStartHandler(coldStartRepo(), zerolog.Nop())

	recs, err := h.Recommend(context.Background(), recommend.Context{UserID: 100}, 10)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	for _, r := range recs {
		if r.Source != recommend.SourceColdStartPrefix+StrategyPopularity {
			t.Errorf("Source = %q, want popularity", r.Source)
		}
		if r.Score < coldStartFloor || r.Score > coldStartFloor+coldStartSpan {
			t.Errorf("score %v outside cold-start band", r.Score)
		}
	}
	if recs[0].RecipeID != 1 {
		t.Errorf("most popular = %d, want 1", recs[0].RecipeID)
	}
}

func TestColdStartHandler_HealthGoalFirst(t *testing.T) {
	repo := coldStartRepo()
	repo.goals[100] = &recommend.HealthGoal{UserID: 100, GoalType: recommend.GoalLoseWeight, Active: true}
	h := NewColdStartHandler(repo, zerolog.Nop())

	recs, err := h.Recommend(context.Background(), recommend.Context{UserID: 100}, 10)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	seen := make(map[int64]bool)
	for _, r := range recs {
		if seen[r.RecipeID] {
			t.Errorf("recipe %d returned twice", r.RecipeID)
		}
		seen[r.RecipeID] = true
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	// Only the light recipes earn goal points; the popularity fallback
	// fills in the lasagna.
	for _, r := range recs[:2] {
		if r.Source != recommend.SourceColdStartPrefix+StrategyHealthGoal {
			t.Errorf("recipe %d source = %q, want health_goal", r.RecipeID, r.Source)
		}
	}
	if last := recs[2]; last.RecipeID != 3 || last.Source != recommend.SourceColdStartPrefix+StrategyPopularity {
		t.Errorf("last = %d from %q, want 3 from popularity", last.RecipeID, last.Source)
	}
}

func TestColdStartHandler_DietaryGate(t *testing.T) {
	repo := coldStartRepo()
	repo.prefs[100] = &recommend.Preference{UserID: 100, DietaryType: recommend.DietaryVegetarian}
	h := NewColdStartHandler(repo, zerolog.Nop())

	recs, err := h.Recommend(context.Background(), recommend.Context{UserID: 100, ExcludeRecipeIDs: []int64{3}}, 10)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 || recs[0].RecipeID != 2 {
		t.Fatalf("Recommend() = %+v, want only the lentil soup", recs)
	}
	if recs[0].Source != recommend.SourceColdStartPrefix+StrategyDietary {
		t.Errorf("Source = %q, want dietary", recs[0].Source)
	}
}

func TestColdStartHandler_Register(t *testing.T) {
	h := NewColdStartHandler(coldStartRepo(), zerolog.Nop())

	if err := h.Register(Strategy{Name: "broken"}); err == nil {
		t.Error("Register() accepted a strategy without a generator")
	}

	err := h.Register(Strategy{
		Name:     "editor_picks",
		Priority: 10,
		Generate: func(_ context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error) {
			return []recommend.Recommendation{{RecipeID: 3, Score: 90}}, nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	names := h.Strategies()
	want := []string{"editor_picks", StrategyHealthGoal, StrategyDietary, StrategyCooking, StrategyDemographic, StrategyPopularity}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Strategies() = %v, want %v", names, want)
	}

	recs, err := h.Recommend(context.Background(), recommend.Context{UserID: 1}, 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 2 || recs[0].RecipeID != 3 || recs[0].Source != recommend.SourceColdStartPrefix+"editor_picks" {
		t.Fatalf("Recommend() = %+v, want editor pick first", recs)
	}
	if recs[1].RecipeID == 3 {
		t.Error("duplicate recipe from fallback strategy")
	}

	// Replacing by name keeps the strategy count.
	if err := h.Register(Strategy{Name: "editor_picks", Priority: 0, Generate: popularityStrategy}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := len(h.Strategies()); got != len(want) {
		t.Errorf("len(Strategies()) = %d, want %d", got, len(want))
	}
}

func TestColdStartHandler_FailingStrategySkipped(t *testing.T) {
	h := NewColdStartHandler(coldStartRepo(), zerolog.Nop())
	_ = h.Register(Strategy{
		Name:     "flaky",
		Priority: 10,
		Generate: func(context.Context, *ColdStartProfile, int) ([]recommend.Recommendation, error) {
			return nil, errors.New("boom")
		},
	})

	recs, err := h.Recommend(context.Background(), recommend.Context{UserID: 1}, 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("Recommend() returned nothing after a strategy failure")
	}
	for _, r := range recs {
		if !strings.HasSuffix(r.Source, StrategyPopularity) {
			t.Errorf("Source = %q, want popularity", r.Source)
		}
	}
}

func TestColdStartHandler_ZeroLimit(t *testing.T) {
	h := NewColdStartHandler(coldStartRepo(), zerolog.Nop())
	recs, err := h.Recommend(context.Background(), recommend.Context{UserID: 1}, 0)
	if err != nil || recs != nil {
		t.Errorf("Recommend(limit 0) = %v, %v", recs, err)
	}
}

func TestDemographicStrategy(t *testing.T) {
	p := &ColdStartProfile{
		Demographics: &recommend.Demographics{Age: 65, ActivityLevel: "inactive"},
		Pool: []recommend.Recipe{
			{ID: 1, Difficulty: recommend.DifficultyHard, Nutrition: recommend.Nutrition{Sodium: 1200}},
			{ID: 2, Difficulty: recommend.DifficultyEasy, Nutrition: recommend.Nutrition{Sodium: 300}},
		},
	}
	recs, err := demographicStrategy(context.Background(), p, 5)
	if err != nil {
		t.Fatalf("demographicStrategy() error = %v", err)
	}
	if len(recs) != 2 || recs[0].RecipeID != 2 {
		t.Fatalf("demographicStrategy() = %+v, want easy low-sodium recipe first", recs)
	}
	if recs[0].Metadata.PreferenceMatch != 1 || recs[1].Metadata.PreferenceMatch != 0 {
		t.Errorf("fits = %v, %v, want 1 and 0", recs[0].Metadata.PreferenceMatch, recs[1].Metadata.PreferenceMatch)
	}
}
