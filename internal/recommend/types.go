// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import (
	"context"
	"strings"
	"time"
)

// Difficulty grades how hard a recipe is to cook.
type Difficulty int

const (
	// DifficultyEasy is a beginner-friendly recipe.
	DifficultyEasy Difficulty = iota + 1
	// DifficultyMedium needs some cooking experience.
	DifficultyMedium
	// DifficultyHard needs advanced technique.
	DifficultyHard
)

// String returns a human-readable name for the difficulty.
func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return "unknown"
	}
}

// DietaryType is the dietary regime a user declares.
type DietaryType string

const (
	DietaryNone        DietaryType = ""
	DietaryVegetarian  DietaryType = "vegetarian"
	DietaryVegan       DietaryType = "vegan"
	DietaryLowCarb     DietaryType = "low_carb"
	DietaryLowFat      DietaryType = "low_fat"
	DietaryHighProtein DietaryType = "high_protein"
)

// GoalType is the kind of health goal a user is working towards.
type GoalType string

const (
	GoalLoseWeight    GoalType = "LOSE_WEIGHT"
	GoalGainMuscle    GoalType = "GAIN_MUSCLE"
	GoalMaintain      GoalType = "MAINTAIN"
	GoalGeneralHealth GoalType = "GENERAL_HEALTH"
)

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`

	// FoodID references the food catalog entry, if known.
	FoodID int64 `json:"food_id,omitempty"`

	// Category is the food category tag (e.g. "meat", "seafood", "dairy").
	Category string `json:"category,omitempty"`
}

// Nutrition is the per-serving nutrition profile of a recipe.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sodium   float64 `json:"sodium"`
}

// Recipe is a catalog item that can be recommended.
type Recipe struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Ingredients []Ingredient `json:"ingredients"`
	Nutrition   Nutrition    `json:"nutrition"`

	// CookTimeMinutes is the total preparation and cooking time.
	CookTimeMinutes int        `json:"cook_time_minutes"`
	Difficulty      Difficulty `json:"difficulty"`
	Category        string     `json:"category"`
	Cuisine         string     `json:"cuisine"`
	Tags            []string   `json:"tags,omitempty"`

	// Seasons lists the seasons the recipe is suited to. Empty means any season.
	Seasons []string `json:"seasons,omitempty"`

	// CostLevel is the relative ingredient cost (1 cheap .. 3 expensive).
	CostLevel int `json:"cost_level"`

	Published bool `json:"published"`
	Public    bool `json:"public"`

	// Aggregate statistics maintained by the persistence layer.
	AvgRating   float64   `json:"avg_rating"`
	RatingCount int       `json:"rating_count"`
	ViewCount   int       `json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Visible reports whether the recipe may be shown to users.
func (r *Recipe) Visible() bool {
	return r.Published && r.Public
}

// IngredientNames returns the normalized ingredient names of the recipe.
func (r *Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if n := NormalizeName(ing.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// HasSeason reports whether the recipe declares the given season.
func (r *Recipe) HasSeason(season string) bool {
	season = NormalizeName(season)
	for _, s := range r.Seasons {
		if NormalizeName(s) == season {
			return true
		}
	}
	return false
}

// Rating is an explicit 1-5 score a user gave a recipe.
type Rating struct {
	UserID    int64     `json:"user_id"`
	RecipeID  int64     `json:"recipe_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Favorite marks a recipe as a user favorite. It counts as an implicit
// rating of 5 when the user has not rated the recipe explicitly.
type Favorite struct {
	UserID    int64     `json:"user_id"`
	RecipeID  int64     `json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}

// View records that a user opened a recipe. Views only mark a recipe as
// known; they never imply a rating.
type View struct {
	UserID   int64     `json:"user_id"`
	RecipeID int64     `json:"recipe_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// InteractionCounts summarizes a user's interaction history.
type InteractionCounts struct {
	Ratings   int `json:"ratings"`
	Favorites int `json:"favorites"`
	Views     int `json:"views"`
}

// LaneWeights are the per-user weights applied to the rule-based scoring
// dimensions. They also steer the ranker's final multiplier.
type LaneWeights struct {
	Inventory  float64 `json:"inventory" koanf:"inventory" validate:"gte=0,lte=1"`
	Price      float64 `json:"price" koanf:"price" validate:"gte=0,lte=1"`
	Nutrition  float64 `json:"nutrition" koanf:"nutrition" validate:"gte=0,lte=1"`
	Preference float64 `json:"preference" koanf:"preference" validate:"gte=0,lte=1"`
	Seasonal   float64 `json:"seasonal" koanf:"seasonal" validate:"gte=0,lte=1"`
}

// DefaultLaneWeights returns the built-in weights.
func DefaultLaneWeights() LaneWeights {
	return LaneWeights{
		Inventory:  0.30,
		Price:      0.20,
		Nutrition:  0.30,
		Preference: 0.15,
		Seasonal:   0.05,
	}
}

// IsZero reports whether no weight is set.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w LaneWeights) IsZero() bool {
	return w.Inventory == 0 && w.Price == 0 && w.Nutrition == 0 && w.Preference == 0 && w.Seasonal == 0
}

// Sum returns the total of all weights.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w LaneWeights) Sum() float64 {
	return w.Inventory + w.Price + w.Nutrition + w.Preference + w.Seasonal
}

// Overlay returns w with every positive field of over taking precedence.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w LaneWeights) Overlay(over LaneWeights) LaneWeights {
	pick := func(base, o float64) float64 {
		if o > 0 {
			return o
		}
		return base
	}
	return LaneWeights{
		Inventory:  pick(w.Inventory, over.Inventory),
		Price:      pick(w.Price, over.Price),
		Nutrition:  pick(w.Nutrition, over.Nutrition),
		Preference: pick(w.Preference, over.Preference),
		Seasonal:   pick(w.Seasonal, over.Seasonal),
	}
}

// Preference is a user's explicitly stored preference record.
type Preference struct {
	UserID               int64       `json:"user_id"`
	DietaryType          DietaryType `json:"dietary_type,omitempty"`
	DietaryRestrictions  []string    `json:"dietary_restrictions,omitempty"`
	Allergies            []string    `json:"allergies,omitempty"`
	BudgetLevel          int         `json:"budget_level,omitempty"`
	CookingSkill         Difficulty  `json:"cooking_skill,omitempty"`
	PreferredCuisines    []string    `json:"preferred_cuisines,omitempty"`
	PreferredCategories  []string    `json:"preferred_categories,omitempty"`
	PreferredIngredients []string    `json:"preferred_ingredients,omitempty"`
	AvoidedIngredients   []string    `json:"avoided_ingredients,omitempty"`
	MaxCookTime          int         `json:"max_cook_time,omitempty"`
	Weights              LaneWeights `json:"weights"`
}

// HealthGoal is a user's nutrition goal.
type HealthGoal struct {
	UserID         int64     `json:"user_id"`
	GoalType       GoalType  `json:"goal_type"`
	TargetCalories float64   `json:"target_calories,omitempty"`
	TargetProtein  float64   `json:"target_protein,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Demographics are optional profile attributes used during cold start.
type Demographics struct {
	UserID        int64  `json:"user_id"`
	Age           int    `json:"age,omitempty"`
	Gender        string `json:"gender,omitempty"`
	ActivityLevel string `json:"activity_level,omitempty"`
	HouseholdSize int    `json:"household_size,omitempty"`
}

// LearnedPreference holds preferences mined from a user's history.
type LearnedPreference struct {
	UserID              int64     `json:"user_id"`
	FrequentCuisines    []string  `json:"frequent_cuisines"`
	FrequentIngredients []string  `json:"frequent_ingredients"`
	FrequentCategories  []string  `json:"frequent_categories"`
	AverageRating       float64   `json:"average_rating"`
	FavoriteCount       int       `json:"favorite_count"`
	SampleSize          int       `json:"sample_size"`
	Confidence          float64   `json:"confidence"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// InventoryItem is an ingredient the user has on hand.
type InventoryItem struct {
	UserID   int64   `json:"user_id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// Metadata holds the per-dimension match ratios of a recommendation.
// Every ratio is in [0, 1].
type Metadata struct {
	InventoryMatch  float64 `json:"inventory_match"`
	PriceMatch      float64 `json:"price_match"`
	NutritionMatch  float64 `json:"nutrition_match"`
	PreferenceMatch float64 `json:"preference_match"`
	SeasonalMatch   float64 `json:"seasonal_match"`
}

// Clamp returns a copy with every ratio clamped to [0, 1].
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (m Metadata) Clamp() Metadata {
	return Metadata{
		InventoryMatch:  ClampUnit(m.InventoryMatch),
		PriceMatch:      ClampUnit(m.PriceMatch),
		NutritionMatch:  ClampUnit(m.NutritionMatch),
		PreferenceMatch: ClampUnit(m.PreferenceMatch),
		SeasonalMatch:   ClampUnit(m.SeasonalMatch),
	}
}

// Recommendation is a scored, explained recipe suggestion.
type Recommendation struct {
	RecipeID int64 `json:"recipe_id"`

	// Score is the final score in [0, 100].
	Score float64 `json:"score"`

	Reasons     []string `json:"reasons"`
	Explanation string   `json:"explanation"`
	Metadata    Metadata `json:"metadata"`

	// Source names the lane or cold-start strategy that produced the candidate.
	Source string `json:"source"`

	// Recipe is the catalog record, attached by lanes for ranking.
	Recipe *Recipe `json:"recipe,omitempty"`
}

// Context is the per-request recommendation input.
type Context struct {
	UserID              int64    `json:"user_id"`
	MealType            string   `json:"meal_type,omitempty"`
	Servings            int      `json:"servings,omitempty"`
	MaxCookTime         int      `json:"max_cook_time,omitempty"`
	BudgetLimit         int      `json:"budget_limit,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	ExcludedIngredients []string `json:"excluded_ingredients,omitempty"`
	PreferredCuisines   []string `json:"preferred_cuisines,omitempty"`
	Season              string   `json:"season,omitempty"`
	ExcludeRecipeIDs    []int64  `json:"exclude_recipe_ids,omitempty"`
}

// LaneRequest is what the engine hands each scoring lane.
type LaneRequest struct {
	Context Context
	Weights LaneWeights

	// Limit is the maximum number of candidates the lane should return.
	Limit int

	// Exclude holds recipe ids the user already knows or asked to skip.
	Exclude map[int64]struct{}
}

// Excluded reports whether id is in the request's exclusion set.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r LaneRequest) Excluded(id int64) bool {
	_, ok := r.Exclude[id]
	return ok
}

// Result is the response of a recommendation request.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        ResultMetadata   `json:"metadata"`
}

// ResultMetadata describes how a result was produced.
type ResultMetadata struct {
	RequestID string      `json:"request_id"`
	UserID    int64       `json:"user_id"`
	Lanes     []string    `json:"lanes"`
	ColdStart bool        `json:"cold_start"`
	CacheHit  bool        `json:"cache_hit"`
	Weights   LaneWeights `json:"weights"`
	LatencyMS int64       `json:"latency_ms"`
	Timestamp time.Time   `json:"timestamp"`
}

// RecipeIDs returns the recipe ids of the result in order.
func (r *Result) RecipeIDs() []int64 {
	ids := make([]int64, len(r.Recommendations))
	for i := range r.Recommendations {
		ids[i] = r.Recommendations[i].RecipeID
	}
	return ids
}

// Lane is one independent scoring strategy.
type Lane interface {
	// Name returns the lane identifier used for logging and metrics.
	Name() string

	// Recommend returns up to req.Limit scored candidates. Errors are
	// logged by the engine and the lane contributes nothing.
	Recommend(ctx context.Context, req LaneRequest) ([]Recommendation, error)
}

// ColdStarter serves users with too little history for the scoring lanes.
type ColdStarter interface {
	// IsColdStart classifies a user from their interaction counts.
	IsColdStart(counts InteractionCounts) bool

	// Recommend runs the applicable cold-start strategies.
	Recommend(ctx context.Context, rc Context, limit int) ([]Recommendation, error)
}

// Ranker orders merged candidates into the final list.
type Ranker interface {
	Rank(ctx context.Context, recs []Recommendation, weights LaneWeights) []Recommendation
}

// Reranker post-processes a ranked list.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, userID int64, recs []Recommendation) []Recommendation
}

// SimilarFinder finds recipes similar to a given recipe.
type SimilarFinder interface {
	SimilarRecipes(ctx context.Context, recipeID int64, limit int) ([]Recommendation, error)
}

// NormalizeName lowercases and trims a free-text name for comparison.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClampUnit clamps v to [0, 1].
func ClampUnit(v float64) float64 {
	return Clamp(v, 0, 1)
}

// ClampScore clamps v to [0, 100].
func ClampScore(v float64) float64 {
	return Clamp(v, 0, 100)
}

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
