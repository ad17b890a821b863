// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// Content score weights.
const (
	ingredientWeight = 0.40
	nutritionWeight  = 0.25
	cookingWeight    = 0.20
	categoryWeight   = 0.15

	neutralScore = 50.0

	// Learned profile sizes.
	topIngredients = 15
	topCategories  = 5

	// likedRating is the rating at which a recipe feeds the learned profile.
	likedRating = 4.0

	// maxNutritionPenalty caps the penalty for a single violated target.
	maxNutritionPenalty = 40.0
)

// Recipe similarity blend.
const (
	ingredientSimilarityWeight = 0.7
	nutritionSimilarityWeight  = 0.3
)

// nutritionScales normalizes each nutrient before distance computation.
var nutritionScales = [6]float64{1000, 100, 150, 100, 30, 2000}

// RecipeFeatures is the content representation of a recipe.
type RecipeFeatures struct {
	ID          int64
	Ingredients []string
	Nutrition   recommend.Nutrition
	CookTime    int
	Difficulty  recommend.Difficulty
	Category    string
	Cuisine     string
	Tags        []string
	CostLevel   int
}

// ExtractFeatures builds the feature record of a recipe.
func ExtractFeatures(r *recommend.Recipe) RecipeFeatures {
	return RecipeFeatures{
		ID:          r.ID,
		Ingredients: normalizeAll(r.IngredientNames()),
		Nutrition:   r.Nutrition,
		CookTime:    r.CookTimeMinutes,
		Difficulty:  r.Difficulty,
		Category:    recommend.NormalizeName(r.Category),
		Cuisine:     recommend.NormalizeName(r.Cuisine),
		Tags:        normalizeAll(r.Tags),
		CostLevel:   r.CostLevel,
	}
}

// NutritionTargets bounds per-serving nutrition. Zero fields are unset.
type NutritionTargets struct {
	MinCalories float64
	MaxCalories float64
	MaxCarbs    float64
	MaxFat      float64
	MinProtein  float64
	MaxSodium   float64
}

// IsZero reports whether no target is set.
func (t NutritionTargets) IsZero() bool {
	return t == NutritionTargets{}
}

// TargetsFor derives nutrition targets from a health goal and tightens them
// with dietary caps.
func TargetsFor(goal *recommend.HealthGoal, diet recommend.DietaryType) NutritionTargets {
	var t NutritionTargets
	if goal != nil && goal.Active {
		switch goal.GoalType {
		case recommend.GoalLoseWeight:
			t.MaxCalories = 400
			t.MaxCarbs = 30
		case recommend.GoalGainMuscle:
			t.MinProtein = 25
			t.MinCalories = 500
		case recommend.GoalMaintain:
			t.MinCalories = 300
			t.MaxCalories = 600
		case recommend.GoalGeneralHealth:
			t.MaxSodium = 600
		}
		if goal.TargetProtein > 0 {
			t.MinProtein = math.Max(t.MinProtein, goal.TargetProtein)
		}
	}

	switch diet {
	case recommend.DietaryLowCarb:
		t.MaxCarbs = stricterMax(t.MaxCarbs, lowCarbTargetCarbs)
	case recommend.DietaryLowFat:
		t.MaxFat = stricterMax(t.MaxFat, lowFatTargetFat)
	case recommend.DietaryHighProtein:
		t.MinProtein = math.Max(t.MinProtein, highProteinTargetProtein)
	}
	return t
}

func stricterMax(current, limit float64) float64 {
	if current <= 0 || limit < current {
		return limit
	}
	return current
}

// UserProfile is the content representation of a user.
type UserProfile struct {
	UserID               int64
	PreferredIngredients []string
	AvoidedIngredients   []string
	PreferredCategories  []string
	CookingSkill         recommend.Difficulty
	MaxCookTime          int
	Targets              NutritionTargets
}

// BuildProfile combines explicit preferences with ingredients and
// categories mined from recipes the user liked.
func BuildProfile(userID int64, pref *recommend.Preference, goal *recommend.HealthGoal, liked []recommend.Recipe) UserProfile {
	ingredientCounts := make(map[string]float64)
	categoryCounts := make(map[string]float64)
	for i := range liked {
		for _, name := range normalizeAll(liked[i].IngredientNames()) {
			ingredientCounts[name]++
		}
		if c := recommend.NormalizeName(liked[i].Category); c != "" {
			categoryCounts[c]++
		}
	}

	p := UserProfile{
		UserID:               userID,
		PreferredIngredients: recommend.TopCounts(ingredientCounts, topIngredients),
		PreferredCategories:  recommend.TopCounts(categoryCounts, topCategories),
	}

	var diet recommend.DietaryType
	if pref != nil {
		p.PreferredIngredients = normalizeAll(pref.PreferredIngredients, p.PreferredIngredients)
		p.PreferredCategories = normalizeAll(pref.PreferredCategories, p.PreferredCategories)
		p.AvoidedIngredients = normalizeAll(pref.AvoidedIngredients)
		p.CookingSkill = pref.CookingSkill
		p.MaxCookTime = pref.MaxCookTime
		diet = pref.DietaryType
	}
	p.Targets = TargetsFor(goal, diet)
	return p
}

// ContentBreakdown holds the component scores of a content match, each
// in [0, 100].
type ContentBreakdown struct {
	Ingredient float64 `json:"ingredient"`
	Nutrition  float64 `json:"nutrition"`
	Cooking    float64 `json:"cooking"`
	Category   float64 `json:"category"`
}

// Total returns the weighted content score.
func (b ContentBreakdown) Total() float64 {
	return recommend.ClampScore(ingredientWeight*b.Ingredient +
		nutritionWeight*b.Nutrition +
		cookingWeight*b.Cooking +
		categoryWeight*b.Category)
}

// ScoreContent matches a recipe against a user profile. maxCookTime
// overrides the profile's time budget when positive.
//
//nolint:gocritic // hugeParam: profile passed by value for immutability
func ScoreContent(f *RecipeFeatures, p UserProfile, maxCookTime int) ContentBreakdown {
	if maxCookTime <= 0 {
		maxCookTime = p.MaxCookTime
	}
	return ContentBreakdown{
		Ingredient: ingredientScore(f.Ingredients, p.PreferredIngredients, p.AvoidedIngredients),
		Nutrition:  nutritionScore(f.Nutrition, p.Targets),
		Cooking:    cookingScore(f.CookTime, f.Difficulty, maxCookTime, p.CookingSkill),
		Category:   categoryScore(f.Category, p.PreferredCategories),
	}
}

func ingredientScore(ingredients, preferred, avoided []string) float64 {
	if len(ingredients) == 0 {
		return 0
	}
	if len(preferred) == 0 && len(avoided) == 0 {
		return neutralScore
	}

	n := float64(len(ingredients))
	score := neutralScore
	if len(preferred) > 0 {
		score = 100 * float64(countMatches(ingredients, preferred)) / n
	}
	score -= 100 * float64(countMatches(ingredients, avoided)) / n
	return recommend.ClampScore(score)
}

func nutritionScore(n recommend.Nutrition, t NutritionTargets) float64 {
	if t.IsZero() {
		return neutralScore
	}
	score := 100.0
	score -= overPenalty(n.Calories, t.MaxCalories)
	score -= underPenalty(n.Calories, t.MinCalories)
	score -= overPenalty(n.Carbs, t.MaxCarbs)
	score -= overPenalty(n.Fat, t.MaxFat)
	score -= underPenalty(n.Protein, t.MinProtein)
	score -= overPenalty(n.Sodium, t.MaxSodium)
	return recommend.ClampScore(score)
}

// overPenalty is proportional to how far value exceeds limit.
func overPenalty(value, limit float64) float64 {
	if limit <= 0 || value <= limit {
		return 0
	}
	return math.Min(maxNutritionPenalty, 100*(value-limit)/limit)
}

// underPenalty is proportional to how far value falls short of floor.
func underPenalty(value, floor float64) float64 {
	if floor <= 0 || value >= floor {
		return 0
	}
	return math.Min(maxNutritionPenalty, 100*(floor-value)/floor)
}

// cookingScore gives up to 50 for fitting the time budget and up to 50 for
// matching the user's skill.
func cookingScore(cookTime int, difficulty recommend.Difficulty, maxCookTime int, skill recommend.Difficulty) float64 {
	var timeScore float64
	switch {
	case maxCookTime <= 0 || cookTime <= 0:
		timeScore = 25
	case cookTime <= maxCookTime:
		timeScore = 50
	default:
		over := float64(cookTime-maxCookTime) / float64(maxCookTime)
		timeScore = math.Max(0, 50*(1-over))
	}

	var skillScore float64
	switch {
	case skill <= 0 || difficulty <= 0:
		skillScore = 25
	case difficulty <= skill:
		skillScore = 50
	case difficulty == skill+1:
		skillScore = 25
	default:
		skillScore = 0
	}
	return timeScore + skillScore
}

func categoryScore(category string, preferred []string) float64 {
	if len(preferred) == 0 {
		return neutralScore
	}
	if containsName(preferred, category) {
		return 100
	}
	return 0
}

// RecipeSimilarity blends ingredient overlap with nutrition closeness.
// The result is in [0, 1].
func RecipeSimilarity(a, b *recommend.Recipe) float64 {
	return FeatureSimilarity(ExtractFeatures(a), ExtractFeatures(b))
}

// FeatureSimilarity is RecipeSimilarity over extracted features.
//
//nolint:gocritic // hugeParam: features passed by value for immutability
func FeatureSimilarity(a, b RecipeFeatures) float64 {
	ing := jaccardSimilarity(a.Ingredients, b.Ingredients)
	nut := 1 - nutritionDistance(a.Nutrition, b.Nutrition)
	return recommend.ClampUnit(ingredientSimilarityWeight*ing + nutritionSimilarityWeight*nut)
}

// nutritionDistance is the Euclidean distance of scaled nutrition vectors,
// normalized to [0, 1].
func nutritionDistance(a, b recommend.Nutrition) float64 {
	va := [6]float64{a.Calories, a.Protein, a.Carbs, a.Fat, a.Fiber, a.Sodium}
	vb := [6]float64{b.Calories, b.Protein, b.Carbs, b.Fat, b.Fiber, b.Sodium}

	var sq float64
	for i := range va {
		x := math.Min(va[i]/nutritionScales[i], 1)
		y := math.Min(vb[i]/nutritionScales[i], 1)
		sq += (x - y) * (x - y)
	}
	return math.Sqrt(sq) / math.Sqrt(float64(len(va)))
}

// ContentLane recommends recipes whose content matches the user's profile
// and finds recipes similar to a given one.
type ContentLane struct {
	repo   recommend.Repository
	logger zerolog.Logger
}

// NewContentLane creates the content-based lane.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewContentLane(repo recommend.Repository, logger zerolog.Logger) *ContentLane {
	return &ContentLane{
		repo:   repo,
		logger: logger.With().Str("lane", recommend.LaneContentBased).Logger(),
	}
}

// Name returns the lane name.
func (l *ContentLane) Name() string {
	return recommend.LaneContentBased
}

// Recommend scores the catalog against the user's content profile.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (l *ContentLane) Recommend(ctx context.Context, req recommend.LaneRequest) ([]recommend.Recommendation, error) {
	rc := req.Context
	profile, pref, recipes, err := l.load(ctx, rc.UserID, rc.MaxCookTime, req.Exclude)
	if err != nil {
		return nil, err
	}

	gate := NewDietaryProfile(pref, rc)
	recs := make([]recommend.Recommendation, 0, len(recipes))
	for i := range recipes {
		if i%64 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		recipe := &recipes[i]
		if !recipe.Visible() || req.Excluded(recipe.ID) || !matchesContext(recipe, rc) || !gate.Allows(recipe) {
			continue
		}

		f := ExtractFeatures(recipe)
		b := ScoreContent(&f, profile, rc.MaxCookTime)
		md := recommend.Metadata{PreferenceMatch: b.Ingredient / 100}
		if !profile.Targets.IsZero() {
			md.NutritionMatch = b.Nutrition / 100
		}
		recs = append(recs, recommend.Recommendation{
			RecipeID: recipe.ID,
			Score:    b.Total(),
			Metadata: md.Clamp(),
			Source:   recommend.LaneContentBased,
			Recipe:   recipe,
		})
	}

	recommend.SortByScore(recs)
	if req.Limit > 0 && len(recs) > req.Limit {
		recs = recs[:req.Limit]
	}

	l.logger.Debug().
		Int64("user_id", rc.UserID).
		Int("profile_ingredients", len(profile.PreferredIngredients)).
		Int("candidates", len(recs)).
		Msg("Content candidates scored")

	return recs, nil
}

// load builds the user's profile and fetches the candidate catalog.
func (l *ContentLane) load(ctx context.Context, userID int64, maxCookTime int, exclude map[int64]struct{}) (UserProfile, *recommend.Preference, []recommend.Recipe, error) {
	var (
		pref      *recommend.Preference
		goal      *recommend.HealthGoal
		liked     []recommend.Recipe
		recipes   []recommend.Recipe
		ratings   []recommend.Rating
		favorites []recommend.Favorite
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if pref, err = l.repo.Preference(gctx, userID); err != nil {
			return fmt.Errorf("load preference: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if goal, err = l.repo.ActiveHealthGoal(gctx, userID); err != nil {
			return fmt.Errorf("load health goal: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if ratings, err = l.repo.RatingsForUser(gctx, userID); err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if favorites, err = l.repo.FavoritesForUser(gctx, userID); err != nil {
			return fmt.Errorf("load favorites: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		recipes, err = loadCatalog(gctx, l.repo, recommend.RecipeFilter{MaxCookTime: maxCookTime, ExcludeIDs: exclude})
		if err != nil {
			return fmt.Errorf("load recipes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return UserProfile{}, nil, nil, err
	}

	seen := make(map[int64]struct{})
	for _, r := range ratings {
		if r.Value >= likedRating {
			seen[r.RecipeID] = struct{}{}
		}
	}
	for _, f := range favorites {
		seen[f.RecipeID] = struct{}{}
	}
	likedIDs := sortedKeys(seen)

	if len(likedIDs) > 0 {
		var err error
		if liked, err = l.repo.Recipes(ctx, likedIDs); err != nil {
			return UserProfile{}, nil, nil, fmt.Errorf("load liked recipes: %w", err)
		}
	}

	return BuildProfile(userID, pref, goal, liked), pref, recipes, nil
}

// SimilarRecipes returns the visible recipes most similar to recipeID.
// Unknown ids yield recommend.ErrRecipeNotFound.
func (l *ContentLane) SimilarRecipes(ctx context.Context, recipeID int64, limit int) ([]recommend.Recommendation, error) {
	target, err := l.repo.Recipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("load recipe %d: %w", recipeID, err)
	}

	pool, err := loadCatalog(ctx, l.repo, recommend.RecipeFilter{ExcludeIDs: map[int64]struct{}{recipeID: {}}})
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	tf := ExtractFeatures(target)
	recs := make([]recommend.Recommendation, 0, len(pool))
	for i := range pool {
		if i%64 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		other := &pool[i]
		if other.ID == recipeID || !other.Visible() {
			continue
		}
		sim := FeatureSimilarity(tf, ExtractFeatures(other))
		if sim <= 0 {
			continue
		}
		recs = append(recs, recommend.Recommendation{
			RecipeID: other.ID,
			Score:    round(sim*100, 2),
			Reasons:  []string{recommend.ReasonTaste},
			Source:   recommend.SourceSimilar,
			Recipe:   other,
		})
	}

	recommend.SortByScore(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
