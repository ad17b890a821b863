// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// Maximum points per rule dimension. With default lane weights the
// weighted total equals the plain sum of points.
const (
	MaxInventoryPoints  = 30.0
	MaxPricePoints      = 20.0
	MaxNutritionPoints  = 30.0
	MaxPreferencePoints = 15.0
	MaxSeasonalPoints   = 5.0
)

// Nutrition scoring.
const (
	nutritionBaseline = 15.0

	defaultBudgetLevel = 2
	defaultCostLevel   = 2
)

// RuleProfile is everything the rule scorer knows about a user.
type RuleProfile struct {
	Preference *recommend.Preference
	Goal       *recommend.HealthGoal
	Inventory  []string
	Cuisines   []string
	Season     string

	// BudgetLimit is an explicit per-request cost ceiling. Zero means none.
	BudgetLimit int
}

// RuleBreakdown holds the points a recipe earned per dimension.
type RuleBreakdown struct {
	Inventory  float64 `json:"inventory"`
	Price      float64 `json:"price"`
	Nutrition  float64 `json:"nutrition"`
	Preference float64 `json:"preference"`
	Seasonal   float64 `json:"seasonal"`
}

// Points returns the unweighted point total.
func (b RuleBreakdown) Points() float64 {
	return b.Inventory + b.Price + b.Nutrition + b.Preference + b.Seasonal
}

// Metadata converts points into per-dimension match ratios.
func (b RuleBreakdown) Metadata() recommend.Metadata {
	return recommend.Metadata{
		InventoryMatch:  b.Inventory / MaxInventoryPoints,
		PriceMatch:      b.Price / MaxPricePoints,
		NutritionMatch:  b.Nutrition / MaxNutritionPoints,
		PreferenceMatch: b.Preference / MaxPreferencePoints,
		SeasonalMatch:   b.Seasonal / MaxSeasonalPoints,
	}.Clamp()
}

// Score combines the dimension ratios with lane weights into [0, 100].
// Zero weights fall back to the defaults.
func (b RuleBreakdown) Score(w recommend.LaneWeights) float64 {
	if w.Sum() <= 0 {
		w = recommend.DefaultLaneWeights()
	}
	m := b.Metadata()
	total := m.InventoryMatch*w.Inventory +
		m.PriceMatch*w.Price +
		m.NutritionMatch*w.Nutrition +
		m.PreferenceMatch*w.Preference +
		m.SeasonalMatch*w.Seasonal
	return recommend.ClampScore(total / w.Sum() * 100)
}

// ScoreRecipe allocates rule points to recipe.
func ScoreRecipe(recipe *recommend.Recipe, p *RuleProfile) RuleBreakdown {
	return RuleBreakdown{
		Inventory:  inventoryPoints(recipe, p.Inventory),
		Price:      pricePoints(recipe, p),
		Nutrition:  nutritionPoints(recipe, p.Goal),
		Preference: preferencePoints(recipe, p),
		Seasonal:   seasonalPoints(recipe, p.Season),
	}
}

func inventoryPoints(recipe *recommend.Recipe, inventory []string) float64 {
	names := recipe.IngredientNames()
	if len(names) == 0 || len(inventory) == 0 {
		return 0
	}
	ratio := float64(countMatches(names, inventory)) / float64(len(names))
	return MaxInventoryPoints * ratio
}

func pricePoints(recipe *recommend.Recipe, p *RuleProfile) float64 {
	cost := recipe.CostLevel
	if cost <= 0 {
		cost = defaultCostLevel
	}
	if p.BudgetLimit > 0 && cost > p.BudgetLimit {
		return 0
	}

	level := defaultBudgetLevel
	if p.Preference != nil && p.Preference.BudgetLevel > 0 {
		level = p.Preference.BudgetLevel
	}

	switch {
	case cost < level:
		return MaxPricePoints
	case cost == level:
		return 15
	case cost == level+1:
		return 8
	default:
		return 3
	}
}

func nutritionPoints(recipe *recommend.Recipe, goal *recommend.HealthGoal) float64 {
	n := recipe.Nutrition
	if n.Calories <= 0 {
		return 0
	}

	points := nutritionBaseline
	if goal == nil || !goal.Active {
		return points
	}

	switch goal.GoalType {
	case recommend.GoalLoseWeight:
		if n.Calories <= 400 {
			points += 10
		}
		if n.Carbs <= 2*n.Protein {
			points += 5
		}
	case recommend.GoalGainMuscle:
		if n.Protein >= 25 {
			points += 10
		}
		if n.Calories >= 500 {
			points += 5
		}
	case recommend.GoalMaintain:
		if n.Calories >= 300 && n.Calories <= 600 {
			points += 15
		}
	case recommend.GoalGeneralHealth:
		if n.Fiber >= 5 {
			points += 8
		}
		if n.Sodium <= 600 {
			points += 7
		}
	}
	return recommend.Clamp(points, 0, MaxNutritionPoints)
}

func preferencePoints(recipe *recommend.Recipe, p *RuleProfile) float64 {
	var points float64

	cuisines := p.Cuisines
	var pref *recommend.Preference
	if p.Preference != nil {
		pref = p.Preference
		cuisines = normalizeAll(pref.PreferredCuisines, p.Cuisines)
	}
	if recipe.Cuisine != "" && containsName(cuisines, recipe.Cuisine) {
		points += 6
	}

	if pref != nil {
		names := recipe.IngredientNames()
		liked := countMatches(names, normalizeAll(pref.PreferredIngredients))
		if liked > 4 {
			liked = 4
		}
		points += float64(liked)
		points -= 5 * float64(countMatches(names, normalizeAll(pref.AvoidedIngredients)))

		if pref.DietaryType != recommend.DietaryNone && satisfiesDietaryType(recipe, pref.DietaryType) {
			points += 5
		}
	}
	return recommend.Clamp(points, 0, MaxPreferencePoints)
}

func seasonalPoints(recipe *recommend.Recipe, season string) float64 {
	switch {
	case len(recipe.Seasons) == 0:
		return 3
	case recipe.HasSeason(season):
		return MaxSeasonalPoints
	default:
		return 1
	}
}

// RuleLane scores the published catalog with deterministic rules.
type RuleLane struct {
	repo   recommend.Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewRuleLane creates the rule-based lane.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRuleLane(repo recommend.Repository, logger zerolog.Logger) *RuleLane {
	return &RuleLane{
		repo:   repo,
		logger: logger.With().Str("lane", recommend.LaneRuleBased).Logger(),
		now:    time.Now,
	}
}

// Name returns the lane name.
func (l *RuleLane) Name() string {
	return recommend.LaneRuleBased
}

// Recommend scores every visible recipe that passes the dietary gate and
// the request filters.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (l *RuleLane) Recommend(ctx context.Context, req recommend.LaneRequest) ([]recommend.Recommendation, error) {
	rc := req.Context
	profile, recipes, err := l.load(ctx, rc, req.Exclude)
	if err != nil {
		return nil, err
	}

	gate := NewDietaryProfile(profile.Preference, rc)
	recs := make([]recommend.Recommendation, 0, len(recipes))
	for i := range recipes {
		if i%64 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		recipe := &recipes[i]
		if !recipe.Visible() || req.Excluded(recipe.ID) || !matchesContext(recipe, rc) || !gate.Allows(recipe) {
			continue
		}

		b := ScoreRecipe(recipe, profile)
		recs = append(recs, recommend.Recommendation{
			RecipeID: recipe.ID,
			Score:    b.Score(req.Weights),
			Metadata: b.Metadata(),
			Source:   recommend.LaneRuleBased,
			Recipe:   recipe,
		})
	}

	recommend.SortByScore(recs)
	if req.Limit > 0 && len(recs) > req.Limit {
		recs = recs[:req.Limit]
	}

	l.logger.Debug().
		Int64("user_id", rc.UserID).
		Int("pool", len(recipes)).
		Int("candidates", len(recs)).
		Msg("Rule candidates scored")

	return recs, nil
}

// load fetches the user's profile records and the whole candidate catalog,
// minus excluded ids, in parallel.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func (l *RuleLane) load(ctx context.Context, rc recommend.Context, exclude map[int64]struct{}) (*RuleProfile, []recommend.Recipe, error) {
	profile := &RuleProfile{
		Cuisines:    normalizeAll(rc.PreferredCuisines),
		Season:      rc.Season,
		BudgetLimit: rc.BudgetLimit,
	}
	if profile.Season == "" {
		profile.Season = CurrentSeason(l.now())
	}

	var recipes []recommend.Recipe
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pref, err := l.repo.Preference(gctx, rc.UserID)
		if err != nil {
			return fmt.Errorf("load preference: %w", err)
		}
		profile.Preference = pref
		return nil
	})
	g.Go(func() error {
		goal, err := l.repo.ActiveHealthGoal(gctx, rc.UserID)
		if err != nil {
			return fmt.Errorf("load health goal: %w", err)
		}
		profile.Goal = goal
		return nil
	})
	g.Go(func() error {
		items, err := l.repo.Inventory(gctx, rc.UserID)
		if err != nil {
			return fmt.Errorf("load inventory: %w", err)
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.Name)
		}
		profile.Inventory = normalizeAll(names)
		return nil
	})
	g.Go(func() error {
		var err error
		recipes, err = loadCatalog(gctx, l.repo, recommend.RecipeFilter{
			MaxCookTime: rc.MaxCookTime,
			ExcludeIDs:  exclude,
		})
		if err != nil {
			return fmt.Errorf("load recipes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profile, recipes, nil
}
