// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recipewise/internal/metrics"
	"github.com/tomtom215/recipewise/internal/recommend"
	"github.com/tomtom215/recipewise/internal/recommend/reranking"
)

// Cold-start thresholds. A user is cold only when below all three.
const (
	ColdStartMaxRatings   = 3
	ColdStartMaxFavorites = 2
	ColdStartMaxViews     = 10
)

// Built-in strategy names.
const (
	StrategyHealthGoal  = "health_goal"
	StrategyDietary     = "dietary"
	StrategyCooking     = "cooking"
	StrategyDemographic = "demographic"
	StrategyPopularity  = "popularity"
)

// coldStartPoolSize is how many popular recipes strategies choose from.
const coldStartPoolSize = 200

// Cold-start scores live in a synthetic 40..90 band so strategies can be
// merged without rescaling.
const (
	coldStartFloor = 40.0
	coldStartSpan  = 50.0
)

// IsColdStart reports whether a user has too little history for the
// scoring lanes.
func IsColdStart(c recommend.InteractionCounts) bool {
	return c.Ratings < ColdStartMaxRatings &&
		c.Favorites < ColdStartMaxFavorites &&
		c.Views < ColdStartMaxViews
}

// ColdStartProfile is what cold-start strategies know about a user.
type ColdStartProfile struct {
	UserID       int64
	Context      recommend.Context
	Preference   *recommend.Preference
	Goal         *recommend.HealthGoal
	Demographics *recommend.Demographics

	// Pool holds visible candidates that passed the request filters and
	// the dietary gate, most popular first.
	Pool []recommend.Recipe
}

// Strategy is a named cold-start generator.
type Strategy struct {
	Name     string
	Priority int
	Applies  func(p *ColdStartProfile) bool
	Generate func(ctx context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error)
}

// ColdStartHandler selects and runs cold-start strategies.
type ColdStartHandler struct {
	repo   recommend.Repository
	logger zerolog.Logger

	mu         sync.RWMutex
	strategies []Strategy
}

// NewColdStartHandler creates a handler with the built-in strategies.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewColdStartHandler(repo recommend.Repository, logger zerolog.Logger) *ColdStartHandler {
	return &ColdStartHandler{
		repo:       repo,
		logger:     logger.With().Str("component", "cold_start").Logger(),
		strategies: builtinStrategies(),
	}
}

// Register adds a strategy, replacing any with the same name.
func (h *ColdStartHandler) Register(s Strategy) error {
	if s.Name == "" || s.Generate == nil {
		return fmt.Errorf("cold-start strategy needs a name and a generator")
	}
	if s.Applies == nil {
		s.Applies = func(*ColdStartProfile) bool { return true }
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.strategies {
		if h.strategies[i].Name == s.Name {
			h.strategies[i] = s
			return nil
		}
	}
	h.strategies = append(h.strategies, s)
	return nil
}

// Strategies returns the registered strategy names by descending priority.
func (h *ColdStartHandler) Strategies() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sorted := sortStrategies(h.strategies)
	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = s.Name
	}
	return names
}

// IsColdStart reports whether counts describe a cold-start user.
func (h *ColdStartHandler) IsColdStart(counts recommend.InteractionCounts) bool {
	return IsColdStart(counts)
}

// Recommend runs the highest-priority applicable strategy, and the next
// one when the first comes up short. The first occurrence of a recipe wins.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func (h *ColdStartHandler) Recommend(ctx context.Context, rc recommend.Context, limit int) ([]recommend.Recommendation, error) {
	if limit <= 0 {
		return nil, nil
	}

	profile, err := h.buildProfile(ctx, rc)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	var applicable []Strategy
	for _, s := range sortStrategies(h.strategies) {
		if s.Applies(profile) {
			applicable = append(applicable, s)
		}
	}
	h.mu.RUnlock()

	var out []recommend.Recommendation
	seen := make(map[int64]struct{})
	for i, s := range applicable {
		if i >= 2 || len(out) >= limit {
			break
		}
		recs, err := s.Generate(ctx, profile, limit)
		if err != nil {
			h.logger.Warn().Err(err).Str("strategy", s.Name).Msg("Cold-start strategy failed")
			continue
		}
		metrics.RecordColdStart(s.Name)
		for _, r := range recs {
			if _, dup := seen[r.RecipeID]; dup {
				continue
			}
			seen[r.RecipeID] = struct{}{}
			r.Source = recommend.SourceColdStartPrefix + s.Name
			out = append(out, r)
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}

	h.logger.Debug().
		Int64("user_id", rc.UserID).
		Int("pool", len(profile.Pool)).
		Int("results", len(out)).
		Msg("Cold-start recommendations generated")

	return out, nil
}

func sortStrategies(in []Strategy) []Strategy {
	out := make([]Strategy, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// buildProfile loads the user's optional records and the candidate pool.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func (h *ColdStartHandler) buildProfile(ctx context.Context, rc recommend.Context) (*ColdStartProfile, error) {
	p := &ColdStartProfile{UserID: rc.UserID, Context: rc}
	var pool []recommend.Recipe

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if p.Preference, err = h.repo.Preference(gctx, rc.UserID); err != nil {
			return fmt.Errorf("load preference: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if p.Goal, err = h.repo.ActiveHealthGoal(gctx, rc.UserID); err != nil {
			return fmt.Errorf("load health goal: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if p.Demographics, err = h.repo.Demographics(gctx, rc.UserID); err != nil {
			return fmt.Errorf("load demographics: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if pool, err = h.repo.PopularRecipes(gctx, coldStartPoolSize, ""); err != nil {
			return fmt.Errorf("load popular recipes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gate := NewDietaryProfile(p.Preference, rc)
	exclude := make(map[int64]struct{}, len(rc.ExcludeRecipeIDs))
	for _, id := range rc.ExcludeRecipeIDs {
		exclude[id] = struct{}{}
	}
	for i := range pool {
		r := &pool[i]
		if _, skip := exclude[r.ID]; skip {
			continue
		}
		if r.Visible() && matchesContext(r, rc) && gate.Allows(r) {
			p.Pool = append(p.Pool, *r)
		}
	}
	return p, nil
}

func builtinStrategies() []Strategy {
	return []Strategy{
		{
			Name:     StrategyHealthGoal,
			Priority: 6,
			Applies: func(p *ColdStartProfile) bool {
				return p.Goal != nil && p.Goal.Active
			},
			Generate: healthGoalStrategy,
		},
		{
			Name:     StrategyDietary,
			Priority: 5,
			Applies: func(p *ColdStartProfile) bool {
				pref := p.Preference
				return pref != nil && (pref.DietaryType != recommend.DietaryNone ||
					len(pref.DietaryRestrictions) > 0 || len(pref.Allergies) > 0)
			},
			Generate: dietaryStrategy,
		},
		{
			Name:     StrategyCooking,
			Priority: 4,
			Applies: func(p *ColdStartProfile) bool {
				pref := p.Preference
				return pref != nil && (pref.CookingSkill > 0 || pref.MaxCookTime > 0 || len(pref.PreferredCuisines) > 0)
			},
			Generate: cookingStrategy,
		},
		{
			Name:     StrategyDemographic,
			Priority: 3,
			Applies: func(p *ColdStartProfile) bool {
				d := p.Demographics
				return d != nil && (d.Age > 0 || d.ActivityLevel != "" || d.HouseholdSize > 0)
			},
			Generate: demographicStrategy,
		},
		{
			Name:     StrategyPopularity,
			Priority: 1,
			Applies:  func(*ColdStartProfile) bool { return true },
			Generate: popularityStrategy,
		},
	}
}

// scorePool scores every pool recipe with fit in [0, 1], blended 70/30 with
// popularity into the cold-start band, and keeps the best limit.
func scorePool(p *ColdStartProfile, limit int, reason string, fit func(r *recommend.Recipe) (float64, recommend.Metadata, bool)) []recommend.Recommendation {
	recs := make([]recommend.Recommendation, 0, len(p.Pool))
	for i := range p.Pool {
		r := &p.Pool[i]
		f, md, ok := fit(r)
		if !ok {
			continue
		}
		pop := reranking.PopularityScore(r) / 100
		score := coldStartFloor + coldStartSpan*(0.7*recommend.ClampUnit(f)+0.3*pop)
		recs = append(recs, recommend.Recommendation{
			RecipeID: r.ID,
			Score:    round(score, 2),
			Reasons:  []string{reason},
			Metadata: md.Clamp(),
			Recipe:   r,
		})
	}
	recommend.SortByScore(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func healthGoalStrategy(_ context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error) {
	return scorePool(p, limit, recommend.ReasonNutrition, func(r *recommend.Recipe) (float64, recommend.Metadata, bool) {
		points := nutritionPoints(r, p.Goal)
		if points <= nutritionBaseline {
			return 0, recommend.Metadata{}, false
		}
		ratio := points / MaxNutritionPoints
		return ratio, recommend.Metadata{NutritionMatch: ratio}, true
	}), nil
}

func dietaryStrategy(_ context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error) {
	cuisines := normalizeAll(p.Preference.PreferredCuisines, p.Context.PreferredCuisines)
	return scorePool(p, limit, recommend.ReasonPreference, func(r *recommend.Recipe) (float64, recommend.Metadata, bool) {
		// Every pool recipe already passed the dietary gate.
		fit := 0.6
		if containsName(cuisines, r.Cuisine) {
			fit = 1
		}
		return fit, recommend.Metadata{PreferenceMatch: fit}, true
	}), nil
}

func cookingStrategy(_ context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error) {
	pref := p.Preference
	cuisines := normalizeAll(pref.PreferredCuisines, p.Context.PreferredCuisines)
	maxTime := p.Context.MaxCookTime
	if maxTime <= 0 {
		maxTime = pref.MaxCookTime
	}
	return scorePool(p, limit, recommend.ReasonQuickEasy, func(r *recommend.Recipe) (float64, recommend.Metadata, bool) {
		fit := cookingScore(r.CookTimeMinutes, r.Difficulty, maxTime, pref.CookingSkill) / 100
		if len(cuisines) > 0 {
			cuisine := 0.0
			if containsName(cuisines, r.Cuisine) {
				cuisine = 1
			}
			fit = 0.7*fit + 0.3*cuisine
		}
		return fit, recommend.Metadata{PreferenceMatch: fit}, true
	}), nil
}

// demographicStrategy favors recipes suited to the user's life stage and
// activity: protein for active users, low sodium and easy recipes for
// older users, cheap recipes for large households and quick ones for
// younger users.
func demographicStrategy(_ context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error) {
	d := p.Demographics
	active := strings.Contains(recommend.NormalizeName(d.ActivityLevel), "active") &&
		!strings.Contains(recommend.NormalizeName(d.ActivityLevel), "inactive")

	return scorePool(p, limit, recommend.ReasonDemographic, func(r *recommend.Recipe) (float64, recommend.Metadata, bool) {
		var met, checks float64
		if active {
			checks++
			if r.Nutrition.Protein >= highProteinMinProtein {
				met++
			}
		}
		if d.Age >= 60 {
			checks += 2
			if r.Nutrition.Sodium > 0 && r.Nutrition.Sodium <= 600 {
				met++
			}
			if r.Difficulty == recommend.DifficultyEasy {
				met++
			}
		} else if d.Age > 0 && d.Age < 30 {
			checks++
			if r.CookTimeMinutes > 0 && r.CookTimeMinutes <= 30 {
				met++
			}
		}
		if d.HouseholdSize >= 4 {
			checks++
			if r.CostLevel > 0 && r.CostLevel <= 2 {
				met++
			}
		}
		if checks == 0 {
			return 0.5, recommend.Metadata{}, true
		}
		fit := met / checks
		return fit, recommend.Metadata{PreferenceMatch: fit}, true
	}), nil
}

// popularityStrategy ranks purely by popularity. It always applies and
// only returns nothing when no published recipe is left.
func popularityStrategy(_ context.Context, p *ColdStartProfile, limit int) ([]recommend.Recommendation, error) {
	return scorePool(p, limit, recommend.ReasonPopular, func(r *recommend.Recipe) (float64, recommend.Metadata, bool) {
		return reranking.PopularityScore(r) / 100, recommend.Metadata{}, true
	}), nil
}
