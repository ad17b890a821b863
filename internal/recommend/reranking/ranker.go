// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package reranking

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// Diversity bonus points.
const (
	newCategoryBonus = 10.0
	newCuisineBonus  = 8.0
	newTagBonus      = 2.0
	maxTagBonus      = 5.0
)

// Log scales for popularity volume signals.
var (
	reviewScale = math.Log1p(1000)
	viewScale   = math.Log1p(10000)
)

// RankerConfig weights the blended ranking score.
type RankerConfig struct {
	LaneWeight            float64
	PopularityWeight      float64
	FreshnessWeight       float64
	PersonalizationWeight float64
	QualityWeight         float64

	// PersonalizationBaseline is the personalization score used when no
	// PersonalizationFunc is set.
	PersonalizationBaseline float64

	// Multipliers applied when a user's lane weights lean towards a
	// dimension.
	InventoryBoostAbove  float64
	InventoryBoost       float64
	PreferenceBoostAbove float64
	PreferenceBoost      float64

	// Diversity enables the iterative category/cuisine/tag bonus.
	Diversity bool
}

// DefaultRankerConfig returns the standard blend.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		LaneWeight:              0.3,
		PopularityWeight:        0.2,
		FreshnessWeight:         0.1,
		PersonalizationWeight:   0.2,
		QualityWeight:           0.1,
		PersonalizationBaseline: 50,
		InventoryBoostAbove:     0.4,
		InventoryBoost:          1.1,
		PreferenceBoostAbove:    0.3,
		PreferenceBoost:         1.05,
		Diversity:               true,
	}
}

// PersonalizationFunc scores how well a candidate fits the user, in
// [0, 100].
type PersonalizationFunc func(rec *recommend.Recommendation) float64

// Ranker blends lane scores with recipe-level signals and spreads the
// list across categories and cuisines.
type Ranker struct {
	cfg         RankerConfig
	personalize PersonalizationFunc
	now         func() time.Time
}

// NewRanker creates a ranker.
//
//nolint:gocritic // hugeParam: cfg passed by value for immutability
func NewRanker(cfg RankerConfig) *Ranker {
	return &Ranker{cfg: cfg, now: time.Now}
}

// WithPersonalization replaces the flat personalization baseline.
func (r *Ranker) WithPersonalization(fn PersonalizationFunc) *Ranker {
	r.personalize = fn
	return r
}

// Rank rescores recs and returns them in final order. Every score is in
// [0, 100].
//
//nolint:gocritic // hugeParam: weights passed by value for immutability
func (r *Ranker) Rank(ctx context.Context, recs []recommend.Recommendation, weights recommend.LaneWeights) []recommend.Recommendation {
	if len(recs) == 0 {
		return recs
	}

	now := r.now()
	mult := r.multiplier(weights)
	out := make([]recommend.Recommendation, len(recs))
	for i := range recs {
		out[i] = recs[i]
		out[i].Score = recommend.ClampScore(mult * r.blend(&out[i], now))
	}
	recommend.SortByScore(out)

	if r.cfg.Diversity && ctx.Err() == nil {
		applyDiversity(out)
		recommend.SortByScore(out)
	}
	return out
}

// blend returns the weighted score before multiplier and diversity.
func (r *Ranker) blend(rec *recommend.Recommendation, now time.Time) float64 {
	personalization := r.cfg.PersonalizationBaseline
	if r.personalize != nil {
		personalization = recommend.ClampScore(r.personalize(rec))
	}

	var popularity, freshness, quality float64
	if rec.Recipe != nil {
		popularity = PopularityScore(rec.Recipe)
		freshness = FreshnessScore(rec.Recipe.CreatedAt, now)
		quality = QualityScore(rec.Recipe)
	}

	return r.cfg.LaneWeight*recommend.ClampScore(rec.Score) +
		r.cfg.PopularityWeight*popularity +
		r.cfg.FreshnessWeight*freshness +
		r.cfg.PersonalizationWeight*personalization +
		r.cfg.QualityWeight*quality
}

//nolint:gocritic // hugeParam: weights passed by value for immutability
func (r *Ranker) multiplier(w recommend.LaneWeights) float64 {
	switch {
	case r.cfg.InventoryBoost > 0 && w.Inventory > r.cfg.InventoryBoostAbove:
		return r.cfg.InventoryBoost
	case r.cfg.PreferenceBoost > 0 && w.Preference > r.cfg.PreferenceBoostAbove:
		return r.cfg.PreferenceBoost
	default:
		return 1.0
	}
}

// applyDiversity walks the ranked list adding a bonus for each category,
// cuisine and tag not seen higher up. Scores stay capped at 100.
func applyDiversity(recs []recommend.Recommendation) {
	categories := make(map[string]struct{})
	cuisines := make(map[string]struct{})
	tags := make(map[string]struct{})

	for i := range recs {
		recipe := recs[i].Recipe
		if recipe == nil {
			continue
		}

		var bonus float64
		if c := recommend.NormalizeName(recipe.Category); c != "" {
			if _, seen := categories[c]; !seen {
				categories[c] = struct{}{}
				bonus += newCategoryBonus
			}
		}
		if c := recommend.NormalizeName(recipe.Cuisine); c != "" {
			if _, seen := cuisines[c]; !seen {
				cuisines[c] = struct{}{}
				bonus += newCuisineBonus
			}
		}
		var tagBonus float64
		for _, t := range recipe.Tags {
			t = recommend.NormalizeName(t)
			if t == "" {
				continue
			}
			if _, seen := tags[t]; !seen {
				tags[t] = struct{}{}
				tagBonus += newTagBonus
			}
		}
		bonus += math.Min(tagBonus, maxTagBonus)

		recs[i].Score = recommend.ClampScore(recs[i].Score + bonus)
	}
}

// PopularityScore combines rating quality (40%), log-scaled review volume
// (30%) and log-scaled view volume (30%) into [0, 100].
func PopularityScore(r *recommend.Recipe) float64 {
	rating := recommend.ClampUnit(r.AvgRating / 5)
	reviews := math.Min(1, math.Log1p(float64(max(r.RatingCount, 0)))/reviewScale)
	views := math.Min(1, math.Log1p(float64(max(r.ViewCount, 0)))/viewScale)
	return recommend.ClampScore(100 * (0.4*rating + 0.3*reviews + 0.3*views))
}

// FreshnessScore steps down with recipe age.
func FreshnessScore(created, now time.Time) float64 {
	if created.IsZero() {
		return 20
	}
	age := now.Sub(created)
	const day = 24 * time.Hour
	switch {
	case age <= 7*day:
		return 100
	case age <= 30*day:
		return 80
	case age <= 90*day:
		return 60
	case age <= 365*day:
		return 40
	default:
		return 20
	}
}

// QualityScore awards tiered bonuses for rating, rating count, ease,
// speed and cost, capped at 100.
func QualityScore(r *recommend.Recipe) float64 {
	var score float64

	switch {
	case r.AvgRating >= 4.5:
		score += 30
	case r.AvgRating >= 4.0:
		score += 20
	case r.AvgRating >= 3.5:
		score += 10
	}

	switch {
	case r.RatingCount >= 50:
		score += 20
	case r.RatingCount >= 10:
		score += 10
	case r.RatingCount >= 1:
		score += 5
	}

	switch r.Difficulty {
	case recommend.DifficultyEasy:
		score += 15
	case recommend.DifficultyMedium:
		score += 8
	}

	switch {
	case r.CookTimeMinutes > 0 && r.CookTimeMinutes <= 30:
		score += 20
	case r.CookTimeMinutes > 0 && r.CookTimeMinutes <= 60:
		score += 10
	}

	switch r.CostLevel {
	case 1:
		score += 15
	case 2:
		score += 8
	}

	return math.Min(score, 100)
}

var _ recommend.Ranker = (*Ranker)(nil)
