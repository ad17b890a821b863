// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// memRepo is an in-memory recommend.Repository for tests.
type memRepo struct {
	mu           sync.Mutex
	recipes      map[int64]recommend.Recipe
	ratings      []recommend.Rating
	favorites    []recommend.Favorite
	views        []recommend.View
	prefs        map[int64]*recommend.Preference
	learned      map[int64]*recommend.LearnedPreference
	goals        map[int64]*recommend.HealthGoal
	demographics map[int64]*recommend.Demographics
	inventory    map[int64][]recommend.InventoryItem

	// err, when set, is returned by every read.
	err error
}

func newMemRepo() *memRepo {
	return &memRepo{
		recipes:      make(map[int64]recommend.Recipe),
		prefs:        make(map[int64]*recommend.Preference),
		learned:      make(map[int64]*recommend.LearnedPreference),
		goals:        make(map[int64]*recommend.HealthGoal),
		demographics: make(map[int64]*recommend.Demographics),
		inventory:    make(map[int64][]recommend.InventoryItem),
	}
}

func (r *memRepo) addRecipe(rec recommend.Recipe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Published, rec.Public = true, true
	r.recipes[rec.ID] = rec
}

func (r *memRepo) rate(user, recipe int64, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings = append(r.ratings, recommend.Rating{UserID: user, RecipeID: recipe, Value: value, Timestamp: time.Now()})
}

func (r *memRepo) favorite(user, recipe int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.favorites = append(r.favorites, recommend.Favorite{UserID: user, RecipeID: recipe, CreatedAt: time.Now()})
}

func (r *memRepo) RatingsForUser(_ context.Context, userID int64) ([]recommend.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Rating
	for _, rt := range r.ratings {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r *memRepo) Ratings(_ context.Context, since time.Time) ([]recommend.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Rating
	for _, rt := range r.ratings {
		if since.IsZero() || !rt.Timestamp.Before(since) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r *memRepo) FavoritesForUser(_ context.Context, userID int64) ([]recommend.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Favorite
	for _, f := range r.favorites {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memRepo) Favorites(_ context.Context, since time.Time) ([]recommend.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Favorite
	for _, f := range r.favorites {
		if since.IsZero() || !f.CreatedAt.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memRepo) ViewsForUser(_ context.Context, userID int64) ([]recommend.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.View
	for _, v := range r.views {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memRepo) Recipe(_ context.Context, id int64) (*recommend.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.recipes[id]
	if !ok {
		return nil, recommend.ErrRecipeNotFound
	}
	return &rec, nil
}

func (r *memRepo) Recipes(_ context.Context, ids []int64) ([]recommend.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Recipe
	for _, id := range ids {
		if rec, ok := r.recipes[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRepo) sortedRecipes() []recommend.Recipe {
	out := make([]recommend.Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		if rec.Visible() {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memRepo) PublishedRecipes(_ context.Context, f recommend.RecipeFilter) ([]recommend.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Recipe
	for _, rec := range r.sortedRecipes() {
		if rec.ID <= f.AfterID {
			continue
		}
		if _, skip := f.ExcludeIDs[rec.ID]; skip {
			continue
		}
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.MaxCookTime > 0 && rec.CookTimeMinutes > f.MaxCookTime {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) PopularRecipes(_ context.Context, limit int, category string) ([]recommend.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []recommend.Recipe
	for _, rec := range r.sortedRecipes() {
		if category == "" || rec.Category == category {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgRating > out[j].AvgRating })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) Preference(_ context.Context, userID int64) (*recommend.Preference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefs[userID], r.err
}

func (r *memRepo) UpsertPreference(_ context.Context, p *recommend.Preference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[p.UserID] = p
	return nil
}

func (r *memRepo) LearnedPreference(_ context.Context, userID int64) (*recommend.LearnedPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.learned[userID], r.err
}

func (r *memRepo) UpsertLearnedPreference(_ context.Context, lp *recommend.LearnedPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.learned[lp.UserID] = lp
	return nil
}

func (r *memRepo) ActiveHealthGoal(_ context.Context, userID int64) (*recommend.HealthGoal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.goals[userID], r.err
}

func (r *memRepo) Demographics(_ context.Context, userID int64) (*recommend.Demographics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.demographics[userID], r.err
}

func (r *memRepo) Inventory(_ context.Context, userID int64) ([]recommend.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inventory[userID], r.err
}

var _ recommend.Repository = (*memRepo)(nil)

// ingredients builds an ingredient list from names.
func ingredients(names ...string) []recommend.Ingredient {
	out := make([]recommend.Ingredient, len(names))
	for i, n := range names {
		out[i] = recommend.Ingredient{Name: n}
	}
	return out
}

// ratingsOf builds ratings from (user, recipe, value) triples.
func ratingsOf(triples ...[3]float64) []recommend.Rating {
	out := make([]recommend.Rating, len(triples))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, t := range triples {
		out[i] = recommend.Rating{
			UserID:    int64(t[0]),
			RecipeID:  int64(t[1]),
			Value:     t[2],
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}
