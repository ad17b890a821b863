// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// userHistory is a user's interaction history loaded for one request.
type userHistory struct {
	ratings   []Rating
	favorites []Favorite
	views     []View
}

// loadHistory fetches ratings, favorites and views concurrently.
func (e *Engine) loadHistory(ctx context.Context, userID int64) (*userHistory, error) {
	h := &userHistory{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ratings, err := e.repo.RatingsForUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("ratings: %w", err)
		}
		h.ratings = ratings
		return nil
	})
	g.Go(func() error {
		favorites, err := e.repo.FavoritesForUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("favorites: %w", err)
		}
		h.favorites = favorites
		return nil
	})
	g.Go(func() error {
		views, err := e.repo.ViewsForUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("views: %w", err)
		}
		h.views = views
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return h, nil
}

// counts returns the interaction counts used for cold-start classification.
func (h *userHistory) counts() InteractionCounts {
	return InteractionCounts{
		Ratings:   len(h.ratings),
		Favorites: len(h.favorites),
		Views:     len(h.views),
	}
}

// exclusionSet returns every recipe the user already knows, plus the
// explicitly excluded ids.
func (h *userHistory) exclusionSet(explicit []int64) map[int64]struct{} {
	exclude := make(map[int64]struct{}, len(h.ratings)+len(h.favorites)+len(h.views)+len(explicit))
	for _, r := range h.ratings {
		exclude[r.RecipeID] = struct{}{}
	}
	for _, f := range h.favorites {
		exclude[f.RecipeID] = struct{}{}
	}
	for _, v := range h.views {
		exclude[v.RecipeID] = struct{}{}
	}
	for _, id := range explicit {
		exclude[id] = struct{}{}
	}
	return exclude
}
