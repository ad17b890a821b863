// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// collaborativeBatchSize is the minimum number of predicted recipes loaded
// per repository call.
const collaborativeBatchSize = 64

// MatrixProvider supplies the current rating matrix snapshot.
type MatrixProvider interface {
	Current(ctx context.Context) (*RatingMatrix, error)
}

// CollaborativeLane scores unseen recipes by predicted rating.
//
// A user absent from the matrix, or an empty matrix, yields no candidates
// rather than an error so the other lanes carry the request.
type CollaborativeLane struct {
	repo      recommend.Repository
	matrix    MatrixProvider
	predictor *Predictor
	minRating float64
	logger    zerolog.Logger
}

// NewCollaborativeLane creates the collaborative lane.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCollaborativeLane(repo recommend.Repository, matrix MatrixProvider, predictor *Predictor, minRating float64, logger zerolog.Logger) *CollaborativeLane {
	if minRating < MinRating {
		minRating = MinRating
	}
	return &CollaborativeLane{
		repo:      repo,
		matrix:    matrix,
		predictor: predictor,
		minRating: minRating,
		logger:    logger.With().Str("lane", recommend.LaneCollaborative).Logger(),
	}
}

// Name returns the lane name.
func (l *CollaborativeLane) Name() string {
	return recommend.LaneCollaborative
}

// Recommend predicts ratings for every recipe the user has not rated and
// returns the strongest predictions that pass the dietary gate and the
// request filters.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (l *CollaborativeLane) Recommend(ctx context.Context, req recommend.LaneRequest) ([]recommend.Recommendation, error) {
	m, err := l.matrix.Current(ctx)
	if errors.Is(err, recommend.ErrEmptyMatrix) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rating matrix: %w", err)
	}

	user := req.Context.UserID
	preds, err := l.predictor.PredictTopN(ctx, m, user, 0)
	if errors.Is(err, recommend.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("predict ratings: %w", err)
	}

	pref, err := l.repo.Preference(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load preference: %w", err)
	}
	gate := NewDietaryProfile(pref, req.Context)

	kept := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		if p.Rating >= l.minRating && !req.Excluded(p.RecipeID) {
			kept = append(kept, p)
		}
	}

	// Recipes are loaded in batches until enough pass the hard filters.
	batch := collaborativeBatchSize
	if req.Limit > 0 && req.Limit*2 > batch {
		batch = req.Limit * 2
	}
	recs := make([]recommend.Recommendation, 0, min(len(kept), max(req.Limit, 0)))
	for off := 0; off < len(kept); off += batch {
		if req.Limit > 0 && len(recs) >= req.Limit {
			break
		}
		chunk := kept[off:min(off+batch, len(kept))]
		ids := make([]int64, len(chunk))
		for i, p := range chunk {
			ids[i] = p.RecipeID
		}
		recipes, err := l.repo.Recipes(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load recipes: %w", err)
		}
		byID := make(map[int64]*recommend.Recipe, len(recipes))
		for i := range recipes {
			byID[recipes[i].ID] = &recipes[i]
		}

		for _, p := range chunk {
			recipe, ok := byID[p.RecipeID]
			if !ok || !recipe.Visible() || !matchesContext(recipe, req.Context) || !gate.Allows(recipe) {
				continue
			}
			recs = append(recs, recommend.Recommendation{
				RecipeID: p.RecipeID,
				Score:    PredictionScore(p),
				Metadata: recommend.Metadata{PreferenceMatch: recommend.ClampUnit((p.Rating - MinRating) / (MaxRating - MinRating))},
				Source:   recommend.LaneCollaborative,
				Recipe:   recipe,
			})
			if req.Limit > 0 && len(recs) >= req.Limit {
				break
			}
		}
	}
	if len(recs) == 0 {
		return nil, nil
	}

	l.logger.Debug().
		Int64("user_id", user).
		Uint64("matrix_version", m.Version()).
		Int("predictions", len(preds)).
		Int("candidates", len(recs)).
		Msg("Collaborative candidates scored")

	return recs, nil
}

// PredictionScore maps a predicted rating onto [0, 100], discounted by up
// to 30% for low confidence.
func PredictionScore(p Prediction) float64 {
	base := (p.Rating - MinRating) / (MaxRating - MinRating) * 100
	return round(recommend.ClampScore(base*(0.7+0.3*p.Confidence)), 2)
}
