// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recipewise/internal/logging"
	"github.com/tomtom215/recipewise/internal/recommend"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// RecommendationsResponse is the data payload of the recommendation routes.
type RecommendationsResponse struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Count           int                        `json:"count"`
	Metadata        recommend.ResultMetadata   `json:"metadata"`
}

// RecipeListResponse is the data payload of the similar and popular routes.
type RecipeListResponse struct {
	Recipes []recommend.Recommendation `json:"recipes"`
	Count   int                        `json:"count"`
}

func newRecommendationsResponse(res *recommend.Result) RecommendationsResponse {
	recs := res.Recommendations
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	return RecommendationsResponse{Recommendations: recs, Count: len(recs), Metadata: res.Metadata}
}

func newRecipeListResponse(recs []recommend.Recommendation) RecipeListResponse {
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	return RecipeListResponse{Recipes: recs, Count: len(recs)}
}

// GetRecommendations handles GET /api/v1/users/{userID}/recommendations.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := bindRecommendations(r)
	if err != nil {
		h.writeBindError(w, r, err)
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), req.UserID)
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	res, err := h.engine.GetRecommendations(ctx, req.Context(), req.Limit, req.Weights)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, newRecommendationsResponse(res), start)
}

// RefreshRecommendations handles POST /api/v1/users/{userID}/recommendations/refresh.
// The recipes the user was shown last are excluded together with the
// ids in the body. An optional weights object overrides the lane weights.
func (h *Handler) RefreshRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathInt64(r, "userID")
	if err != nil || userID <= 0 {
		h.writeBindError(w, r, &paramError{name: "userID", value: chi.URLParam(r, "userID")})
		return
	}

	var body RefreshRequest
	if err := decodeBody(w, r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeInvalidBody, "Request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&body); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	rc := recommend.Context{UserID: userID, ExcludeRecipeIDs: body.ExcludeRecipeIDs}
	res, err := h.engine.RefreshRecommendations(ctx, rc, h.engine.RecentlyShown(userID), body.Limit, body.Weights)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, newRecommendationsResponse(res), start)
}

// GetSimilarRecipes handles GET /api/v1/recipes/{recipeID}/similar.
func (h *Handler) GetSimilarRecipes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	recipeID, err := pathInt64(r, "recipeID")
	if err != nil {
		h.writeBindError(w, r, err)
		return
	}
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		h.writeBindError(w, r, err)
		return
	}
	req := SimilarRequest{RecipeID: recipeID, Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	recs, err := h.engine.GetSimilarRecipes(ctx, req.RecipeID, req.Limit)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, newRecipeListResponse(recs), start)
}

// GetPopularRecipes handles GET /api/v1/recipes/popular.
func (h *Handler) GetPopularRecipes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		h.writeBindError(w, r, err)
		return
	}
	req := PopularRequest{Limit: limit, Category: r.URL.Query().Get("category")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	recs, err := h.engine.GetPopularRecipes(ctx, req.Limit, req.Category)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, newRecipeListResponse(recs), start)
}

// LearnPreferences handles POST /api/v1/users/{userID}/preferences/learn.
func (h *Handler) LearnPreferences(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathInt64(r, "userID")
	if err != nil || userID <= 0 {
		h.writeBindError(w, r, &paramError{name: "userID", value: chi.URLParam(r, "userID")})
		return
	}

	ctx := logging.ContextWithUserID(r.Context(), userID)
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	lp, err := h.engine.UpdateUserPreferences(ctx, userID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, lp, start)
}

func (h *Handler) writeBindError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *paramError
	if errors.As(err, &pe) {
		respondValidationError(w, r, pe.apiError())
		return
	}
	respondError(w, r, http.StatusBadRequest, CodeValidation, "Invalid request", err)
}

// writeEngineError maps engine errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrRecipeNotFound):
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Recipe not found", err)
	case errors.Is(err, recommend.ErrInvalidLimit):
		respondError(w, r, http.StatusBadRequest, CodeInvalidLimit, "Invalid limit", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Request timed out", err)
	default:
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to generate recommendations", err)
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
