// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// RecommendationsRequest is the bound form of
// GET /api/v1/users/{userID}/recommendations.
type RecommendationsRequest struct {
	UserID      int64    `validate:"gt=0"`
	Limit       int      `validate:"min=0"`
	MealType    string   `validate:"omitempty,mealtype"`
	MaxCookTime int      `validate:"min=0,max=1440"`
	Budget      int      `validate:"min=0,max=3"`
	Season      string   `validate:"omitempty,season"`
	Cuisines    []string `validate:"max=20,dive,min=1,max=50"`
	Exclude     []int64  `validate:"max=500,dive,gt=0"`

	// Weights overrides the lane weights for this request. Nil when no
	// weight_* parameter is given.
	Weights *recommend.LaneWeights
}

// Context converts the request into engine input.
func (req *RecommendationsRequest) Context() recommend.Context {
	return recommend.Context{
		UserID:            req.UserID,
		MealType:          strings.ToLower(req.MealType),
		MaxCookTime:       req.MaxCookTime,
		BudgetLimit:       req.Budget,
		PreferredCuisines: req.Cuisines,
		Season:            normalizeSeason(req.Season),
		ExcludeRecipeIDs:  req.Exclude,
	}
}

// RefreshRequest is the JSON body of the refresh endpoint. Recipes the
// user was shown last are excluded in addition to ExcludeRecipeIDs.
type RefreshRequest struct {
	ExcludeRecipeIDs []int64                `json:"exclude_recipe_ids" validate:"max=500,dive,gt=0"`
	Limit            int                    `json:"limit" validate:"min=0"`
	Weights          *recommend.LaneWeights `json:"weights,omitempty"`
}

// SimilarRequest is the bound form of GET /api/v1/recipes/{recipeID}/similar.
type SimilarRequest struct {
	RecipeID int64 `validate:"gt=0"`
	Limit    int   `validate:"min=0,max=100"`
}

// PopularRequest is the bound form of GET /api/v1/recipes/popular.
type PopularRequest struct {
	Limit    int    `validate:"min=0,max=100"`
	Category string `validate:"max=50"`
}

// paramError reports a query or path parameter that could not be parsed.
type paramError struct {
	name  string
	value string
	want  string
}

func (e *paramError) Error() string {
	want := e.want
	if want == "" {
		want = "an integer"
	}
	return fmt.Sprintf("%s must be %s, got %q", e.name, want, e.value)
}

func (e *paramError) apiError() *APIError {
	return &APIError{
		Code:    CodeValidation,
		Message: e.Error(),
		Details: map[string]interface{}{
			"field": e.name,
			"value": e.value,
		},
	}
}

// bindRecommendations parses the path and query of a recommendations request.
func bindRecommendations(r *http.Request) (*RecommendationsRequest, error) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()

	req := &RecommendationsRequest{
		UserID:   userID,
		MealType: strings.TrimSpace(q.Get("meal_type")),
		Season:   strings.TrimSpace(q.Get("season")),
		Cuisines: parseCommaSeparated(q.Get("cuisine")),
	}
	if req.Limit, err = queryInt(q, "limit"); err != nil {
		return nil, err
	}
	if req.MaxCookTime, err = queryInt(q, "max_cook_time"); err != nil {
		return nil, err
	}
	if req.Budget, err = queryInt(q, "budget"); err != nil {
		return nil, err
	}
	if req.Exclude, err = parseCommaSeparatedInt64s("exclude", q.Get("exclude")); err != nil {
		return nil, err
	}
	if req.Weights, err = queryWeights(q); err != nil {
		return nil, err
	}
	return req, nil
}

// queryWeights reads the weight_* parameters. A weight left out or set to
// zero keeps the stored or configured value.
func queryWeights(q url.Values) (*recommend.LaneWeights, error) {
	var w recommend.LaneWeights
	set := false
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"weight_inventory", &w.Inventory},
		{"weight_price", &w.Price},
		{"weight_nutrition", &w.Nutrition},
		{"weight_preference", &w.Preference},
		{"weight_seasonal", &w.Seasonal},
	} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &paramError{name: p.name, value: raw, want: "a number"}
		}
		*p.dst = v
		set = true
	}
	if !set {
		return nil, nil
	}
	return &w, nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &paramError{name: name, value: raw}
	}
	return v, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, value: raw}
	}
	return v, nil
}

// parseCommaSeparated splits a comma-separated list, dropping empty items.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseCommaSeparatedInt64s(name, value string) ([]int64, error) {
	parts := parseCommaSeparated(value)
	if len(parts) == 0 {
		return nil, nil
	}
	result := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &paramError{name: name, value: part}
		}
		result = append(result, v)
	}
	return result, nil
}

// normalizeSeason folds "fall" into "autumn".
func normalizeSeason(s string) string {
	s = strings.ToLower(s)
	if s == "fall" {
		return "autumn"
	}
	return s
}
