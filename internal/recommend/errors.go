// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import "errors"

var (
	// ErrEmptyMatrix means no ratings satisfied the matrix build criteria.
	// Callers treat it as "no collaborative signal".
	ErrEmptyMatrix = errors.New("rating matrix is empty")

	// ErrInsufficientNeighbors means too few neighbors contributed to a
	// prediction. The predictor falls back instead of returning it.
	ErrInsufficientNeighbors = errors.New("insufficient neighbors")

	// ErrUserNotFound is returned when a user has no rows in the rating
	// matrix.
	ErrUserNotFound = errors.New("user not found")

	// ErrRecipeNotFound is returned for unknown recipe ids.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrInvalidLimit is returned for negative result limits.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrNoRepository is returned when the engine has no repository.
	ErrNoRepository = errors.New("repository not set")
)
