// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package validation validates API request and configuration structs with
// go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Besides the built-in tags it
// registers:
//
//   - season: spring, summer, autumn, fall or winter (case-insensitive)
//   - mealtype: breakfast, lunch, dinner or snack (case-insensitive)
//
// Failures are returned as *RequestValidationError, which converts to the
// API error envelope through ToAPIError:
//
//	type RecommendRequest struct {
//	    Limit  int    `validate:"min=0,max=100"`
//	    Season string `validate:"omitempty,season"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, verr)
//	    return
//	}
package validation
