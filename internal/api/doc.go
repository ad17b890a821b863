// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

/*
Package api exposes the recommendation engine over HTTP using the chi router.

Routes:

	GET  /health
	GET  /metrics
	GET  /api/v1/users/{userID}/recommendations
	POST /api/v1/users/{userID}/recommendations/refresh
	POST /api/v1/users/{userID}/preferences/learn
	GET  /api/v1/recipes/popular
	GET  /api/v1/recipes/{recipeID}/similar

Every JSON response uses the same envelope:

	{
	  "status": "success" | "error",
	  "data": ...,
	  "metadata": {"timestamp": "...", "query_time_ms": 12, "request_id": "..."},
	  "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {...}}
	}

Query parameters are bound into request structs and checked with the
validation package before the engine is called. Engine errors are mapped to
status codes in one place (writeEngineError): an unknown recipe is a 404,
an invalid limit a 400, anything else a 500.

Lane weights can be overridden per request with weight_inventory,
weight_price, weight_nutrition, weight_preference and weight_seasonal on
GET, or a "weights" object in the refresh body. Each lies in [0, 1]; a zero
or missing weight keeps the stored or configured value.

The /api/v1 group is rate limited per client IP with go-chi/httprate. CORS
is handled globally by go-chi/cors so preflight requests never reach the
limiter.
*/
package api
