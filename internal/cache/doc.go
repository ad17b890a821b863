// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package cache provides the TTL cache shared by the recommendation
// pipeline.
//
// A single generic Cache type backs the rating matrix snapshot, the
// similarity memo and the engine's response cache. Each cache is bounded by
// entry count and TTL, and exposes explicit invalidation hooks instead of
// timer callbacks:
//
//	matrices := cache.New[string, *algorithms.RatingMatrix](1, time.Hour)
//	matrices.OnInvalidate(func(reason string) {
//	    similarities.Clear()
//	})
//	matrices.Invalidate("ratings updated")
//
// GenerateKey builds compact, deterministic keys from arbitrary request
// parameters by hashing their JSON encoding.
package cache
