// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package database is the BadgerDB persistence layer behind the
// recommendation pipeline.
//
// DB implements recommend.Repository and adds the write operations used by
// the API and the seed loader. Records are stored as JSON values under
// typed key prefixes:
//
//	recipe:{id}                      recommend.Recipe
//	rating:{user}:{recipe}           recommend.Rating (one per pair)
//	favorite:{user}:{recipe}         recommend.Favorite
//	view:{user}:{recipe}:{unixnano}  recommend.View
//	pref:{user}                      recommend.Preference
//	learned:{user}                   recommend.LearnedPreference
//	goal:{user}                      recommend.HealthGoal (active goal)
//	demo:{user}                      recommend.Demographics
//	inventory:{user}:{name}          recommend.InventoryItem
//
// Ids are zero padded so prefix iteration returns records in id order.
// Recipe aggregates (average rating, rating count, view count) are updated
// in the same transaction as the interaction that changes them.
//
// Breaker wraps a DB with a sony/gobreaker circuit breaker so that a
// failing store makes the scoring lanes fail fast instead of queueing.
package database
