// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package main is the entry point for the Recipewise server.
//
// Recipewise serves personalized recipe recommendations over HTTP. Ratings,
// favorites, views, preferences and the recipe catalog live in an embedded
// BadgerDB store; a collaborative rating matrix is rebuilt periodically in
// the background and its derived averages are snapshotted to disk.
//
// # Startup
//
//  1. Configuration: defaults, then config.yaml, then environment (Koanf v2)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Database: BadgerDB, optionally seeded from a JSON or YAML file
//  4. Repository circuit breaker (sony/gobreaker)
//  5. Recommendation engine: rule, collaborative and content lanes, cold
//     start, ranker and temporal diversity
//  6. Supervisor tree: badger GC (data), matrix refresh (compute), HTTP (api)
//
// # Flags
//
//	--seed path   load a seed file before serving (overrides SEED_PATH)
//
// # Signals
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
// server gracefully (SHUTDOWN_TIMEOUT), then the background services, and
// the database is closed last.
//
// # Example
//
//	export DB_IN_MEMORY=true
//	./recipewise --seed testdata/seed.yaml
//	curl localhost:8080/api/v1/users/1/recommendations?limit=5
package main
