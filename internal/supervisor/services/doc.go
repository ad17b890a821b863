// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package services adapts Recipewise components to suture.Service.
//
// Every service blocks in Serve until its context is canceled and names
// itself through String for supervisor logs:
//
//   - HTTPServerService runs an *http.Server with graceful shutdown.
//   - MatrixService refreshes the rating matrix on an interval, merging new
//     ratings incrementally between periodic full rebuilds. Each refresh
//     clears the engine's response cache, persists the matrix averages to
//     the snapshot store and records a neighbor quality diagnostic.
//   - GCService runs badger value log GC on an interval.
package services
