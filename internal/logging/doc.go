// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package logging provides the process-wide zerolog logger for Recipewise.
//
// Call Init once from main with the values loaded by the config package:
//
//	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
//	logging.Info().Int("port", cfg.Server.Port).Msg("Server starting")
//
// Components take a zerolog.Logger by value and tag it:
//
//	logger := logging.WithComponent("matrix-refresh")
//
// Request handlers log through Ctx, which adds the request ID placed in the
// context by the API middleware:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Lane failed")
//
// Libraries that expect log/slog (suture's event hook) get a zerolog-backed
// handler from NewSlogHandler.
package logging
