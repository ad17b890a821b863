// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GCRunner runs one round of storage garbage collection.
// *database.DB satisfies it.
type GCRunner interface {
	RunGC(discardRatio float64) error
}

// GCService runs value log GC every interval.
type GCService struct {
	db           GCRunner
	interval     time.Duration
	discardRatio float64
	logger       zerolog.Logger
}

// NewGCService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGCService(db GCRunner, interval time.Duration, discardRatio float64, logger zerolog.Logger) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &GCService{
		db:           db,
		interval:     interval,
		discardRatio: discardRatio,
		logger:       logger.With().Str("service", "badger-gc").Logger(),
	}
}

// Serve implements suture.Service. GC errors are logged; the next tick
// tries again.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.db.RunGC(s.discardRatio); err != nil {
				s.logger.Warn().Err(err).Msg("value log GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("value log GC complete")
		}
	}
}

func (s *GCService) String() string {
	return "badger-gc"
}
