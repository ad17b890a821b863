// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package config

import (
	"fmt"

	"github.com/tomtom215/recipewise/internal/validation"
)

// Validate checks struct tags first, then the rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if c.Snapshots.Enabled && c.Snapshots.Dir == "" {
		return fmt.Errorf("SNAPSHOT_DIR is required when SNAPSHOT_ENABLED=true")
	}

	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required unless DB_IN_MEMORY=true")
	}
	if c.Database.GCInterval < 0 {
		return fmt.Errorf("DB_GC_INTERVAL must not be negative, got %v", c.Database.GCInterval)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	if c.IsProduction() {
		for _, origin := range c.Server.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}
