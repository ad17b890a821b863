// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package config

import (
	"time"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Database  DatabaseConfig   `koanf:"database"`
	Snapshots SnapshotConfig   `koanf:"snapshots"`
	Recommend recommend.Config `koanf:"recommend"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `koanf:"host" validate:"required"`
	Port        int    `koanf:"port" validate:"min=1,max=65535"`
	Environment string `koanf:"environment" validate:"oneof=development staging production"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables
	// rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds repository settings.
type DatabaseConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`

	// SeedPath is an optional YAML or JSON file loaded at startup.
	SeedPath string `koanf:"seed_path"`

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio" validate:"gt=0,lt=1"`

	BreakerTimeout      time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests" validate:"min=1"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio" validate:"gt=0,lte=1"`
}

// SnapshotConfig controls the periodic matrix refresh and the persisted
// average snapshots it writes.
type SnapshotConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Dir             string        `koanf:"dir"`
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gt=0"`
	Keep            int           `koanf:"keep" validate:"min=1"`

	// FullRefreshEvery makes every Nth scheduled refresh a full rebuild.
	// The others merge ratings recorded since the last snapshot.
	FullRefreshEvery int `koanf:"full_refresh_every" validate:"min=1"`

	// DiagnosticSample is how many users the neighbor diagnostic samples
	// after each refresh.
	DiagnosticSample int `koanf:"diagnostic_sample" validate:"min=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// defaultConfig returns the built-in defaults, the first configuration layer.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			Environment:       "development",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			RequestTimeout:    20 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		Database: DatabaseConfig{
			Path:                "/data/recipewise",
			GCInterval:          10 * time.Minute,
			GCDiscardRatio:      0.5,
			BreakerTimeout:      30 * time.Second,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
		},
		Snapshots: SnapshotConfig{
			Enabled:          true,
			Dir:              "/data/snapshots",
			RefreshInterval:  time.Hour,
			Keep:             5,
			FullRefreshEvery: 6,
			DiagnosticSample: 50,
		},
		Recommend: *recommend.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
