// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recipewise/config.yaml",
	"/etc/recipewise/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	"server_host":          "server.host",
	"server_port":          "server.port",
	"server_environment":   "server.environment",
	"http_read_timeout":    "server.read_timeout",
	"http_write_timeout":   "server.write_timeout",
	"http_idle_timeout":    "server.idle_timeout",
	"http_request_timeout": "server.request_timeout",
	"shutdown_timeout":     "server.shutdown_timeout",
	"rate_limit_requests":  "server.rate_limit_requests",
	"rate_limit_window":    "server.rate_limit_window",
	"cors_origins":         "server.cors_origins",

	"db_path":               "database.path",
	"db_in_memory":          "database.in_memory",
	"db_sync_writes":        "database.sync_writes",
	"seed_path":             "database.seed_path",
	"db_gc_interval":        "database.gc_interval",
	"db_gc_discard_ratio":   "database.gc_discard_ratio",
	"breaker_timeout":       "database.breaker_timeout",
	"breaker_min_requests":  "database.breaker_min_requests",
	"breaker_failure_ratio": "database.breaker_failure_ratio",

	"snapshot_enabled":          "snapshots.enabled",
	"snapshot_dir":              "snapshots.dir",
	"snapshot_refresh_interval": "snapshots.refresh_interval",
	"snapshot_keep":             "snapshots.keep",
	"snapshot_full_every":       "snapshots.full_refresh_every",
	"snapshot_diagnostic":       "snapshots.diagnostic_sample",

	"recommend_weight_inventory":     "recommend.weights.inventory",
	"recommend_weight_price":         "recommend.weights.price",
	"recommend_weight_nutrition":     "recommend.weights.nutrition",
	"recommend_weight_preference":    "recommend.weights.preference",
	"recommend_weight_seasonal":      "recommend.weights.seasonal",
	"recommend_matrix_ttl":           "recommend.matrix.ttl",
	"recommend_matrix_lookback":      "recommend.matrix.lookback",
	"recommend_min_user_ratings":     "recommend.matrix.min_user_ratings",
	"recommend_min_item_ratings":     "recommend.matrix.min_item_ratings",
	"recommend_neighbor_strategy":    "recommend.neighbors.strategy",
	"recommend_max_neighbors":        "recommend.neighbors.max_neighbors",
	"recommend_min_similarity":       "recommend.neighbors.min_similarity",
	"recommend_neighbor_diversity":   "recommend.neighbors.diversity_threshold",
	"recommend_neighbor_time_decay":  "recommend.neighbors.time_decay_window",
	"recommend_predictor_method":     "recommend.predictor.method",
	"recommend_similarity_metric":    "recommend.predictor.metric",
	"recommend_confidence_threshold": "recommend.predictor.confidence_threshold",
	"recommend_enable_fallback":      "recommend.predictor.enable_fallback",
	"recommend_mmr_lambda":           "recommend.diversity.mmr_lambda",
	"recommend_lane_timeout":         "recommend.limits.lane_timeout",
	"recommend_max_limit":            "recommend.limits.max_limit",
	"recommend_cache_enabled":        "recommend.cache.enabled",
	"recommend_cache_ttl":            "recommend.cache.ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// sliceConfigPaths are split on commas when they arrive as a single string.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// LoadWithKoanf loads configuration with precedence env > file > defaults
// and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SERVER_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the file LoadWithKoanf reads, or "" when none exists.
func ConfigFile() string {
	return findConfigFile()
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped names return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller reloads and swaps the configuration under its own lock.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
