// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

/*
Package config loads the Recipewise service configuration.

Configuration is layered with koanf v2, later layers overriding earlier ones:

 1. Defaults from defaultConfig()
 2. An optional YAML file (CONFIG_PATH, else config.yaml / config.yml in the
    working directory, else /etc/recipewise/config.yaml)
 3. Environment variables, via an explicit name mapping

Only mapped environment variables are read; anything else in the process
environment is ignored.

# Environment Variables

Server:
  - SERVER_HOST, SERVER_PORT, SERVER_ENVIRONMENT
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT
  - HTTP_REQUEST_TIMEOUT, SHUTDOWN_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
  - CORS_ORIGINS (comma-separated)

Database:
  - DB_PATH, DB_IN_MEMORY, DB_SYNC_WRITES, SEED_PATH
  - DB_GC_INTERVAL, DB_GC_DISCARD_RATIO
  - BREAKER_TIMEOUT, BREAKER_MIN_REQUESTS, BREAKER_FAILURE_RATIO

Snapshots:
  - SNAPSHOT_ENABLED, SNAPSHOT_DIR, SNAPSHOT_REFRESH_INTERVAL, SNAPSHOT_KEEP

Recommendation engine:
  - RECOMMEND_WEIGHT_INVENTORY, RECOMMEND_WEIGHT_PRICE,
    RECOMMEND_WEIGHT_NUTRITION, RECOMMEND_WEIGHT_PREFERENCE,
    RECOMMEND_WEIGHT_SEASONAL
  - RECOMMEND_MATRIX_TTL, RECOMMEND_MATRIX_LOOKBACK,
    RECOMMEND_MIN_USER_RATINGS, RECOMMEND_MIN_ITEM_RATINGS
  - RECOMMEND_NEIGHBOR_STRATEGY, RECOMMEND_MAX_NEIGHBORS,
    RECOMMEND_MIN_SIMILARITY
  - RECOMMEND_PREDICTOR_METHOD, RECOMMEND_SIMILARITY_METRIC,
    RECOMMEND_CONFIDENCE_THRESHOLD, RECOMMEND_ENABLE_FALLBACK
  - RECOMMEND_LANE_TIMEOUT, RECOMMEND_MAX_LIMIT
  - RECOMMEND_CACHE_ENABLED, RECOMMEND_CACHE_TTL

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

Config is not modified after loading and may be read from any goroutine.
*/
package config
