// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/api"
	"github.com/tomtom215/recipewise/internal/config"
	"github.com/tomtom215/recipewise/internal/database"
	"github.com/tomtom215/recipewise/internal/logging"
	"github.com/tomtom215/recipewise/internal/recommend/storage"
	"github.com/tomtom215/recipewise/internal/supervisor"
	"github.com/tomtom215/recipewise/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	seedPath := flag.String("seed", "", "seed file (.json, .yaml or .yml) loaded before serving")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)

	if *seedPath != "" {
		cfg.Database.SeedPath = *seedPath
	}

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Server stopped")
}

// run wires every component and blocks until the root context is cancelled.
func run(cfg *config.Config) error {
	logger := logging.Logger()
	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("db_in_memory", cfg.Database.InMemory).
		Msg("Starting Recipewise")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Config{
		Path:       cfg.Database.Path,
		InMemory:   cfg.Database.InMemory,
		SyncWrites: cfg.Database.SyncWrites,
	}, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedPath != "" {
		if err := seedDatabase(ctx, db, cfg.Database.SeedPath, logger); err != nil {
			return err
		}
	}

	breakerCfg := database.DefaultBreakerConfig()
	breakerCfg.Timeout = cfg.Database.BreakerTimeout
	breakerCfg.MinRequests = cfg.Database.BreakerMinRequests
	breakerCfg.FailureRatio = cfg.Database.BreakerFailureRatio
	repo := database.NewBreaker(db, breakerCfg, logger)

	rec, err := initRecommend(&cfg.Recommend, repo, logger)
	if err != nil {
		return fmt.Errorf("init recommendation engine: %w", err)
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Data layer
	if cfg.Database.InMemory || cfg.Database.GCInterval == 0 {
		logger.Info().Msg("Badger value log GC disabled")
	} else {
		tree.AddDataService(services.NewGCService(db, cfg.Database.GCInterval, cfg.Database.GCDiscardRatio, logger))
	}

	// Compute layer
	var snapshots services.SnapshotStore
	if cfg.Snapshots.Enabled {
		store, err := storage.NewStore(cfg.Snapshots.Dir)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		snapshots = store
	}
	matrixSvc := services.NewMatrixService(rec.Matrix, rec.Engine, snapshots, services.MatrixServiceConfig{
		Interval:         cfg.Snapshots.RefreshInterval,
		RefreshOnStartup: true,
		Keep:             cfg.Snapshots.Keep,
		FullRefreshEvery: cfg.Snapshots.FullRefreshEvery,
		DiagnosticSample: cfg.Snapshots.DiagnosticSample,
	}, logger)
	matrixSvc.SetAnalyzer(rec.Predictor)
	tree.AddComputeService(matrixSvc)

	// API layer
	handler := api.NewHandler(rec.Engine, api.HealthSources{
		DB:      db,
		Breaker: repo,
		Matrix:  matrixSvc,
	}, version, cfg.Server.RequestTimeout)

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Server.RateLimitRequests
	mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	if cfg.Server.RateLimitRequests == 0 {
		logger.Warn().Msg("Rate limiting is disabled (RATE_LIMIT_REQUESTS=0)")
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(mwCfg)),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	watchLogLevel(logger)

	logger.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logger.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

// seedDatabase loads a seed file into db.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func seedDatabase(ctx context.Context, db *database.DB, path string, logger zerolog.Logger) error {
	data, err := database.ReadSeedFile(path)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	summary, err := db.Seed(ctx, data)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	logger.Info().
		Str("path", path).
		Int("recipes", summary.Recipes).
		Int("ratings", summary.Ratings).
		Int("favorites", summary.Favorites).
		Int("views", summary.Views).
		Int("users", summary.Users).
		Msg("Database seeded")
	return nil
}

// watchLogLevel applies log level changes in the config file without a
// restart. Other settings still need one.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func watchLogLevel(logger zerolog.Logger) {
	path := config.ConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadWithKoanf()
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		if cfg.Logging.Level != logging.GetLevel().String() {
			logging.SetLevelString(cfg.Logging.Level)
			logger.Info().Str("level", cfg.Logging.Level).Msg("Log level changed")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
