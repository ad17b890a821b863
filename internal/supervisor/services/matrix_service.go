// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/recommend"
	"github.com/tomtom215/recipewise/internal/recommend/algorithms"
	"github.com/tomtom215/recipewise/internal/recommend/storage"
)

// AveragesSnapshotName is the snapshot store name for matrix averages.
const AveragesSnapshotName = "matrix_averages"

// MatrixRefresher rebuilds the current rating matrix.
// *algorithms.MatrixBuilder satisfies it.
type MatrixRefresher interface {
	Refresh(ctx context.Context) (*algorithms.RatingMatrix, error)
}

// MatrixSyncer merges ratings recorded since the current snapshot instead
// of rebuilding. *algorithms.MatrixBuilder satisfies it; a MatrixRefresher
// that does not implement it is always fully rebuilt.
type MatrixSyncer interface {
	Sync(ctx context.Context) (*algorithms.SyncResult, error)
}

// MatrixAnalyzer measures prediction and neighbor quality.
// *algorithms.Predictor satisfies it.
type MatrixAnalyzer interface {
	Evaluate(ctx context.Context, m *algorithms.RatingMatrix, testSet []recommend.Rating) (algorithms.EvaluationResult, error)
	DiagnoseNeighbors(ctx context.Context, m *algorithms.RatingMatrix, sample int) (algorithms.NeighborDiagnostics, error)
}

// CacheInvalidator drops cached recommendation responses.
// *recommend.Engine satisfies it.
type CacheInvalidator interface {
	InvalidateCache(reason string)
}

// SnapshotStore persists versioned snapshots. *storage.Store satisfies it.
type SnapshotStore interface {
	Save(ctx context.Context, name string, version int, data interface{}, meta storage.SnapshotMetadata) error
	Load(ctx context.Context, name string, version int, target interface{}) (*storage.SnapshotMetadata, error)
	LatestVersion(name string) (int, bool)
	Prune(ctx context.Context, name string, keep int) (int, error)
}

// MatrixServiceConfig holds refresh settings.
type MatrixServiceConfig struct {
	// Interval between rebuilds.
	Interval time.Duration

	// RefreshOnStartup rebuilds as soon as the service starts.
	RefreshOnStartup bool

	// Timeout bounds a single rebuild.
	Timeout time.Duration

	// Keep is how many snapshots to retain.
	Keep int

	// FullRefreshEvery makes every Nth scheduled run a full rebuild; the
	// runs in between merge new ratings incrementally.
	FullRefreshEvery int

	// DiagnosticSample is how many users the neighbor diagnostic samples.
	DiagnosticSample int
}

// MatrixStatus reports the outcome of the most recent refresh.
type MatrixStatus struct {
	LastRefresh     time.Time `json:"last_refresh"`
	MatrixVersion   uint64    `json:"matrix_version"`
	SnapshotVersion int       `json:"snapshot_version"`
	Users           int       `json:"users"`
	Items           int       `json:"items"`
	Ratings         int       `json:"ratings"`
	Refreshes       int64     `json:"refreshes"`
	Incremental     bool      `json:"incremental"`
	LastError       string    `json:"last_error,omitempty"`

	// Neighbors summarizes neighbor quality on the current snapshot.
	Neighbors *algorithms.NeighborDiagnostics `json:"neighbors,omitempty"`

	// Evaluation scores the previous snapshot against the ratings merged
	// by the last incremental update.
	Evaluation *algorithms.EvaluationResult `json:"evaluation,omitempty"`
}

// MatrixService periodically rebuilds or incrementally updates the rating
// matrix, invalidates the response cache and persists the derived averages.
type MatrixService struct {
	builder  MatrixRefresher
	cache    CacheInvalidator
	store    SnapshotStore
	analyzer MatrixAnalyzer
	config   MatrixServiceConfig
	logger   zerolog.Logger

	mu     sync.RWMutex
	status MatrixStatus
	runs   int
}

// NewMatrixService creates the service. store may be nil, in which case
// nothing is persisted.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMatrixService(builder MatrixRefresher, cache CacheInvalidator, store SnapshotStore, cfg MatrixServiceConfig, logger zerolog.Logger) *MatrixService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 5
	}
	if cfg.FullRefreshEvery <= 0 {
		cfg.FullRefreshEvery = 6
	}
	if cfg.DiagnosticSample <= 0 {
		cfg.DiagnosticSample = 50
	}
	return &MatrixService{
		builder: builder,
		cache:   cache,
		store:   store,
		config:  cfg,
		logger:  logger.With().Str("service", "matrix-refresh").Logger(),
	}
}

// Serve implements suture.Service. Failed rebuilds are logged and retried
// on the next tick; the previous snapshot stays in use.
func (s *MatrixService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("refresh_on_startup", s.config.RefreshOnStartup).
		Msg("matrix refresh service starting")

	s.logLastSnapshot(ctx)

	if s.config.RefreshOnStartup {
		if err := s.RefreshNow(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("initial matrix refresh failed")
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("matrix refresh service stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.scheduled(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled matrix refresh failed")
			}
		}
	}
}

// SetAnalyzer enables neighbor diagnostics and incremental evaluation.
// Call it before Serve.
func (s *MatrixService) SetAnalyzer(a MatrixAnalyzer) {
	s.analyzer = a
}

// scheduled runs an incremental sync, or a full rebuild every
// FullRefreshEvery runs and whenever the builder cannot sync.
func (s *MatrixService) scheduled(ctx context.Context) error {
	s.runs++
	if _, ok := s.builder.(MatrixSyncer); ok && s.runs%s.config.FullRefreshEvery != 0 {
		return s.SyncNow(ctx)
	}
	return s.RefreshNow(ctx)
}

// RefreshNow rebuilds the matrix immediately. An empty matrix is not an
// error: there is simply nothing to persist yet.
func (s *MatrixService) RefreshNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	m, err := s.builder.Refresh(ctx)
	if errors.Is(err, recommend.ErrEmptyMatrix) {
		s.logger.Debug().Msg("no ratings yet, matrix is empty")
		s.recordError(nil)
		return nil
	}
	if err != nil {
		s.recordError(err)
		return fmt.Errorf("rebuild matrix: %w", err)
	}

	return s.install(ctx, m, false, nil)
}

// SyncNow merges ratings recorded since the current snapshot. It falls
// back to RefreshNow when the builder cannot sync.
func (s *MatrixService) SyncNow(ctx context.Context) error {
	syncer, ok := s.builder.(MatrixSyncer)
	if !ok {
		return s.RefreshNow(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	res, err := syncer.Sync(ctx)
	if errors.Is(err, recommend.ErrEmptyMatrix) {
		s.logger.Debug().Msg("no ratings yet, matrix is empty")
		s.recordError(nil)
		return nil
	}
	if err != nil {
		s.recordError(err)
		return fmt.Errorf("sync matrix: %w", err)
	}
	if res.Rebuilt() {
		return s.install(ctx, res.Matrix, false, nil)
	}
	if res.Matrix == res.Base {
		s.logger.Debug().Uint64("matrix_version", res.Matrix.Version()).Msg("no new ratings since last snapshot")
		s.recordError(nil)
		return nil
	}

	var eval *algorithms.EvaluationResult
	if unseen := res.Unseen(); s.analyzer != nil && len(unseen) > 0 {
		result, err := s.analyzer.Evaluate(ctx, res.Base, unseen)
		if err != nil {
			s.logger.Warn().Err(err).Msg("incremental evaluation failed")
		} else {
			eval = &result
			s.logger.Info().
				Int("ratings", result.Count).
				Float64("mae", result.MAE).
				Float64("rmse", result.RMSE).
				Float64("coverage", result.Coverage).
				Msg("evaluated previous snapshot on new ratings")
		}
	}
	return s.install(ctx, res.Matrix, true, eval)
}

// install publishes a new snapshot: it clears the response cache, persists
// the averages, runs the neighbor diagnostic and records the status.
func (s *MatrixService) install(ctx context.Context, m *algorithms.RatingMatrix, incremental bool, eval *algorithms.EvaluationResult) error {
	if s.cache != nil {
		s.cache.InvalidateCache("matrix refresh")
	}

	snapshotVersion, err := s.persist(ctx, m)
	if err != nil {
		s.recordError(err)
		return err
	}

	diag := s.diagnose(ctx, m)

	s.mu.Lock()
	defer s.mu.Unlock()
	if eval == nil && incremental {
		eval = s.status.Evaluation
	}
	s.status = MatrixStatus{
		LastRefresh:     time.Now(),
		MatrixVersion:   m.Version(),
		SnapshotVersion: snapshotVersion,
		Users:           len(m.Users()),
		Items:           len(m.Items()),
		Ratings:         m.NumRatings(),
		Refreshes:       s.status.Refreshes + 1,
		Incremental:     incremental,
		Neighbors:       diag,
		Evaluation:      eval,
	}
	return nil
}

// diagnose runs the neighbor diagnostic. Failures are logged only.
func (s *MatrixService) diagnose(ctx context.Context, m *algorithms.RatingMatrix) *algorithms.NeighborDiagnostics {
	if s.analyzer == nil {
		return nil
	}
	d, err := s.analyzer.DiagnoseNeighbors(ctx, m, s.config.DiagnosticSample)
	if err != nil {
		s.logger.Warn().Err(err).Msg("neighbor diagnostic failed")
		return nil
	}
	if d.InvalidUsers > 0 {
		s.logger.Info().
			Int("sampled", d.SampledUsers).
			Int("invalid", d.InvalidUsers).
			Float64("avg_similarity", d.AvgSimilarity).
			Float64("avg_coverage", d.AvgCoverage).
			Msg("weak neighbor sets on current snapshot")
	}
	return &d
}

// persist saves the averages under the next snapshot version and prunes
// old versions. It returns the saved version, or 0 without a store.
func (s *MatrixService) persist(ctx context.Context, m *algorithms.RatingMatrix) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	version := 1
	if latest, ok := s.store.LatestVersion(AveragesSnapshotName); ok {
		version = latest + 1
	}
	meta := storage.SnapshotMetadata{
		BuiltAt:     m.BuiltAt(),
		UserCount:   len(m.Users()),
		ItemCount:   len(m.Items()),
		RatingCount: m.NumRatings(),
	}
	if err := s.store.Save(ctx, AveragesSnapshotName, version, m.Averages(), meta); err != nil {
		return 0, fmt.Errorf("save averages snapshot: %w", err)
	}

	removed, err := s.store.Prune(ctx, AveragesSnapshotName, s.config.Keep)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune old snapshots")
	}
	s.logger.Info().
		Int("snapshot_version", version).
		Uint64("matrix_version", m.Version()).
		Int("pruned", removed).
		Msg("saved matrix averages snapshot")
	return version, nil
}

// logLastSnapshot reports the snapshot left by a previous run.
func (s *MatrixService) logLastSnapshot(ctx context.Context) {
	if s.store == nil {
		return
	}
	var averages algorithms.Averages
	meta, err := s.store.Load(ctx, AveragesSnapshotName, 0, &averages)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("previous averages snapshot unreadable")
		return
	}
	s.logger.Info().
		Int("snapshot_version", meta.Version).
		Time("built_at", meta.BuiltAt).
		Int("users", meta.UserCount).
		Int("items", meta.ItemCount).
		Float64("global_average", averages.Global).
		Msg("found previous averages snapshot")
}

func (s *MatrixService) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.status.LastError = ""
		return
	}
	s.status.LastError = err.Error()
}

// Status returns the last refresh outcome.
func (s *MatrixService) Status() MatrixStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *MatrixService) String() string {
	return "matrix-refresh"
}
