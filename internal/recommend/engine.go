// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recipewise/internal/cache"
	"github.com/tomtom215/recipewise/internal/logging"
	"github.com/tomtom215/recipewise/internal/metrics"
)

// Engine coordinates the scoring lanes and produces final recommendations.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	repo   Repository

	// Registered lanes and post-processing
	lanes     []Lane
	rerankers []Reranker
	ranker    Ranker
	coldStart ColdStarter
	similar   SimilarFinder
	laneMu    sync.RWMutex

	// responses caches full results; recent remembers what each user was
	// shown last, for temporal diversity.
	responses *cache.Cache[string, *Result]
	recent    *cache.Cache[int64, []int64]

	// Counters
	requestCount   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	errorCount     atomic.Int64
	coldStartCount atomic.Int64
	laneFailures   sync.Map // lane name -> *atomic.Int64
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, repo Repository, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if repo == nil {
		return nil, ErrNoRepository
	}

	e := &Engine{
		config:    cfg,
		logger:    logger.With().Str("component", "recommend").Logger(),
		repo:      repo,
		responses: cache.New[string, *Result](cfg.Cache.MaxEntries, cfg.Cache.TTL),
		recent:    cache.New[int64, []int64](cfg.Cache.MaxEntries, 24*time.Hour),
	}
	e.responses.OnInvalidate(func(reason string) {
		e.logger.Debug().Str("reason", reason).Msg("response cache invalidated")
	})
	return e, nil
}

// RegisterLane adds a scoring lane. Lanes run concurrently per request.
func (e *Engine) RegisterLane(lane Lane) {
	e.laneMu.Lock()
	defer e.laneMu.Unlock()

	e.lanes = append(e.lanes, lane)
	e.logger.Info().Str("lane", lane.Name()).Msg("registered lane")
}

// RegisterReranker adds a reranker to the post-processing pipeline.
func (e *Engine) RegisterReranker(rr Reranker) {
	e.laneMu.Lock()
	defer e.laneMu.Unlock()

	e.rerankers = append(e.rerankers, rr)
	e.logger.Info().Str("reranker", rr.Name()).Msg("registered reranker")
}

// SetRanker sets the ranker that orders merged candidates.
func (e *Engine) SetRanker(r Ranker) {
	e.laneMu.Lock()
	defer e.laneMu.Unlock()
	e.ranker = r
}

// SetColdStart sets the cold-start handler.
func (e *Engine) SetColdStart(cs ColdStarter) {
	e.laneMu.Lock()
	defer e.laneMu.Unlock()
	e.coldStart = cs
}

// SetSimilarFinder sets the recipe-to-recipe similarity provider.
func (e *Engine) SetSimilarFinder(sf SimilarFinder) {
	e.laneMu.Lock()
	defer e.laneMu.Unlock()
	e.similar = sf
}

// GetRecommendations returns up to limit ranked, explained recommendations
// for rc.UserID. A limit of zero uses the configured default. Weight
// overrides take precedence over stored preferences, which take precedence
// over the configured defaults.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func (e *Engine) GetRecommendations(ctx context.Context, rc Context, limit int, overrides *LaneWeights) (*Result, error) {
	start := time.Now()
	res, err := e.recommend(ctx, rc, limit, overrides)
	metrics.RecordRecommendRequest("get_recommendations", time.Since(start), err)
	return res, err
}

// RefreshRecommendations is GetRecommendations with the previous result's
// recipe ids added to the exclusion list.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func (e *Engine) RefreshRecommendations(ctx context.Context, rc Context, previous []int64, limit int, overrides *LaneWeights) (*Result, error) {
	start := time.Now()

	exclude := make([]int64, 0, len(rc.ExcludeRecipeIDs)+len(previous))
	exclude = append(exclude, rc.ExcludeRecipeIDs...)
	exclude = append(exclude, previous...)
	rc.ExcludeRecipeIDs = exclude

	res, err := e.recommend(ctx, rc, limit, overrides)
	metrics.RecordRecommendRequest("refresh_recommendations", time.Since(start), err)
	return res, err
}

//nolint:gocritic // hugeParam: rc passed by value for immutability
func (e *Engine) recommend(ctx context.Context, rc Context, limit int, overrides *LaneWeights) (*Result, error) {
	start := time.Now()
	e.requestCount.Add(1)

	limit, err := e.resolveLimit(limit)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = logging.GenerateRequestID()
	}
	logger := e.logger.With().
		Str("request_id", requestID).
		Int64("user_id", rc.UserID).
		Int("limit", limit).
		Logger()
	logger.Debug().Msg("processing recommendation request")

	weights := e.resolveWeights(ctx, rc.UserID, overrides, logger)

	history, err := e.loadHistory(ctx, rc.UserID)
	if err != nil {
		e.errorCount.Add(1)
		return nil, fmt.Errorf("load history: %w", err)
	}
	exclude := history.exclusionSet(rc.ExcludeRecipeIDs)

	// Any new rating, favorite or view changes the key.
	cacheKey := cache.GenerateKey("recs", struct {
		Context Context
		Limit   int
		Weights LaneWeights
		History InteractionCounts
	}{rc, limit, weights, history.counts()})
	if resp := e.tryGetCachedResult(cacheKey, requestID, start, exclude); resp != nil {
		logger.Debug().Msg("cache hit")
		return resp, nil
	}

	meta := ResultMetadata{
		RequestID: requestID,
		UserID:    rc.UserID,
		Weights:   weights,
	}

	var recs []Recommendation
	coldStart := e.getColdStart()
	if coldStart != nil && coldStart.IsColdStart(history.counts()) {
		logger.Debug().
			Int("ratings", len(history.ratings)).
			Int("favorites", len(history.favorites)).
			Int("views", len(history.views)).
			Msg("serving cold-start user")
		recs, err = e.runColdStart(ctx, rc, limit, exclude)
		if err != nil {
			e.errorCount.Add(1)
			return nil, err
		}
		meta.ColdStart = true
		meta.Lanes = []string{"cold_start"}
	} else {
		req := LaneRequest{
			Context: rc,
			Weights: weights,
			Limit:   limit * e.config.Limits.CandidateMultiplier,
			Exclude: exclude,
		}
		var lanesUsed []string
		recs, lanesUsed = e.runLanes(ctx, req, logger)
		meta.Lanes = lanesUsed

		if len(recs) == 0 && coldStart != nil {
			logger.Debug().Msg("no lane produced candidates, using cold-start fallback")
			recs, err = e.runColdStart(ctx, rc, limit, exclude)
			if err != nil {
				e.errorCount.Add(1)
				return nil, err
			}
			meta.ColdStart = true
			meta.Lanes = append(meta.Lanes, "cold_start")
		} else {
			recs = e.rank(ctx, recs, weights)
		}
	}

	recs = e.applyRerankers(ctx, rc.UserID, recs)
	recs = truncate(filterExcluded(recs, exclude), limit)
	e.finalize(recs)

	meta.LatencyMS = time.Since(start).Milliseconds()
	meta.Timestamp = time.Now()
	result := &Result{Recommendations: recs, Metadata: meta}

	e.rememberShown(rc.UserID, recs)
	if e.config.Cache.Enabled {
		e.responses.Set(cacheKey, result)
	}

	logger.Debug().
		Int("returned", len(recs)).
		Bool("cold_start", meta.ColdStart).
		Int64("latency_ms", meta.LatencyMS).
		Msg("recommendation complete")

	return result, nil
}

// resolveLimit applies the default and maximum limits.
func (e *Engine) resolveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	case limit == 0:
		return e.config.Limits.DefaultLimit, nil
	case limit > e.config.Limits.MaxLimit:
		return e.config.Limits.MaxLimit, nil
	default:
		return limit, nil
	}
}

// resolveWeights layers override > stored preference > configured default.
// A failed preference lookup falls back to the defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) resolveWeights(ctx context.Context, userID int64, overrides *LaneWeights, logger zerolog.Logger) LaneWeights {
	weights := e.config.Weights

	pref, err := e.repo.Preference(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load stored lane weights, using defaults")
	} else if pref != nil {
		weights = weights.Overlay(pref.Weights)
	}

	if overrides != nil {
		weights = weights.Overlay(*overrides)
	}
	return weights
}

// tryGetCachedResult returns a copy of a cached result, if any, without
// recipes in exclude.
func (e *Engine) tryGetCachedResult(key, requestID string, start time.Time, exclude map[int64]struct{}) *Result {
	if !e.config.Cache.Enabled {
		return nil
	}

	cached, ok := e.responses.Get(key)
	metrics.RecordCacheAccess("response", ok)
	if !ok {
		e.cacheMisses.Add(1)
		return nil
	}
	e.cacheHits.Add(1)

	recs := filterExcluded(cached.Recommendations, exclude)
	if len(exclude) == 0 {
		recs = append([]Recommendation(nil), recs...)
	}
	meta := cached.Metadata
	meta.RequestID = requestID
	meta.CacheHit = true
	meta.LatencyMS = time.Since(start).Milliseconds()
	return &Result{Recommendations: recs, Metadata: meta}
}

// laneResult holds the output of a single lane.
type laneResult struct {
	name string
	recs []Recommendation
	err  error
}

// runLanes runs every registered lane concurrently and merges their
// candidates. A lane that fails or times out is logged and contributes
// nothing; it never fails the request.
//
//nolint:gocritic // hugeParam: req passed by value for immutability; logger by value for zerolog
func (e *Engine) runLanes(ctx context.Context, req LaneRequest, logger zerolog.Logger) ([]Recommendation, []string) {
	lanes := e.getLanes()
	results := make([]laneResult, len(lanes))

	// Lane goroutines always return nil so one failure never cancels the others.
	g, gctx := errgroup.WithContext(ctx)
	for i, lane := range lanes {
		g.Go(func() error {
			results[i] = e.runSingleLane(gctx, req, lane)
			return nil
		})
	}
	_ = g.Wait()

	lists := make([][]Recommendation, 0, len(results))
	used := make([]string, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			e.recordLaneFailure(r.name)
			logger.Warn().
				Str("lane", r.name).
				Err(r.err).
				Msg("lane failed, contributing no candidates")
			continue
		}
		if len(r.recs) == 0 {
			continue
		}
		used = append(used, r.name)
		lists = append(lists, r.recs)
	}

	return MergeByMax(lists...), used
}

// runSingleLane runs one lane under the configured lane timeout.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) runSingleLane(ctx context.Context, req LaneRequest, lane Lane) laneResult {
	result := laneResult{name: lane.Name()}

	laneCtx, cancel := context.WithTimeout(ctx, e.config.Limits.LaneTimeout)
	defer cancel()

	start := time.Now()
	recs, err := lane.Recommend(laneCtx, req)
	if err == nil && laneCtx.Err() != nil {
		err = laneCtx.Err()
	}
	metrics.RecordLane(result.name, time.Since(start), len(recs), err)

	if err != nil {
		result.err = err
		return result
	}

	for i := range recs {
		recs[i].Score = ClampScore(recs[i].Score)
		recs[i].Metadata = recs[i].Metadata.Clamp()
		if recs[i].Source == "" {
			recs[i].Source = result.name
		}
	}
	result.recs = truncate(recs, req.Limit)
	return result
}

// runColdStart delegates to the cold-start handler.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func (e *Engine) runColdStart(ctx context.Context, rc Context, limit int, exclude map[int64]struct{}) ([]Recommendation, error) {
	e.coldStartCount.Add(1)

	// Ask for extra candidates so exclusions do not starve the result.
	recs, err := e.getColdStart().Recommend(ctx, rc, limit+len(exclude))
	if err != nil {
		return nil, fmt.Errorf("cold start: %w", err)
	}
	for i := range recs {
		recs[i].Score = ClampScore(recs[i].Score)
		recs[i].Metadata = recs[i].Metadata.Clamp()
	}
	return filterExcluded(recs, exclude), nil
}

// rank orders merged candidates with the configured ranker.
func (e *Engine) rank(ctx context.Context, recs []Recommendation, weights LaneWeights) []Recommendation {
	e.laneMu.RLock()
	ranker := e.ranker
	e.laneMu.RUnlock()

	if ranker == nil {
		SortByScore(recs)
		return recs
	}
	return ranker.Rank(ctx, recs, weights)
}

// applyRerankers applies post-processing rerankers to the ranked list.
func (e *Engine) applyRerankers(ctx context.Context, userID int64, recs []Recommendation) []Recommendation {
	e.laneMu.RLock()
	rerankers := e.rerankers
	e.laneMu.RUnlock()

	for _, rr := range rerankers {
		recs = rr.Rerank(ctx, userID, recs)
	}
	return recs
}

// finalize clamps scores and attaches explanations.
func (e *Engine) finalize(recs []Recommendation) {
	for i := range recs {
		recs[i].Score = ClampScore(recs[i].Score)
		recs[i].Metadata = recs[i].Metadata.Clamp()
		Explain(&recs[i], e.config.Explain.ReasonThreshold)
	}
}

// rememberShown records the recipe ids shown to a user, newest first.
func (e *Engine) rememberShown(userID int64, recs []Recommendation) {
	if len(recs) == 0 {
		return
	}
	window := e.config.Diversity.RecentWindow
	if window < 1 {
		return
	}

	prev, _ := e.recent.Get(userID)
	shown := make([]int64, 0, window)
	seen := make(map[int64]struct{}, window)
	for _, rec := range recs {
		if len(shown) == window {
			break
		}
		shown = append(shown, rec.RecipeID)
		seen[rec.RecipeID] = struct{}{}
	}
	for _, id := range prev {
		if len(shown) == window {
			break
		}
		if _, dup := seen[id]; !dup {
			shown = append(shown, id)
		}
	}
	e.recent.Set(userID, shown)
}

// RecentlyShown returns the recipe ids most recently shown to a user.
func (e *Engine) RecentlyShown(userID int64) []int64 {
	ids, _ := e.recent.Get(userID)
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// GetSimilarRecipes returns recipes similar to recipeID. Unknown ids
// return ErrRecipeNotFound.
func (e *Engine) GetSimilarRecipes(ctx context.Context, recipeID int64, limit int) ([]Recommendation, error) {
	start := time.Now()
	recs, err := e.getSimilarRecipes(ctx, recipeID, limit)
	metrics.RecordRecommendRequest("get_similar_recipes", time.Since(start), err)
	return recs, err
}

func (e *Engine) getSimilarRecipes(ctx context.Context, recipeID int64, limit int) ([]Recommendation, error) {
	limit, err := e.resolveLimit(limit)
	if err != nil {
		return nil, err
	}

	e.laneMu.RLock()
	sf := e.similar
	e.laneMu.RUnlock()
	if sf == nil {
		return nil, fmt.Errorf("similar recipe finder not set")
	}

	recs, err := sf.SimilarRecipes(ctx, recipeID, limit)
	if err != nil {
		return nil, fmt.Errorf("similar recipes for %d: %w", recipeID, err)
	}
	recs = truncate(recs, limit)
	e.finalize(recs)
	return recs, nil
}

// GetPopularRecipes returns the most popular visible recipes, optionally
// restricted to a category. It bypasses all scoring lanes.
func (e *Engine) GetPopularRecipes(ctx context.Context, limit int, category string) ([]Recommendation, error) {
	start := time.Now()
	recs, err := e.getPopularRecipes(ctx, limit, category)
	metrics.RecordRecommendRequest("get_popular_recipes", time.Since(start), err)
	return recs, err
}

func (e *Engine) getPopularRecipes(ctx context.Context, limit int, category string) ([]Recommendation, error) {
	limit, err := e.resolveLimit(limit)
	if err != nil {
		return nil, err
	}

	recipes, err := e.repo.PopularRecipes(ctx, limit, category)
	if err != nil {
		return nil, fmt.Errorf("popular recipes: %w", err)
	}

	recs := make([]Recommendation, 0, len(recipes))
	for i := range recipes {
		r := recipes[i]
		recs = append(recs, Recommendation{
			RecipeID: r.ID,
			Score:    ClampScore(r.AvgRating * 20),
			Reasons:  []string{ReasonPopular},
			Source:   SourcePopular,
			Recipe:   &r,
		})
	}
	recs = truncate(recs, limit)
	e.finalize(recs)
	return recs, nil
}

// InvalidateCache drops all cached results.
func (e *Engine) InvalidateCache(reason string) {
	e.responses.Invalidate(reason)
}

// recordLaneFailure increments the failure counter for a lane.
func (e *Engine) recordLaneFailure(name string) {
	v, _ := e.laneFailures.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// getLanes returns the registered lanes.
func (e *Engine) getLanes() []Lane {
	e.laneMu.RLock()
	defer e.laneMu.RUnlock()
	return e.lanes
}

func (e *Engine) getColdStart() ColdStarter {
	e.laneMu.RLock()
	defer e.laneMu.RUnlock()
	return e.coldStart
}

// Stats contains engine counters for observability.
type Stats struct {
	RequestCount   int64            `json:"request_count"`
	CacheHits      int64            `json:"cache_hits"`
	CacheMisses    int64            `json:"cache_misses"`
	CacheHitRate   float64          `json:"cache_hit_rate"`
	ErrorCount     int64            `json:"error_count"`
	ColdStartCount int64            `json:"cold_start_count"`
	Lanes          []string         `json:"lanes"`
	LaneFailures   map[string]int64 `json:"lane_failures"`
}

// GetStats returns the current engine counters.
func (e *Engine) GetStats() Stats {
	lanes := e.getLanes()
	names := make([]string, len(lanes))
	for i, l := range lanes {
		names[i] = l.Name()
	}

	failures := make(map[string]int64)
	e.laneFailures.Range(func(k, v any) bool {
		failures[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})

	return Stats{
		RequestCount:   e.requestCount.Load(),
		CacheHits:      e.cacheHits.Load(),
		CacheMisses:    e.cacheMisses.Load(),
		CacheHitRate:   e.responses.HitRate(),
		ErrorCount:     e.errorCount.Load(),
		ColdStartCount: e.coldStartCount.Load(),
		Lanes:          names,
		LaneFailures:   failures,
	}
}

// GetConfig returns a copy of the current configuration.
func (e *Engine) GetConfig() *Config {
	return e.config.Clone()
}
