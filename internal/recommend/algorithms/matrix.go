// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recipewise/internal/cache"
	"github.com/tomtom215/recipewise/internal/metrics"
	"github.com/tomtom215/recipewise/internal/recommend"
)

// Rating bounds enforced by the matrix.
const (
	MinRating = 1.0
	MaxRating = 5.0

	// FavoriteRating is the implicit rating of a favorite.
	FavoriteRating = 5.0
)

// RatingMatrix is an immutable sparse user x recipe rating snapshot with
// derived averages. It must not be modified after construction; use
// MatrixBuilder.Update to derive a new snapshot.
type RatingMatrix struct {
	version uint64
	builtAt time.Time

	users []int64
	items []int64

	// byUser maps user -> recipe -> rating; byItem is the transposed index.
	byUser map[int64]map[int64]float64
	byItem map[int64]map[int64]float64

	// ratedAt holds the rating time per user and recipe, in unix seconds.
	ratedAt map[int64]map[int64]int64

	userAvg   map[int64]float64
	itemAvg   map[int64]float64
	globalAvg float64
	sum       float64
	count     int
}

// Version returns the snapshot version. Versions increase monotonically
// per builder.
func (m *RatingMatrix) Version() uint64 { return m.version }

// BuiltAt returns when the snapshot was created.
func (m *RatingMatrix) BuiltAt() time.Time { return m.builtAt }

// Users returns the user ids in ascending order.
func (m *RatingMatrix) Users() []int64 { return m.users }

// Items returns the recipe ids in ascending order.
func (m *RatingMatrix) Items() []int64 { return m.items }

// NumRatings returns the number of known ratings.
func (m *RatingMatrix) NumRatings() int { return m.count }

// Rating returns the rating of user for item.
func (m *RatingMatrix) Rating(user, item int64) (float64, bool) {
	r, ok := m.byUser[user][item]
	return r, ok
}

// UserRatings returns the ratings of a user keyed by recipe. The map is
// shared with the snapshot and must not be modified.
func (m *RatingMatrix) UserRatings(user int64) map[int64]float64 {
	return m.byUser[user]
}

// ItemRatings returns the ratings of a recipe keyed by user. The map is
// shared with the snapshot and must not be modified.
func (m *RatingMatrix) ItemRatings(item int64) map[int64]float64 {
	return m.byItem[item]
}

// RatedAt returns when user rated item.
func (m *RatingMatrix) RatedAt(user, item int64) (time.Time, bool) {
	ts, ok := m.ratedAt[user][item]
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(ts, 0), true
}

// HasUser reports whether the user is in the matrix.
func (m *RatingMatrix) HasUser(user int64) bool {
	_, ok := m.byUser[user]
	return ok
}

// HasItem reports whether the recipe is in the matrix.
func (m *RatingMatrix) HasItem(item int64) bool {
	_, ok := m.byItem[item]
	return ok
}

// UserAverage returns the mean rating of a user.
func (m *RatingMatrix) UserAverage(user int64) (float64, bool) {
	avg, ok := m.userAvg[user]
	return avg, ok
}

// ItemAverage returns the mean rating of a recipe.
func (m *RatingMatrix) ItemAverage(item int64) (float64, bool) {
	avg, ok := m.itemAvg[item]
	return avg, ok
}

// GlobalAverage returns the mean of all ratings.
func (m *RatingMatrix) GlobalAverage() float64 { return m.globalAvg }

// Sparsity returns 1 - ratings / (users x items).
func (m *RatingMatrix) Sparsity() float64 {
	cells := len(m.users) * len(m.items)
	if cells == 0 {
		return 1
	}
	return 1 - float64(m.count)/float64(cells)
}

// Averages are the derived aggregates of a snapshot, in a form suitable
// for serialization.
type Averages struct {
	Version  uint64
	User     map[int64]float64
	Item     map[int64]float64
	Global   float64
	Sparsity float64
}

// Averages returns a copy of the snapshot's derived aggregates.
func (m *RatingMatrix) Averages() Averages {
	a := Averages{
		Version:  m.version,
		User:     make(map[int64]float64, len(m.userAvg)),
		Item:     make(map[int64]float64, len(m.itemAvg)),
		Global:   m.globalAvg,
		Sparsity: m.Sparsity(),
	}
	for k, v := range m.userAvg {
		a.User[k] = v
	}
	for k, v := range m.itemAvg {
		a.Item[k] = v
	}
	return a
}

// MatrixOptions selects which ratings enter a matrix.
type MatrixOptions struct {
	// MinUserRatings is the minimum number of ratings a user needs.
	MinUserRatings int

	// MinItemRatings is the minimum number of ratings a recipe needs among
	// qualifying users.
	MinItemRatings int

	// Since drops ratings older than this time. Zero keeps everything.
	Since time.Time
}

// DefaultMatrixOptions returns options that admit every rating.
func DefaultMatrixOptions() MatrixOptions {
	return MatrixOptions{MinUserRatings: 1, MinItemRatings: 1}
}

// BuildMatrix assembles a matrix snapshot from explicit ratings and
// favorites. A favorite counts as a rating of 5 unless the pair has an
// explicit rating. Users are filtered first, then recipes among the
// qualifying users' ratings. Returns recommend.ErrEmptyMatrix when nothing
// qualifies.
func BuildMatrix(ratings []recommend.Rating, favorites []recommend.Favorite, opts MatrixOptions, version uint64) (*RatingMatrix, error) {
	cells := collectCells(ratings, favorites, opts.Since)

	// Pass 1: qualifying users
	userCounts := make(map[int64]int)
	for key := range cells {
		userCounts[key.user]++
	}
	qualifiedUsers := make(map[int64]struct{}, len(userCounts))
	for user, n := range userCounts {
		if n >= opts.MinUserRatings {
			qualifiedUsers[user] = struct{}{}
		}
	}

	// Pass 2: qualifying items among qualifying users
	itemCounts := make(map[int64]int)
	for key := range cells {
		if _, ok := qualifiedUsers[key.user]; ok {
			itemCounts[key.item]++
		}
	}

	m := newEmptyMatrix(version)
	for key, c := range cells {
		if _, ok := qualifiedUsers[key.user]; !ok {
			continue
		}
		if itemCounts[key.item] < opts.MinItemRatings {
			continue
		}
		m.set(key.user, key.item, c.value, c.at)
	}

	if m.count == 0 {
		return nil, recommend.ErrEmptyMatrix
	}

	m.finalize()
	return m, nil
}

type cellKey struct {
	user, item int64
}

type cell struct {
	value    float64
	at       int64
	explicit bool
}

// collectCells merges explicit ratings and favorites into one cell per
// pair. The latest explicit rating wins; favorites only fill gaps.
func collectCells(ratings []recommend.Rating, favorites []recommend.Favorite, since time.Time) map[cellKey]cell {
	cells := make(map[cellKey]cell, len(ratings)+len(favorites))

	for _, r := range ratings {
		if r.Value < MinRating || r.Value > MaxRating {
			continue
		}
		if !since.IsZero() && r.Timestamp.Before(since) {
			continue
		}
		key := cellKey{r.UserID, r.RecipeID}
		at := r.Timestamp.Unix()
		if cur, ok := cells[key]; ok && cur.at > at {
			continue
		}
		cells[key] = cell{value: r.Value, at: at, explicit: true}
	}

	for _, f := range favorites {
		if !since.IsZero() && f.CreatedAt.Before(since) {
			continue
		}
		key := cellKey{f.UserID, f.RecipeID}
		if _, ok := cells[key]; ok {
			continue
		}
		cells[key] = cell{value: FavoriteRating, at: f.CreatedAt.Unix()}
	}

	return cells
}

func newEmptyMatrix(version uint64) *RatingMatrix {
	return &RatingMatrix{
		version: version,
		builtAt: time.Now(),
		byUser:  make(map[int64]map[int64]float64),
		byItem:  make(map[int64]map[int64]float64),
		ratedAt: make(map[int64]map[int64]int64),
		userAvg: make(map[int64]float64),
		itemAvg: make(map[int64]float64),
	}
}

// set stores a rating during construction.
func (m *RatingMatrix) set(user, item int64, value float64, at int64) {
	if m.byUser[user] == nil {
		m.byUser[user] = make(map[int64]float64)
		m.ratedAt[user] = make(map[int64]int64)
	}
	if m.byItem[item] == nil {
		m.byItem[item] = make(map[int64]float64)
	}
	if old, ok := m.byUser[user][item]; ok {
		m.sum -= old
		m.count--
	}
	m.byUser[user][item] = value
	m.byItem[item][user] = value
	m.ratedAt[user][item] = at
	m.sum += value
	m.count++
}

// finalize computes id lists and all averages.
func (m *RatingMatrix) finalize() {
	m.users = sortedKeys(m.byUser)
	m.items = sortedKeys(m.byItem)
	for user, ratings := range m.byUser {
		m.userAvg[user] = mean(ratings)
	}
	for item, ratings := range m.byItem {
		m.itemAvg[item] = mean(ratings)
	}
	// Re-sum in id order so identical inputs give bit-identical averages.
	m.sum = 0
	for _, user := range m.users {
		row := m.byUser[user]
		for _, item := range sortedKeys(row) {
			m.sum += row[item]
		}
	}
	m.globalAvg = 0
	if m.count > 0 {
		m.globalAvg = m.sum / float64(m.count)
	}
}

// withRatings returns a new snapshot with the given ratings merged in.
// Only the maps of affected users and recipes are copied and only their
// averages are recomputed.
func (m *RatingMatrix) withRatings(ratings []recommend.Rating, version uint64) *RatingMatrix {
	next := &RatingMatrix{
		version: version,
		builtAt: time.Now(),
		byUser:  make(map[int64]map[int64]float64, len(m.byUser)),
		byItem:  make(map[int64]map[int64]float64, len(m.byItem)),
		ratedAt: make(map[int64]map[int64]int64, len(m.ratedAt)),
		userAvg: make(map[int64]float64, len(m.userAvg)),
		itemAvg: make(map[int64]float64, len(m.itemAvg)),
		sum:     m.sum,
		count:   m.count,
	}
	for k, v := range m.byUser {
		next.byUser[k] = v
	}
	for k, v := range m.byItem {
		next.byItem[k] = v
	}
	for k, v := range m.ratedAt {
		next.ratedAt[k] = v
	}
	for k, v := range m.userAvg {
		next.userAvg[k] = v
	}
	for k, v := range m.itemAvg {
		next.itemAvg[k] = v
	}

	copiedUsers := make(map[int64]struct{})
	copiedItems := make(map[int64]struct{})
	for _, r := range ratings {
		if r.Value < MinRating || r.Value > MaxRating {
			continue
		}
		if _, ok := copiedUsers[r.UserID]; !ok {
			next.byUser[r.UserID] = copyRow(next.byUser[r.UserID])
			next.ratedAt[r.UserID] = copyTimes(next.ratedAt[r.UserID])
			copiedUsers[r.UserID] = struct{}{}
		}
		if _, ok := copiedItems[r.RecipeID]; !ok {
			next.byItem[r.RecipeID] = copyRow(next.byItem[r.RecipeID])
			copiedItems[r.RecipeID] = struct{}{}
		}
		next.set(r.UserID, r.RecipeID, r.Value, r.Timestamp.Unix())
	}

	for user := range copiedUsers {
		next.userAvg[user] = mean(next.byUser[user])
	}
	for item := range copiedItems {
		next.itemAvg[item] = mean(next.byItem[item])
	}
	next.users = sortedKeys(next.byUser)
	next.items = sortedKeys(next.byItem)
	if next.count > 0 {
		next.globalAvg = next.sum / float64(next.count)
	}
	return next
}

func copyRow(row map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	return out
}

func copyTimes(row map[int64]int64) map[int64]int64 {
	out := make(map[int64]int64, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// mean averages values in key order.
func mean(values map[int64]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, k := range sortedKeys(values) {
		sum += values[k]
	}
	return sum / float64(len(values))
}

// RatingSource provides the raw records a matrix is built from.
// recommend.Repository satisfies it.
type RatingSource interface {
	Ratings(ctx context.Context, since time.Time) ([]recommend.Rating, error)
	Favorites(ctx context.Context, since time.Time) ([]recommend.Favorite, error)
}

const currentSnapshotKey = "current"

// MatrixBuilder builds rating matrix snapshots and keeps the current one in
// a TTL cache. Rebuilds and updates atomically replace the cached snapshot.
type MatrixBuilder struct {
	source   RatingSource
	opts     MatrixOptions
	lookback time.Duration
	logger   zerolog.Logger

	snapshots *cache.Cache[string, *RatingMatrix]
	buildMu   sync.Mutex
	version   atomic.Uint64
}

// NewMatrixBuilder creates a builder. A non-zero lookback overrides
// opts.Since relative to build time.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMatrixBuilder(source RatingSource, opts MatrixOptions, ttl, lookback time.Duration, logger zerolog.Logger) *MatrixBuilder {
	if opts.MinUserRatings < 1 {
		opts.MinUserRatings = 1
	}
	if opts.MinItemRatings < 1 {
		opts.MinItemRatings = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MatrixBuilder{
		source:    source,
		opts:      opts,
		lookback:  lookback,
		logger:    logger.With().Str("component", "rating_matrix").Logger(),
		snapshots: cache.New[string, *RatingMatrix](1, ttl),
	}
}

// Build fetches ratings and favorites and builds a fresh snapshot with
// opts. It does not touch the cached snapshot.
func (b *MatrixBuilder) Build(ctx context.Context, opts MatrixOptions) (*RatingMatrix, error) {
	start := time.Now()

	ratings, err := b.source.Ratings(ctx, opts.Since)
	if err != nil {
		return nil, fmt.Errorf("fetch ratings: %w", err)
	}
	favorites, err := b.source.Favorites(ctx, opts.Since)
	if err != nil {
		return nil, fmt.Errorf("fetch favorites: %w", err)
	}
	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	m, err := BuildMatrix(ratings, favorites, opts, b.version.Add(1))
	if err != nil {
		return nil, err
	}

	metrics.RecordMatrixBuild(time.Since(start), len(m.users), len(m.items), m.Sparsity(), m.version)
	b.logger.Info().
		Uint64("version", m.version).
		Int("users", len(m.users)).
		Int("items", len(m.items)).
		Int("ratings", m.count).
		Float64("sparsity", m.Sparsity()).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("built rating matrix")

	return m, nil
}

// Current returns the cached snapshot, rebuilding it when missing or
// expired. Concurrent callers share a single rebuild.
func (b *MatrixBuilder) Current(ctx context.Context) (*RatingMatrix, error) {
	if m, ok := b.snapshots.Get(currentSnapshotKey); ok {
		metrics.RecordCacheAccess("matrix", true)
		return m, nil
	}
	metrics.RecordCacheAccess("matrix", false)

	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	if m, ok := b.snapshots.Get(currentSnapshotKey); ok {
		return m, nil
	}
	return b.rebuildLocked(ctx)
}

// Refresh rebuilds the snapshot unconditionally and replaces the cached one.
func (b *MatrixBuilder) Refresh(ctx context.Context) (*RatingMatrix, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()
	return b.rebuildLocked(ctx)
}

func (b *MatrixBuilder) rebuildLocked(ctx context.Context) (*RatingMatrix, error) {
	opts := b.opts
	if b.lookback > 0 {
		opts.Since = time.Now().Add(-b.lookback)
	}

	m, err := b.Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	b.snapshots.Invalidate("rebuild")
	b.snapshots.Set(currentSnapshotKey, m)
	return m, nil
}

// Update merges new ratings into base and installs the result as the
// current snapshot. base itself is left unchanged.
func (b *MatrixBuilder) Update(base *RatingMatrix, ratings []recommend.Rating) *RatingMatrix {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()
	return b.updateLocked(base, ratings)
}

func (b *MatrixBuilder) updateLocked(base *RatingMatrix, ratings []recommend.Rating) *RatingMatrix {
	next := base.withRatings(ratings, b.version.Add(1))
	b.snapshots.Invalidate("incremental update")
	b.snapshots.Set(currentSnapshotKey, next)

	b.logger.Debug().
		Uint64("version", next.version).
		Int("new_ratings", len(ratings)).
		Msg("applied incremental matrix update")
	return next
}

// SyncResult describes the outcome of MatrixBuilder.Sync.
type SyncResult struct {
	// Base is the snapshot the ratings were merged into. It is nil when
	// Sync had to rebuild.
	Base *RatingMatrix

	// Matrix is the new current snapshot.
	Matrix *RatingMatrix

	// Ratings are the merged records, favorites included at FavoriteRating.
	Ratings []recommend.Rating
}

// Rebuilt reports whether Sync built a fresh snapshot instead of merging.
func (r *SyncResult) Rebuilt() bool {
	return r.Base == nil
}

// Unseen returns the merged ratings for (user, recipe) pairs the base
// snapshot did not contain. They form a held-out set for Evaluate against
// Base.
func (r *SyncResult) Unseen() []recommend.Rating {
	if r.Base == nil {
		return nil
	}
	out := make([]recommend.Rating, 0, len(r.Ratings))
	for _, rt := range r.Ratings {
		if _, ok := r.Base.Rating(rt.UserID, rt.RecipeID); !ok {
			out = append(out, rt)
		}
	}
	return out
}

// Sync merges ratings and favorites recorded since the current snapshot was
// built into a new snapshot. Without a cached snapshot it rebuilds. When
// nothing new arrived the current snapshot is returned unchanged.
func (b *MatrixBuilder) Sync(ctx context.Context) (*SyncResult, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	base, ok := b.snapshots.Get(currentSnapshotKey)
	if !ok {
		m, err := b.rebuildLocked(ctx)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Matrix: m}, nil
	}

	since := base.BuiltAt()
	ratings, err := b.source.Ratings(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch ratings: %w", err)
	}
	favorites, err := b.source.Favorites(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch favorites: %w", err)
	}

	explicit := make(map[[2]int64]struct{}, len(ratings))
	for _, r := range ratings {
		explicit[[2]int64{r.UserID, r.RecipeID}] = struct{}{}
	}
	for _, f := range favorites {
		if _, ok := explicit[[2]int64{f.UserID, f.RecipeID}]; ok {
			continue
		}
		if _, ok := base.Rating(f.UserID, f.RecipeID); ok {
			continue
		}
		ratings = append(ratings, recommend.Rating{UserID: f.UserID, RecipeID: f.RecipeID, Value: FavoriteRating, Timestamp: f.CreatedAt})
	}
	if len(ratings) == 0 {
		return &SyncResult{Base: base, Matrix: base}, nil
	}

	return &SyncResult{Base: base, Matrix: b.updateLocked(base, ratings), Ratings: ratings}, nil
}

// Invalidate drops the cached snapshot. The next Current call rebuilds.
func (b *MatrixBuilder) Invalidate(reason string) {
	b.snapshots.Invalidate(reason)
}

// OnInvalidate registers a hook fired whenever the snapshot is replaced
// or dropped.
func (b *MatrixBuilder) OnInvalidate(hook cache.InvalidationHook) {
	b.snapshots.OnInvalidate(hook)
}
