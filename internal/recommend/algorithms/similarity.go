// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/recipewise/internal/cache"
	"github.com/tomtom215/recipewise/internal/metrics"
)

// Metric names a similarity function.
type Metric string

const (
	MetricCosine         Metric = "cosine"
	MetricPearson        Metric = "pearson"
	MetricJaccard        Metric = "jaccard"
	MetricAdjustedCosine Metric = "adjusted_cosine"
	MetricEuclidean      Metric = "euclidean"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricCosine, MetricPearson, MetricJaccard, MetricAdjustedCosine, MetricEuclidean:
		return m, nil
	default:
		return "", fmt.Errorf("unknown similarity metric %q", s)
	}
}

// Kind distinguishes user-user from item-item similarity.
type Kind uint8

const (
	KindUser Kind = iota
	KindItem
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindItem {
		return "item"
	}
	return "user"
}

// Candidate is a potential neighbor with its similarity to the target.
type Candidate struct {
	ID          int64
	Similarity  float64
	CommonItems int
}

type simKey struct {
	version uint64
	kind    Kind
	metric  Metric
	a, b    int64
}

type simEntry struct {
	similarity float64
	common     int
}

// parallelThreshold is the candidate count above which batch similarity
// is computed by a worker pool.
const parallelThreshold = 256

// SimilarityCalculator computes pairwise similarities over a rating matrix
// snapshot. Results are memoized per (pair, metric, kind) and dropped when
// a snapshot with a different version is seen.
type SimilarityCalculator struct {
	memo       *cache.Cache[simKey, simEntry]
	version    atomic.Uint64
	numWorkers int
}

// NewSimilarityCalculator creates a calculator whose memo holds at most
// size entries.
func NewSimilarityCalculator(size int) *SimilarityCalculator {
	if size <= 0 {
		size = 100000
	}
	return &SimilarityCalculator{
		memo:       cache.New[simKey, simEntry](size, 0),
		numWorkers: 4,
	}
}

// Invalidate drops all memoized similarities.
func (c *SimilarityCalculator) Invalidate(reason string) {
	c.memo.Invalidate(reason)
}

// MemoStats returns the memo's cache statistics.
func (c *SimilarityCalculator) MemoStats() cache.Stats {
	return c.memo.GetStats()
}

// observe clears the memo when a new snapshot version shows up.
func (c *SimilarityCalculator) observe(m *RatingMatrix) {
	for {
		cur := c.version.Load()
		if cur == m.version {
			return
		}
		if c.version.CompareAndSwap(cur, m.version) {
			c.memo.Clear()
			return
		}
	}
}

// UserSimilarity returns the similarity of two users over their co-rated
// recipes.
func (c *SimilarityCalculator) UserSimilarity(m *RatingMatrix, a, b int64, metric Metric) float64 {
	return c.pair(m, KindUser, a, b, metric).similarity
}

// ItemSimilarity returns the similarity of two recipes over their common
// raters.
func (c *SimilarityCalculator) ItemSimilarity(m *RatingMatrix, a, b int64, metric Metric) float64 {
	return c.pair(m, KindItem, a, b, metric).similarity
}

// pair computes or recalls the similarity of a and b. Keys are ordered so
// sim(a, b) and sim(b, a) share one entry.
func (c *SimilarityCalculator) pair(m *RatingMatrix, kind Kind, a, b int64, metric Metric) simEntry {
	c.observe(m)

	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	key := simKey{version: m.version, kind: kind, metric: metric, a: lo, b: hi}
	if e, ok := c.memo.Get(key); ok {
		metrics.RecordCacheAccess("similarity", true)
		return e
	}
	metrics.RecordCacheAccess("similarity", false)

	e := computePair(m, kind, lo, hi, metric)
	c.memo.Set(key, e)
	return e
}

// computePair computes a similarity without the memo.
func computePair(m *RatingMatrix, kind Kind, a, b int64, metric Metric) simEntry {
	var va, vb map[int64]float64
	var center func(int64) float64

	if kind == KindUser {
		va, vb = m.byUser[a], m.byUser[b]
		// Adjusted cosine between users centers on each recipe's mean.
		center = func(item int64) float64 { return m.itemAvg[item] }
	} else {
		va, vb = m.byItem[a], m.byItem[b]
		// Adjusted cosine between recipes centers on each user's mean.
		center = func(user int64) float64 { return m.userAvg[user] }
	}

	sim, common := vectorSimilarity(va, vb, metric, center)
	return simEntry{similarity: sim, common: common}
}

// vectorSimilarity computes the similarity of two sparse rating vectors.
// It returns 0 without shared keys; Pearson and adjusted cosine need at
// least two.
func vectorSimilarity(a, b map[int64]float64, metric Metric, center func(int64) float64) (float64, int) {
	if len(b) < len(a) {
		a, b = b, a
	}
	shared := make([]int64, 0, len(a))
	for k := range a {
		if _, ok := b[k]; ok {
			shared = append(shared, k)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })
	n := len(shared)

	if n < 1 {
		return 0, 0
	}

	var sim float64
	switch metric {
	case MetricCosine:
		sim = cosineOver(a, b, shared)
	case MetricPearson:
		if n < 2 {
			return 0, n
		}
		sim = pearsonOver(a, b, shared)
	case MetricJaccard:
		union := len(a) + len(b) - n
		if union > 0 {
			sim = float64(n) / float64(union)
		}
	case MetricAdjustedCosine:
		if n < 2 {
			return 0, n
		}
		sim = adjustedCosineOver(a, b, shared, center)
	case MetricEuclidean:
		var sq float64
		for _, k := range shared {
			d := a[k] - b[k]
			sq += d * d
		}
		sim = 1 / (1 + math.Sqrt(sq))
	default:
		sim = cosineOver(a, b, shared)
	}

	if math.IsNaN(sim) {
		return 0, n
	}
	lo := -1.0
	if metric == MetricJaccard || metric == MetricEuclidean {
		lo = 0
	}
	return math.Max(lo, math.Min(1, sim)), n
}

func cosineOver(a, b map[int64]float64, shared []int64) float64 {
	var dot, normA, normB float64
	for _, k := range shared {
		dot += a[k] * b[k]
		normA += a[k] * a[k]
		normB += b[k] * b[k]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func pearsonOver(a, b map[int64]float64, shared []int64) float64 {
	var sumA, sumB float64
	for _, k := range shared {
		sumA += a[k]
		sumB += b[k]
	}
	meanA := sumA / float64(len(shared))
	meanB := sumB / float64(len(shared))

	var num, denA, denB float64
	for _, k := range shared {
		diffA := a[k] - meanA
		diffB := b[k] - meanB
		num += diffA * diffB
		denA += diffA * diffA
		denB += diffB * diffB
	}
	if denA == 0 || denB == 0 {
		return 0
	}
	return num / (math.Sqrt(denA) * math.Sqrt(denB))
}

func adjustedCosineOver(a, b map[int64]float64, shared []int64, center func(int64) float64) float64 {
	var num, denA, denB float64
	for _, k := range shared {
		mu := center(k)
		diffA := a[k] - mu
		diffB := b[k] - mu
		num += diffA * diffB
		denA += diffA * diffA
		denB += diffB * diffB
	}
	if denA == 0 || denB == 0 {
		return 0
	}
	return num / (math.Sqrt(denA) * math.Sqrt(denB))
}

// SimilarUsers returns every user sharing at least minCommon rated recipes
// with target and a positive similarity, sorted by similarity descending.
func (c *SimilarityCalculator) SimilarUsers(ctx context.Context, m *RatingMatrix, target int64, metric Metric, minCommon int) ([]Candidate, error) {
	// Only users who co-rated something can have a non-zero similarity.
	others := make(map[int64]struct{})
	for item := range m.byUser[target] {
		for user := range m.byItem[item] {
			if user != target {
				others[user] = struct{}{}
			}
		}
	}
	return c.batch(ctx, m, KindUser, target, sortedKeys(others), metric, minCommon)
}

// SimilarItems returns every recipe sharing at least minCommon raters with
// target and a positive similarity, sorted by similarity descending.
func (c *SimilarityCalculator) SimilarItems(ctx context.Context, m *RatingMatrix, target int64, metric Metric, minCommon int) ([]Candidate, error) {
	others := make(map[int64]struct{})
	for user := range m.byItem[target] {
		for item := range m.byUser[user] {
			if item != target {
				others[item] = struct{}{}
			}
		}
	}
	return c.batch(ctx, m, KindItem, target, sortedKeys(others), metric, minCommon)
}

// batch scores ids against target, in parallel for large sets.
func (c *SimilarityCalculator) batch(ctx context.Context, m *RatingMatrix, kind Kind, target int64, ids []int64, metric Metric, minCommon int) ([]Candidate, error) {
	if minCommon < 1 {
		minCommon = 1
	}

	keep := func(id int64, e simEntry) (Candidate, bool) {
		if e.similarity <= 0 || e.common < minCommon {
			return Candidate{}, false
		}
		return Candidate{ID: id, Similarity: e.similarity, CommonItems: e.common}, true
	}

	var result []Candidate
	if len(ids) < parallelThreshold || c.numWorkers <= 1 {
		result = make([]Candidate, 0, len(ids))
		for i, id := range ids {
			if i%64 == 0 && ContextCancelled(ctx) {
				return nil, ctx.Err()
			}
			if cand, ok := keep(id, c.pair(m, kind, target, id, metric)); ok {
				result = append(result, cand)
			}
		}
	} else {
		var wg sync.WaitGroup
		var mu sync.Mutex
		chunkSize := (len(ids) + c.numWorkers - 1) / c.numWorkers

		for w := 0; w < c.numWorkers; w++ {
			start := w * chunkSize
			end := start + chunkSize
			if end > len(ids) {
				end = len(ids)
			}
			if start >= end {
				break
			}

			wg.Add(1)
			go func(chunk []int64) {
				defer wg.Done()

				local := make([]Candidate, 0, len(chunk))
				for _, id := range chunk {
					if ContextCancelled(ctx) {
						return
					}
					if cand, ok := keep(id, c.pair(m, kind, target, id, metric)); ok {
						local = append(local, cand)
					}
				}

				mu.Lock()
				result = append(result, local...)
				mu.Unlock()
			}(ids[start:end])
		}

		wg.Wait()
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
	}

	sortCandidates(result)
	return result, nil
}

// sortCandidates sorts by similarity descending, then id ascending.
func sortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Similarity != cands[j].Similarity {
			return cands[i].Similarity > cands[j].Similarity
		}
		return cands[i].ID < cands[j].ID
	})
}
