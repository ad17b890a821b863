// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy names for neighbor selection.
const (
	StrategyTopK      = "top_k"
	StrategyThreshold = "threshold"
	StrategyHybrid    = "hybrid"
)

// Neighbor weighting constants.
const (
	maxCommonBonus    = 0.2
	commonBonusFactor = 0.05
	weakNeighborDecay = 0.8
)

// Adaptive selection boundaries.
const (
	newUserRatings    = 10
	activeUserRatings = 100
)

// Minimums used by ValidateNeighbors.
const (
	minReportSimilarity  = 0.2
	minReportCommonItems = 2.0
	minReportCoverage    = 0.5
)

// Neighbor is a selected neighbor with its prediction weight.
type Neighbor struct {
	ID          int64
	Similarity  float64
	CommonItems int
	Weight      float64
}

// NeighborConfig controls a single selection.
type NeighborConfig struct {
	Strategy           string
	MaxNeighbors       int
	MinSimilarity      float64
	MinCommonItems     int
	DiversityThreshold float64
}

// DefaultNeighborConfig returns the hybrid strategy with 50 neighbors.
func DefaultNeighborConfig() NeighborConfig {
	return NeighborConfig{
		Strategy:           StrategyHybrid,
		MaxNeighbors:       50,
		MinSimilarity:      0.1,
		MinCommonItems:     2,
		DiversityThreshold: 1,
	}
}

// Validate checks the configuration.
func (c NeighborConfig) Validate() error {
	switch c.Strategy {
	case StrategyTopK, StrategyThreshold, StrategyHybrid:
	default:
		return fmt.Errorf("unknown neighbor strategy %q", c.Strategy)
	}
	if c.MaxNeighbors < 1 {
		return fmt.Errorf("max neighbors must be positive, got %d", c.MaxNeighbors)
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return fmt.Errorf("min similarity must be in [-1, 1], got %f", c.MinSimilarity)
	}
	return nil
}

// AdaptiveConfig adjusts base for a user's activity level. Users with few
// ratings get a lower floor and more neighbors; very active users get a
// higher floor and fewer. Recent sentiment nudges the floor by 10%.
func AdaptiveConfig(base NeighborConfig, ratingCount int, recentAvg float64) NeighborConfig {
	cfg := base

	switch {
	case ratingCount < newUserRatings:
		cfg.MinSimilarity = base.MinSimilarity * 0.5
		cfg.MaxNeighbors = int(math.Round(float64(base.MaxNeighbors) * 1.5))
	case ratingCount > activeUserRatings:
		cfg.MinSimilarity = base.MinSimilarity * 1.5
		cfg.MaxNeighbors = int(math.Round(float64(base.MaxNeighbors) * 0.7))
	}

	switch {
	case recentAvg >= 4:
		cfg.MinSimilarity *= 0.9
	case recentAvg > 0 && recentAvg <= 2:
		cfg.MinSimilarity *= 1.1
	}

	if cfg.MaxNeighbors < 1 {
		cfg.MaxNeighbors = 1
	}
	if cfg.MinSimilarity > 1 {
		cfg.MinSimilarity = 1
	}
	return cfg
}

// SelectNeighbors picks a bounded neighbor set from candidates sorted by
// similarity descending and assigns each one a weight.
func SelectNeighbors(candidates []Candidate, cfg NeighborConfig) []Neighbor {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sortCandidates(sorted)

	picked := sorted
	if cfg.Strategy != StrategyTopK {
		picked = aboveThreshold(sorted, cfg.MinSimilarity)
	}

	// Every strategy, threshold included, is capped at MaxNeighbors.
	if cfg.MaxNeighbors > 0 && len(picked) > cfg.MaxNeighbors {
		picked = picked[:cfg.MaxNeighbors]
	}

	neighbors := make([]Neighbor, len(picked))
	for i, c := range picked {
		neighbors[i] = Neighbor{
			ID:          c.ID,
			Similarity:  c.Similarity,
			CommonItems: c.CommonItems,
			Weight:      NeighborWeight(c.Similarity, c.CommonItems, cfg.MinSimilarity),
		}
	}
	return neighbors
}

func aboveThreshold(sorted []Candidate, minSim float64) []Candidate {
	out := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		if c.Similarity >= minSim {
			out = append(out, c)
		}
	}
	return out
}

// NeighborWeight scales a similarity by a log-scaled common-item bonus
// (at most +20%) and decays neighbors below twice the similarity floor.
func NeighborWeight(similarity float64, common int, minSimilarity float64) float64 {
	bonus := math.Min(maxCommonBonus, math.Log1p(float64(common))*commonBonusFactor)
	w := similarity * (1 + bonus)
	if minSimilarity > 0 && similarity < 2*minSimilarity {
		w *= weakNeighborDecay
	}
	return w
}

// TimeDecayWeights scales user-neighbor weights by how recently the shared
// recipes were rated. A neighbor whose shared ratings all fall within
// window of now keeps its weight; one with none keeps half.
func TimeDecayWeights(neighbors []Neighbor, m *RatingMatrix, target int64, now time.Time, window time.Duration) []Neighbor {
	out := make([]Neighbor, len(neighbors))
	copy(out, neighbors)

	cutoff := now.Add(-window).Unix()
	targetRow := m.byUser[target]
	for i := range out {
		shared, recent := 0, 0
		for item := range m.byUser[out[i].ID] {
			if _, ok := targetRow[item]; !ok {
				continue
			}
			shared++
			if at, ok := m.ratedAt[out[i].ID][item]; ok && at >= cutoff {
				recent++
			}
		}
		density := 0.0
		if shared > 0 {
			density = float64(recent) / float64(shared)
		}
		out[i].Weight *= 0.5 + 0.5*density
	}
	return out
}

// PairSimilarity returns the similarity between two neighbor candidates.
type PairSimilarity func(a, b int64) float64

// SelectDiverse greedily picks up to limit candidates, skipping any whose
// similarity to an already chosen one exceeds threshold.
func SelectDiverse(candidates []Candidate, limit int, threshold float64, sim PairSimilarity) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sortCandidates(sorted)

	chosen := make([]Candidate, 0, limit)
	for _, c := range sorted {
		if limit > 0 && len(chosen) >= limit {
			break
		}
		redundant := false
		for _, prev := range chosen {
			if sim(c.ID, prev.ID) > threshold {
				redundant = true
				break
			}
		}
		if !redundant {
			chosen = append(chosen, c)
		}
	}
	return chosen
}

// NeighborReport is a diagnostic summary of a neighbor set.
type NeighborReport struct {
	AvgSimilarity  float64  `json:"avg_similarity"`
	AvgCommonItems float64  `json:"avg_common_items"`
	Coverage       float64  `json:"coverage"`
	Issues         []string `json:"issues,omitempty"`
	Valid          bool     `json:"valid"`
}

// ValidateNeighbors reports the quality of a user-neighbor set. Coverage is
// the fraction of the target's rated recipes that at least one neighbor
// also rated.
func ValidateNeighbors(neighbors []Neighbor, m *RatingMatrix, target int64) NeighborReport {
	report := NeighborReport{}
	if len(neighbors) == 0 {
		report.Issues = append(report.Issues, "no neighbors selected")
		return report
	}

	var simSum, commonSum float64
	for _, n := range neighbors {
		simSum += n.Similarity
		commonSum += float64(n.CommonItems)
	}
	report.AvgSimilarity = simSum / float64(len(neighbors))
	report.AvgCommonItems = commonSum / float64(len(neighbors))

	targetRow := m.byUser[target]
	if len(targetRow) > 0 {
		touched := 0
		for item := range targetRow {
			for _, n := range neighbors {
				if _, ok := m.byUser[n.ID][item]; ok {
					touched++
					break
				}
			}
		}
		report.Coverage = float64(touched) / float64(len(targetRow))
	}

	if report.AvgSimilarity < minReportSimilarity {
		report.Issues = append(report.Issues, fmt.Sprintf("average similarity %.3f below %.2f", report.AvgSimilarity, minReportSimilarity))
	}
	if report.AvgCommonItems < minReportCommonItems {
		report.Issues = append(report.Issues, fmt.Sprintf("average common items %.2f below %.0f", report.AvgCommonItems, minReportCommonItems))
	}
	if report.Coverage < minReportCoverage {
		report.Issues = append(report.Issues, fmt.Sprintf("coverage %.2f below %.2f", report.Coverage, minReportCoverage))
	}
	report.Valid = len(report.Issues) == 0
	return report
}

// NeighborDiagnostics aggregates ValidateNeighbors reports over a sample of
// users.
type NeighborDiagnostics struct {
	SampledUsers   int            `json:"sampled_users"`
	InvalidUsers   int            `json:"invalid_users"`
	AvgSimilarity  float64        `json:"avg_similarity"`
	AvgCommonItems float64        `json:"avg_common_items"`
	AvgCoverage    float64        `json:"avg_coverage"`
	Issues         map[string]int `json:"issues,omitempty"`
}

// issueKind trims the measured value off a report issue so counts group by
// kind.
func issueKind(issue string) string {
	for _, kind := range []string{"no neighbors", "average similarity", "average common items", "coverage"} {
		if strings.HasPrefix(issue, kind) {
			return kind
		}
	}
	return issue
}
