// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"math"
	"testing"
	"time"
)

func candidates(sims ...float64) []Candidate {
	out := make([]Candidate, len(sims))
	for i, s := range sims {
		out[i] = Candidate{ID: int64(i + 1), Similarity: s, CommonItems: 3}
	}
	return out
}

func TestSelectNeighbors(t *testing.T) {
	cands := candidates(0.9, 0.05, 0.5, 0.3, 0.15)

	tests := []struct {
		name    string
		cfg     NeighborConfig
		wantIDs []int64
	}{
		{"top_k", NeighborConfig{Strategy: StrategyTopK, MaxNeighbors: 2, MinSimilarity: 0.2}, []int64{1, 3}},
		{"threshold", NeighborConfig{Strategy: StrategyThreshold, MaxNeighbors: 10, MinSimilarity: 0.2}, []int64{1, 3, 4}},
		{"hybrid", NeighborConfig{Strategy: StrategyHybrid, MaxNeighbors: 2, MinSimilarity: 0.2}, []int64{1, 3}},
		{"threshold bounded", NeighborConfig{Strategy: StrategyThreshold, MaxNeighbors: 1, MinSimilarity: 0.1}, []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectNeighbors(cands, tt.cfg)
			if len(got) > tt.cfg.MaxNeighbors {
				t.Fatalf("len = %d exceeds max %d", len(got), tt.cfg.MaxNeighbors)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d (%+v)", len(got), len(tt.wantIDs), got)
			}
			for i, n := range got {
				if n.ID != tt.wantIDs[i] {
					t.Errorf("neighbor %d = %d, want %d", i, n.ID, tt.wantIDs[i])
				}
			}
		})
	}

	if got := SelectNeighbors(nil, DefaultNeighborConfig()); got != nil {
		t.Errorf("SelectNeighbors(nil) = %v, want nil", got)
	}
}

func TestNeighborWeight(t *testing.T) {
	tests := []struct {
		name   string
		sim    float64
		common int
		minSim float64
		want   float64
	}{
		{"no common items", 0.5, 0, 0.1, 0.5},
		{"small bonus", 0.5, 2, 0.1, 0.5 * (1 + math.Log1p(2)*0.05)},
		{"bonus capped at 20%", 0.5, 1000, 0.1, 0.6},
		{"weak neighbor decays", 0.15, 0, 0.1, 0.15 * 0.8},
		{"no floor no decay", 0.15, 0, 0, 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NeighborWeight(tt.sim, tt.common, tt.minSim)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("NeighborWeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdaptiveConfig(t *testing.T) {
	base := NeighborConfig{Strategy: StrategyHybrid, MaxNeighbors: 50, MinSimilarity: 0.2, MinCommonItems: 2}

	tests := []struct {
		name      string
		count     int
		recentAvg float64
		wantMin   float64
		wantMax   int
	}{
		{"new user", 5, 0, 0.1, 75},
		{"regular user", 50, 3, 0.2, 50},
		{"active user", 150, 3, 0.3, 35},
		{"positive mood", 50, 4.5, 0.18, 50},
		{"negative mood", 50, 1.5, 0.22, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdaptiveConfig(base, tt.count, tt.recentAvg)
			if math.Abs(got.MinSimilarity-tt.wantMin) > 1e-9 {
				t.Errorf("MinSimilarity = %v, want %v", got.MinSimilarity, tt.wantMin)
			}
			if got.MaxNeighbors != tt.wantMax {
				t.Errorf("MaxNeighbors = %d, want %d", got.MaxNeighbors, tt.wantMax)
			}
		})
	}
}

func TestSelectDiverse(t *testing.T) {
	cands := candidates(0.9, 0.8, 0.7)
	// 1 and 2 are near-duplicates of each other.
	sim := func(a, b int64) float64 {
		if (a == 1 && b == 2) || (a == 2 && b == 1) {
			return 0.99
		}
		return 0.1
	}

	got := SelectDiverse(cands, 3, 0.95, sim)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("SelectDiverse() = %+v, want [1 3]", got)
	}

	got = SelectDiverse(cands, 1, 0.95, sim)
	if len(got) != 1 {
		t.Errorf("SelectDiverse(limit=1) returned %d", len(got))
	}
}

func TestTimeDecayWeights(t *testing.T) {
	m := scenarioMatrix(t)
	neighbors := []Neighbor{{ID: userB, Similarity: 0.9, Weight: 1}}

	// Scenario ratings are dated January 2026.
	recent := TimeDecayWeights(neighbors, m, userA, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 7*24*time.Hour)
	if recent[0].Weight != 1 {
		t.Errorf("recent weight = %v, want 1", recent[0].Weight)
	}

	stale := TimeDecayWeights(neighbors, m, userA, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 7*24*time.Hour)
	if stale[0].Weight != 0.5 {
		t.Errorf("stale weight = %v, want 0.5", stale[0].Weight)
	}
	if neighbors[0].Weight != 1 {
		t.Error("TimeDecayWeights mutated its input")
	}
}

func TestValidateNeighbors(t *testing.T) {
	m := scenarioMatrix(t)

	good := ValidateNeighbors([]Neighbor{{ID: userB, Similarity: 0.99, CommonItems: 2}}, m, userA)
	if !good.Valid || good.Coverage != 1 || len(good.Issues) != 0 {
		t.Errorf("report = %+v, want valid with full coverage", good)
	}

	weak := ValidateNeighbors([]Neighbor{{ID: userC, Similarity: 0.1, CommonItems: 1}}, m, userA)
	if weak.Valid {
		t.Error("weak neighbor set reported valid")
	}
	if len(weak.Issues) != 3 {
		t.Errorf("issues = %v, want 3", weak.Issues)
	}

	empty := ValidateNeighbors(nil, m, userA)
	if empty.Valid || len(empty.Issues) == 0 {
		t.Errorf("empty report = %+v", empty)
	}
}

func TestNeighborConfig_Validate(t *testing.T) {
	if err := DefaultNeighborConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := DefaultNeighborConfig()
	bad.Strategy = "random"
	if err := bad.Validate(); err == nil {
		t.Error("unknown strategy accepted")
	}
	bad = DefaultNeighborConfig()
	bad.MaxNeighbors = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero max neighbors accepted")
	}
}
