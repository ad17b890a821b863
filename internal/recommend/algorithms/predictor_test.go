// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// crafted: user 1 rates 10=5, 11=3; user 2 mirrors user 1 and rates 12=4;
// user 3 is one point lower everywhere.
func craftedMatrix(t *testing.T) *RatingMatrix {
	t.Helper()
	m, err := BuildMatrix(ratingsOf(
		[3]float64{1, 10, 5}, [3]float64{1, 11, 3},
		[3]float64{2, 10, 5}, [3]float64{2, 11, 3}, [3]float64{2, 12, 4},
		[3]float64{3, 10, 4}, [3]float64{3, 11, 2}, [3]float64{3, 12, 3},
	), nil, DefaultMatrixOptions(), 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	return m
}

func newTestPredictor(t *testing.T, method string, mutate func(*PredictorConfig)) *Predictor {
	t.Helper()
	cfg := DefaultPredictorConfig()
	cfg.Method = method
	cfg.Adaptive = false
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewPredictor(cfg, NewSimilarityCalculator(1000))
	if err != nil {
		t.Fatalf("NewPredictor() error = %v", err)
	}
	return p
}

func TestNewPredictor_InvalidMethod(t *testing.T) {
	cfg := DefaultPredictorConfig()
	cfg.Method = "svd"
	if _, err := NewPredictor(cfg, nil); err == nil {
		t.Error("NewPredictor() accepted unknown method")
	}
}

func TestPredict_Methods(t *testing.T) {
	m := craftedMatrix(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		method     string
		wantRating float64
		wantConf   float64
		wantMethod string
	}{
		{"user based", MethodUserBased, 4, 0.46, MethodUserBased},
		{"item based", MethodItemBased, 3.5 + 1.0/3.0, 0.46, MethodItemBased},
		{"hybrid", MethodHybrid, (4 + 3.5 + 1.0/3.0) / 2, 0.46, MethodHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPredictor(t, tt.method, nil)
			got, err := p.Predict(ctx, m, 1, 12)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if got.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", got.Method, tt.wantMethod)
			}
			if math.Abs(got.Rating-tt.wantRating) > 1e-9 {
				t.Errorf("Rating = %v, want %v", got.Rating, tt.wantRating)
			}
			if math.Abs(got.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestPredict_Observed(t *testing.T) {
	p := newTestPredictor(t, MethodHybrid, nil)
	got, err := p.Predict(context.Background(), craftedMatrix(t), 1, 10)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.Rating != 5 || got.Method != MethodObserved || got.Confidence != 1 {
		t.Errorf("Predict() = %+v, want observed rating 5", got)
	}
}

func TestPredict_InsufficientNeighborsFallsBack(t *testing.T) {
	m := scenarioMatrix(t)
	p := newTestPredictor(t, MethodUserBased, nil)

	got, err := p.Predict(context.Background(), m, userA, itemZ)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.Method != MethodUserBased+"_fallback" {
		t.Errorf("Method = %q, want user_based_fallback", got.Method)
	}
	if got.Confidence > 0.1 {
		t.Errorf("Confidence = %v, want <= 0.1", got.Confidence)
	}
	if got.Rating != 3.5 {
		t.Errorf("Rating = %v, want item average 3.5", got.Rating)
	}
	if !got.Fallback() {
		t.Error("Fallback() = false")
	}
}

func TestPredict_FallbackToGlobalForUnknownRecipe(t *testing.T) {
	m := scenarioMatrix(t)
	p := newTestPredictor(t, MethodItemBased, nil)

	got, err := p.Predict(context.Background(), m, userA, 999)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.Rating != m.GlobalAverage() {
		t.Errorf("Rating = %v, want global average %v", got.Rating, m.GlobalAverage())
	}
}

func TestPredict_MatrixFactorization(t *testing.T) {
	m := scenarioMatrix(t)
	userAvg, _ := m.UserAverage(userA)
	itemAvg, _ := m.ItemAverage(itemZ)
	want := userAvg + 0.5*(itemAvg-m.GlobalAverage())

	p := newTestPredictor(t, MethodMatrixFactorization, func(c *PredictorConfig) { c.EnableFallback = false })
	got, err := p.Predict(context.Background(), m, userA, itemZ)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if math.Abs(got.Rating-want) > 1e-9 {
		t.Errorf("Rating = %v, want %v", got.Rating, want)
	}
	if math.Abs(got.Confidence-2.0/50.0) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.04", got.Confidence)
	}

	// With fallback enabled the low confidence triggers substitution.
	p = newTestPredictor(t, MethodMatrixFactorization, nil)
	got, _ = p.Predict(context.Background(), m, userA, itemZ)
	if got.Method != MethodMatrixFactorization+"_fallback" {
		t.Errorf("Method = %q, want matrix_factorization_fallback", got.Method)
	}
}

func TestPredict_Properties(t *testing.T) {
	m := randomMatrix(t, 11, 20, 15, 0.5)
	ctx := context.Background()

	for _, method := range []string{MethodUserBased, MethodItemBased, MethodHybrid, MethodMatrixFactorization} {
		t.Run(method, func(t *testing.T) {
			p := newTestPredictor(t, method, nil)
			for _, u := range m.Users() {
				preds, err := p.PredictBatch(ctx, m, u, m.Items())
				if err != nil {
					t.Fatalf("PredictBatch() error = %v", err)
				}
				for _, pr := range preds {
					if pr.Rating < 1 || pr.Rating > 5 || math.IsNaN(pr.Rating) {
						t.Fatalf("rating %v outside [1, 5]", pr.Rating)
					}
					if pr.Confidence < 0 || pr.Confidence > 1 {
						t.Fatalf("confidence %v outside [0, 1]", pr.Confidence)
					}
					if strings.HasSuffix(pr.Method, "_fallback") && pr.Confidence > 0.1 {
						t.Fatalf("fallback confidence %v > 0.1", pr.Confidence)
					}
				}
			}
		})
	}
}

func TestPredict_TooFewNeighborsAlwaysFallsBack(t *testing.T) {
	m := randomMatrix(t, 5, 15, 10, 0.6)
	p := newTestPredictor(t, MethodUserBased, func(c *PredictorConfig) { c.MinNeighbors = 1000 })

	for _, u := range m.Users() {
		preds, err := p.PredictBatch(context.Background(), m, u, m.Items())
		if err != nil {
			t.Fatalf("PredictBatch() error = %v", err)
		}
		for _, pr := range preds {
			if pr.Method == MethodObserved {
				continue
			}
			if !pr.Fallback() || pr.Confidence > 0.1 {
				t.Fatalf("prediction %+v should be a fallback", pr)
			}
		}
	}
}

func TestPredict_NeighborDiversity(t *testing.T) {
	m := craftedMatrix(t)

	tests := []struct {
		name         string
		threshold    float64
		wantFallback bool
	}{
		// Users 2 and 3 rate almost identically, so a strict threshold keeps
		// only one of them and user-based prediction runs out of neighbors.
		{"disabled", 1, false},
		{"strict", 0.9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPredictor(t, MethodUserBased, func(c *PredictorConfig) { c.Neighbors.DiversityThreshold = tt.threshold })
			got, err := p.Predict(context.Background(), m, 1, 12)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if got.Fallback() != tt.wantFallback {
				t.Errorf("Predict() = %+v, want fallback %v", got, tt.wantFallback)
			}
		})
	}
}

func TestPredictor_TimeDecay(t *testing.T) {
	m := craftedMatrix(t)
	ctx := context.Background()

	plain := newTestPredictor(t, MethodUserBased, nil)
	base, err := plain.userNeighbors(ctx, m, 1)
	if err != nil {
		t.Fatalf("userNeighbors() error = %v", err)
	}
	if len(base) == 0 {
		t.Fatal("no neighbors selected")
	}

	decayed := newTestPredictor(t, MethodUserBased, func(c *PredictorConfig) { c.TimeDecayWindow = 7 * 24 * time.Hour })
	decayed.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	got, err := decayed.userNeighbors(ctx, m, 1)
	if err != nil {
		t.Fatalf("userNeighbors() error = %v", err)
	}
	if len(got) != len(base) {
		t.Fatalf("decay changed the neighbor set: %d vs %d", len(got), len(base))
	}
	for i := range got {
		if want := base[i].Weight * 0.5; math.Abs(got[i].Weight-want) > 1e-9 {
			t.Errorf("neighbor %d weight = %v, want %v", got[i].ID, got[i].Weight, want)
		}
	}
}

func TestPredictTopN(t *testing.T) {
	m := craftedMatrix(t)
	p := newTestPredictor(t, MethodUserBased, nil)

	got, err := p.PredictTopN(context.Background(), m, 1, 5)
	if err != nil {
		t.Fatalf("PredictTopN() error = %v", err)
	}
	if len(got) != 1 || got[0].RecipeID != 12 {
		t.Errorf("PredictTopN() = %+v, want only recipe 12", got)
	}

	if _, err := p.PredictTopN(context.Background(), m, 42, 5); !errors.Is(err, recommend.ErrUserNotFound) {
		t.Errorf("PredictTopN(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestSortPredictions(t *testing.T) {
	preds := []Prediction{
		{RecipeID: 1, Rating: 4, Confidence: 0.2},
		{RecipeID: 2, Rating: 4.5, Confidence: 0.1},
		{RecipeID: 3, Rating: 4, Confidence: 0.9},
	}
	SortPredictions(preds)
	want := []int64{2, 3, 1}
	for i, p := range preds {
		if p.RecipeID != want[i] {
			t.Errorf("position %d = %d, want %d", i, p.RecipeID, want[i])
		}
	}
}

func TestEvaluate(t *testing.T) {
	m := craftedMatrix(t)
	// Train without user 1's rating of 12, then hold it out.
	p := newTestPredictor(t, MethodUserBased, nil)

	res, err := p.Evaluate(context.Background(), m, []recommend.Rating{{UserID: 1, RecipeID: 12, Value: 4}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Count != 1 || res.MAE != 0 || res.RMSE != 0 {
		t.Errorf("Evaluate() = %+v, want exact prediction", res)
	}
	if res.Coverage != 1 || res.PrecisionAt5 != 1 || res.RecallAt5 != 1 {
		t.Errorf("Evaluate() = %+v, want full coverage, precision and recall", res)
	}

	empty, err := p.Evaluate(context.Background(), m, nil)
	if err != nil || empty.Count != 0 {
		t.Errorf("Evaluate(nil) = %+v, %v", empty, err)
	}
}

func TestEvaluate_Random(t *testing.T) {
	m := randomMatrix(t, 21, 20, 12, 0.5)
	test := ratingsOf([3]float64{1, 2000, 4}, [3]float64{2, 2001, 2}, [3]float64{3, 2002, 5})
	p := newTestPredictor(t, MethodHybrid, nil)

	res, err := p.Evaluate(context.Background(), m, test)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.RMSE < res.MAE-1e-12 {
		t.Errorf("RMSE %v < MAE %v", res.RMSE, res.MAE)
	}
	for name, v := range map[string]float64{"coverage": res.Coverage, "precision": res.PrecisionAt5, "recall": res.RecallAt5} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0, 1]", name, v)
		}
	}
}

func TestPredictor_DiagnoseNeighbors(t *testing.T) {
	ratings := append(ratingsOf(
		[3]float64{1, 10, 5}, [3]float64{1, 11, 3},
		[3]float64{2, 10, 5}, [3]float64{2, 11, 3}, [3]float64{2, 12, 4},
		[3]float64{3, 10, 4}, [3]float64{3, 11, 2}, [3]float64{3, 12, 3},
	), ratingsOf([3]float64{4, 99, 4})...)
	m, err := BuildMatrix(ratings, nil, DefaultMatrixOptions(), 1)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	p := newTestPredictor(t, MethodUserBased, nil)

	tests := []struct {
		name        string
		sample      int
		wantSampled int
	}{
		{"every user", 0, 4},
		{"sample larger than users", 10, 4},
		{"spread sample", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.DiagnoseNeighbors(context.Background(), m, tt.sample)
			if err != nil {
				t.Fatalf("DiagnoseNeighbors() error = %v", err)
			}
			if d.SampledUsers != tt.wantSampled {
				t.Errorf("SampledUsers = %d, want %d", d.SampledUsers, tt.wantSampled)
			}
		})
	}

	d, err := p.DiagnoseNeighbors(context.Background(), m, 0)
	if err != nil {
		t.Fatalf("DiagnoseNeighbors() error = %v", err)
	}
	if d.Issues["no neighbors"] != 1 {
		t.Errorf("Issues = %v, want one isolated user", d.Issues)
	}
	if d.InvalidUsers < 1 {
		t.Errorf("InvalidUsers = %d, want at least 1", d.InvalidUsers)
	}
	if d.AvgSimilarity <= 0 || d.AvgSimilarity > 1 {
		t.Errorf("AvgSimilarity = %v, want in (0, 1]", d.AvgSimilarity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.DiagnoseNeighbors(ctx, m, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("DiagnoseNeighbors() on cancelled context error = %v, want context.Canceled", err)
	}
}
