// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/recipewise/internal/metrics"
	"github.com/tomtom215/recipewise/internal/recommend"
)

// Prediction methods.
const (
	MethodUserBased           = "user_based"
	MethodItemBased           = "item_based"
	MethodHybrid              = "hybrid"
	MethodMatrixFactorization = "matrix_factorization"
	MethodObserved            = "observed"

	fallbackSuffix     = "_fallback"
	fallbackConfidence = 0.1
)

// Prediction is a predicted rating for a (user, recipe) pair.
type Prediction struct {
	UserID     int64   `json:"user_id"`
	RecipeID   int64   `json:"recipe_id"`
	Rating     float64 `json:"rating"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Neighbors  int     `json:"neighbors"`
}

// Fallback reports whether the prediction is an average substitute.
func (p Prediction) Fallback() bool {
	return strings.HasSuffix(p.Method, fallbackSuffix)
}

// PredictorConfig configures a Predictor.
type PredictorConfig struct {
	Method              string
	Metric              Metric
	MinNeighbors        int
	ConfidenceThreshold float64
	EnableFallback      bool
	Adaptive            bool
	Neighbors           NeighborConfig

	// TimeDecayWindow, when positive, discounts user neighbors whose shared
	// ratings are older than the window.
	TimeDecayWindow time.Duration
}

// DefaultPredictorConfig returns hybrid prediction over cosine neighbors.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		Method:              MethodHybrid,
		Metric:              MetricCosine,
		MinNeighbors:        2,
		ConfidenceThreshold: 0.1,
		EnableFallback:      true,
		Adaptive:            true,
		Neighbors:           DefaultNeighborConfig(),
	}
}

// PredictorConfigFrom maps the engine configuration onto a PredictorConfig.
func PredictorConfigFrom(cfg *recommend.Config) (PredictorConfig, error) {
	metric, err := ParseMetric(cfg.Predictor.Metric)
	if err != nil {
		return PredictorConfig{}, err
	}
	return PredictorConfig{
		Method:              cfg.Predictor.Method,
		Metric:              metric,
		MinNeighbors:        cfg.Predictor.MinNeighbors,
		ConfidenceThreshold: cfg.Predictor.ConfidenceThreshold,
		EnableFallback:      cfg.Predictor.EnableFallback,
		Adaptive:            cfg.Neighbors.Adaptive,
		Neighbors: NeighborConfig{
			Strategy:           cfg.Neighbors.Strategy,
			MaxNeighbors:       cfg.Neighbors.MaxNeighbors,
			MinSimilarity:      cfg.Neighbors.MinSimilarity,
			MinCommonItems:     cfg.Neighbors.MinCommonItems,
			DiversityThreshold: cfg.Neighbors.DiversityThreshold,
		},
		TimeDecayWindow: cfg.Neighbors.TimeDecayWindow,
	}, nil
}

// Predictor predicts ratings from a rating matrix snapshot.
type Predictor struct {
	cfg PredictorConfig
	sim *SimilarityCalculator
	now func() time.Time
}

// NewPredictor creates a predictor.
//
//nolint:gocritic // hugeParam: cfg passed by value for immutability
func NewPredictor(cfg PredictorConfig, sim *SimilarityCalculator) (*Predictor, error) {
	switch cfg.Method {
	case MethodUserBased, MethodItemBased, MethodHybrid, MethodMatrixFactorization:
	default:
		return nil, fmt.Errorf("unknown prediction method %q", cfg.Method)
	}
	if err := cfg.Neighbors.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinNeighbors < 1 {
		cfg.MinNeighbors = 1
	}
	if sim == nil {
		sim = NewSimilarityCalculator(0)
	}
	return &Predictor{cfg: cfg, sim: sim, now: time.Now}, nil
}

// Config returns the predictor configuration.
func (p *Predictor) Config() PredictorConfig {
	return p.cfg
}

// Predict predicts user's rating of recipe. Weak predictions fall back to
// the recipe's average rating; ErrInsufficientNeighbors is never returned.
func (p *Predictor) Predict(ctx context.Context, m *RatingMatrix, user, recipe int64) (Prediction, error) {
	var userNeighbors []Neighbor
	if p.cfg.Method == MethodUserBased || p.cfg.Method == MethodHybrid {
		var err error
		userNeighbors, err = p.userNeighbors(ctx, m, user)
		if err != nil {
			return Prediction{}, err
		}
	}
	return p.predictWith(m, user, recipe, userNeighbors), nil
}

// PredictBatch predicts ratings for many recipes, computing the user's
// neighbor set once.
func (p *Predictor) PredictBatch(ctx context.Context, m *RatingMatrix, user int64, recipes []int64) ([]Prediction, error) {
	var userNeighbors []Neighbor
	if p.cfg.Method == MethodUserBased || p.cfg.Method == MethodHybrid {
		var err error
		userNeighbors, err = p.userNeighbors(ctx, m, user)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Prediction, 0, len(recipes))
	for i, recipe := range recipes {
		if i%32 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		out = append(out, p.predictWith(m, user, recipe, userNeighbors))
	}
	return out, nil
}

// PredictTopN predicts every recipe in the matrix the user has not rated
// and returns the best n by rating, then confidence.
func (p *Predictor) PredictTopN(ctx context.Context, m *RatingMatrix, user int64, n int) ([]Prediction, error) {
	if !m.HasUser(user) {
		return nil, recommend.ErrUserNotFound
	}

	rated := m.byUser[user]
	candidates := make([]int64, 0, len(m.items))
	for _, item := range m.items {
		if _, ok := rated[item]; !ok {
			candidates = append(candidates, item)
		}
	}

	preds, err := p.PredictBatch(ctx, m, user, candidates)
	if err != nil {
		return nil, err
	}
	SortPredictions(preds)
	if n > 0 && len(preds) > n {
		preds = preds[:n]
	}
	return preds, nil
}

// SortPredictions sorts by rating descending, confidence descending, then
// recipe id ascending.
func SortPredictions(preds []Prediction) {
	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Rating != preds[j].Rating {
			return preds[i].Rating > preds[j].Rating
		}
		if preds[i].Confidence != preds[j].Confidence {
			return preds[i].Confidence > preds[j].Confidence
		}
		return preds[i].RecipeID < preds[j].RecipeID
	})
}

func (p *Predictor) userNeighbors(ctx context.Context, m *RatingMatrix, user int64) ([]Neighbor, error) {
	if !m.HasUser(user) {
		return nil, nil
	}
	cfg := p.cfg.Neighbors
	if p.cfg.Adaptive {
		cfg = AdaptiveConfig(cfg, len(m.byUser[user]), recentAverage(m, user, 5))
	}
	cands, err := p.sim.SimilarUsers(ctx, m, user, p.cfg.Metric, cfg.MinCommonItems)
	if err != nil {
		return nil, err
	}
	if t := cfg.DiversityThreshold; t > 0 && t < 1 {
		cands = SelectDiverse(cands, cfg.MaxNeighbors, t, func(a, b int64) float64 {
			return p.sim.UserSimilarity(m, a, b, p.cfg.Metric)
		})
	}

	neighbors := SelectNeighbors(cands, cfg)
	if p.cfg.TimeDecayWindow > 0 {
		neighbors = TimeDecayWeights(neighbors, m, user, p.now(), p.cfg.TimeDecayWindow)
	}
	return neighbors, nil
}

// DiagnoseNeighbors selects neighbors for up to sample users spread evenly
// across m and aggregates their ValidateNeighbors reports. A sample of zero
// or less covers every user.
func (p *Predictor) DiagnoseNeighbors(ctx context.Context, m *RatingMatrix, sample int) (NeighborDiagnostics, error) {
	users := m.Users()
	step := 1
	if sample > 0 && len(users) > sample {
		step = len(users) / sample
	}

	var d NeighborDiagnostics
	for i := 0; i < len(users) && (sample <= 0 || d.SampledUsers < sample); i += step {
		if ContextCancelled(ctx) {
			return NeighborDiagnostics{}, ctx.Err()
		}
		neighbors, err := p.userNeighbors(ctx, m, users[i])
		if err != nil {
			return NeighborDiagnostics{}, err
		}
		report := ValidateNeighbors(neighbors, m, users[i])

		d.SampledUsers++
		d.AvgSimilarity += report.AvgSimilarity
		d.AvgCommonItems += report.AvgCommonItems
		d.AvgCoverage += report.Coverage
		if !report.Valid {
			d.InvalidUsers++
		}
		for _, issue := range report.Issues {
			if d.Issues == nil {
				d.Issues = make(map[string]int)
			}
			d.Issues[issueKind(issue)]++
		}
	}
	if d.SampledUsers > 0 {
		n := float64(d.SampledUsers)
		d.AvgSimilarity /= n
		d.AvgCommonItems /= n
		d.AvgCoverage /= n
	}
	return d, nil
}

// recentAverage averages the user's n most recent ratings.
func recentAverage(m *RatingMatrix, user int64, n int) float64 {
	times := m.ratedAt[user]
	if len(times) == 0 {
		return 0
	}
	items := sortedKeys(times)
	sort.SliceStable(items, func(i, j int) bool { return times[items[i]] > times[items[j]] })
	if len(items) > n {
		items = items[:n]
	}
	var sum float64
	for _, item := range items {
		sum += m.byUser[user][item]
	}
	return sum / float64(len(items))
}

func (p *Predictor) predictWith(m *RatingMatrix, user, recipe int64, userNeighbors []Neighbor) Prediction {
	if r, ok := m.Rating(user, recipe); ok {
		return Prediction{UserID: user, RecipeID: recipe, Rating: r, Confidence: 1, Method: MethodObserved}
	}

	var pred Prediction
	var err error
	switch p.cfg.Method {
	case MethodUserBased:
		pred, err = p.userBased(m, user, recipe, userNeighbors)
	case MethodItemBased:
		pred, err = p.itemBased(m, user, recipe)
	case MethodMatrixFactorization:
		pred, err = matrixFactorization(m, user, recipe)
	default:
		pred, err = p.hybrid(m, user, recipe, userNeighbors)
	}

	switch {
	case errors.Is(err, recommend.ErrInsufficientNeighbors):
		return p.fallback(m, user, recipe)
	case p.cfg.EnableFallback && pred.Confidence < p.cfg.ConfidenceThreshold:
		return p.fallback(m, user, recipe)
	}

	pred.Rating = clampRating(pred.Rating)
	pred.Confidence = recommend.ClampUnit(pred.Confidence)
	return pred
}

// userBased adds the weighted mean deviation of neighbors who rated recipe
// to the user's mean.
func (p *Predictor) userBased(m *RatingMatrix, user, recipe int64, neighbors []Neighbor) (Prediction, error) {
	userAvg, ok := m.UserAverage(user)
	if !ok || len(neighbors) == 0 {
		return Prediction{}, recommend.ErrInsufficientNeighbors
	}

	var num, den float64
	valid := 0
	for _, n := range neighbors {
		r, ok := m.byUser[n.ID][recipe]
		if !ok {
			continue
		}
		valid++
		num += n.Weight * (r - m.userAvg[n.ID])
		den += math.Abs(n.Weight)
	}
	if valid < p.cfg.MinNeighbors || den == 0 {
		return Prediction{}, recommend.ErrInsufficientNeighbors
	}

	return Prediction{
		UserID:     user,
		RecipeID:   recipe,
		Rating:     userAvg + num/den,
		Confidence: neighborConfidence(valid, len(neighbors)),
		Method:     MethodUserBased,
		Neighbors:  valid,
	}, nil
}

// itemBased uses the recipes the user rated as item neighbors of recipe.
func (p *Predictor) itemBased(m *RatingMatrix, user, recipe int64) (Prediction, error) {
	itemAvg, ok := m.ItemAverage(recipe)
	if !ok || !m.HasUser(user) {
		return Prediction{}, recommend.ErrInsufficientNeighbors
	}

	cfg := p.cfg.Neighbors
	rated := sortedKeys(m.byUser[user])
	cands := make([]Candidate, 0, len(rated))
	for _, other := range rated {
		e := p.sim.pair(m, KindItem, recipe, other, p.cfg.Metric)
		if e.similarity > 0 && e.common >= cfg.MinCommonItems {
			cands = append(cands, Candidate{ID: other, Similarity: e.similarity, CommonItems: e.common})
		}
	}
	neighbors := SelectNeighbors(cands, cfg)

	var num, den float64
	for _, n := range neighbors {
		num += n.Weight * (m.byUser[user][n.ID] - m.itemAvg[n.ID])
		den += math.Abs(n.Weight)
	}
	valid := len(neighbors)
	if valid < p.cfg.MinNeighbors || den == 0 {
		return Prediction{}, recommend.ErrInsufficientNeighbors
	}

	return Prediction{
		UserID:     user,
		RecipeID:   recipe,
		Rating:     itemAvg + num/den,
		Confidence: neighborConfidence(valid, len(rated)),
		Method:     MethodItemBased,
		Neighbors:  valid,
	}, nil
}

// hybrid blends user- and item-based predictions by their confidences.
func (p *Predictor) hybrid(m *RatingMatrix, user, recipe int64, userNeighbors []Neighbor) (Prediction, error) {
	ub, errU := p.userBased(m, user, recipe, userNeighbors)
	ib, errI := p.itemBased(m, user, recipe)

	var parts []Prediction
	if errU == nil {
		parts = append(parts, ub)
	}
	if errI == nil {
		parts = append(parts, ib)
	}

	var confSum, weighted float64
	neighbors := 0
	for _, part := range parts {
		confSum += part.Confidence
		weighted += part.Confidence * part.Rating
		neighbors += part.Neighbors
	}
	if confSum == 0 {
		return Prediction{}, recommend.ErrInsufficientNeighbors
	}

	// Each method's share of the blend is its share of the confidence, so
	// the blended confidence is their confidence-weighted mean.
	var conf float64
	for _, part := range parts {
		conf += part.Confidence * part.Confidence / confSum
	}

	return Prediction{
		UserID:     user,
		RecipeID:   recipe,
		Rating:     weighted / confSum,
		Confidence: conf,
		Method:     MethodHybrid,
		Neighbors:  neighbors,
	}, nil
}

// matrixFactorization is a coarse bias model: the user's mean shifted by
// half the recipe's offset from the global mean.
func matrixFactorization(m *RatingMatrix, user, recipe int64) (Prediction, error) {
	userAvg, okU := m.UserAverage(user)
	itemAvg, okI := m.ItemAverage(recipe)
	if !okU || !okI {
		return Prediction{}, recommend.ErrInsufficientNeighbors
	}
	return Prediction{
		UserID:     user,
		RecipeID:   recipe,
		Rating:     userAvg + 0.5*(itemAvg-m.globalAvg),
		Confidence: math.Min(float64(len(m.byItem[recipe]))/50, 1),
		Method:     MethodMatrixFactorization,
	}, nil
}

// fallback substitutes the recipe's average, or the global average for a
// recipe nobody rated.
func (p *Predictor) fallback(m *RatingMatrix, user, recipe int64) Prediction {
	rating, ok := m.ItemAverage(recipe)
	if !ok {
		rating = m.GlobalAverage()
	}
	method := p.cfg.Method + fallbackSuffix
	metrics.RecordPredictionFallback(p.cfg.Method)

	return Prediction{
		UserID:     user,
		RecipeID:   recipe,
		Rating:     clampRating(rating),
		Confidence: fallbackConfidence,
		Method:     method,
	}
}

// neighborConfidence rewards both the share of neighbors that contributed
// and the absolute number of contributors, saturating at 20.
func neighborConfidence(valid, total int) float64 {
	if total <= 0 || valid <= 0 {
		return 0
	}
	ratio := float64(valid) / float64(total)
	volume := math.Min(float64(valid)/20, 1)
	return recommend.ClampUnit(0.4*ratio + 0.6*volume)
}

func clampRating(r float64) float64 {
	return recommend.Clamp(r, MinRating, MaxRating)
}

// EvaluationResult holds offline accuracy metrics for a predictor.
type EvaluationResult struct {
	Count        int     `json:"count"`
	MAE          float64 `json:"mae"`
	RMSE         float64 `json:"rmse"`
	Coverage     float64 `json:"coverage"`
	PrecisionAt5 float64 `json:"precision_at_5"`
	RecallAt5    float64 `json:"recall_at_5"`
}

// relevantRating is the held-out rating at which a recipe counts as relevant.
const relevantRating = 4.0

// Evaluate predicts every held-out rating in testSet against m, which must
// not contain them. Coverage is the share of predictions that did not fall
// back. Precision and recall at 5 are averaged over users.
func (p *Predictor) Evaluate(ctx context.Context, m *RatingMatrix, testSet []recommend.Rating) (EvaluationResult, error) {
	var res EvaluationResult
	if len(testSet) == 0 {
		return res, nil
	}

	byUser := make(map[int64][]recommend.Rating)
	for _, r := range testSet {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	var absSum, sqSum float64
	covered := 0
	var precSum, recSum float64
	precUsers, recUsers := 0, 0

	for _, user := range sortedKeys(byUser) {
		held := byUser[user]
		ids := make([]int64, len(held))
		actual := make(map[int64]float64, len(held))
		for i, r := range held {
			ids[i] = r.RecipeID
			actual[r.RecipeID] = r.Value
		}

		preds, err := p.PredictBatch(ctx, m, user, ids)
		if err != nil {
			return EvaluationResult{}, err
		}

		for _, pred := range preds {
			diff := pred.Rating - actual[pred.RecipeID]
			absSum += math.Abs(diff)
			sqSum += diff * diff
			if !pred.Fallback() {
				covered++
			}
		}

		SortPredictions(preds)
		top := preds
		if len(top) > 5 {
			top = top[:5]
		}
		relevant := 0
		for _, v := range actual {
			if v >= relevantRating {
				relevant++
			}
		}
		hits := 0
		for _, pred := range top {
			if actual[pred.RecipeID] >= relevantRating {
				hits++
			}
		}
		if len(top) > 0 {
			precSum += float64(hits) / float64(len(top))
			precUsers++
		}
		if relevant > 0 {
			recSum += float64(hits) / float64(relevant)
			recUsers++
		}
	}

	n := float64(len(testSet))
	res.Count = len(testSet)
	res.MAE = absSum / n
	res.RMSE = math.Sqrt(sqSum / n)
	res.Coverage = float64(covered) / n
	if precUsers > 0 {
		res.PrecisionAt5 = precSum / float64(precUsers)
	}
	if recUsers > 0 {
		res.RecallAt5 = recSum / float64(recUsers)
	}
	return res, nil
}
