// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package reranking

import (
	"context"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// maxRerankSize bounds the pairwise similarity matrix.
const maxRerankSize = 500

// MMR implements Maximal Marginal Relevance reranking over recipes.
// It repeatedly picks the candidate maximizing
//
//	lambda * score/100 - (1-lambda) * max(sim(i, s)) for s in selected
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	lambda float64
	sim    SimilarityFunc
}

// NewMMR creates an MMR reranker. Lambda 1 is pure relevance, 0 pure
// diversity.
func NewMMR(lambda float64, sim SimilarityFunc) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{lambda: lambda, sim: sim}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Rerank reorders recs. Scores are left untouched; only order changes.
// Candidates beyond maxRerankSize keep their relative order at the tail.
func (m *MMR) Rerank(ctx context.Context, _ int64, recs []recommend.Recommendation) []recommend.Recommendation {
	if len(recs) < 2 || m.lambda >= 1.0 {
		return recs
	}

	head, tail := recs, []recommend.Recommendation(nil)
	if len(head) > maxRerankSize {
		head, tail = recs[:maxRerankSize], recs[maxRerankSize:]
	}

	similarities := m.buildSimilarityMatrix(head)
	selected := make([]recommend.Recommendation, 0, len(recs))
	selectedIdx := make([]int, 0, len(head))
	used := make([]bool, len(head))

	for len(selectedIdx) < len(head) {
		if ctx.Err() != nil {
			break
		}
		bestIdx := -1
		bestMMR := 0.0

		for i := range head {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, j := range selectedIdx {
				if similarities[i][j] > maxSim {
					maxSim = similarities[i][j]
				}
			}
			score := m.lambda*head[i].Score/100 - (1-m.lambda)*maxSim
			if bestIdx < 0 || score > bestMMR {
				bestMMR = score
				bestIdx = i
			}
		}

		used[bestIdx] = true
		selectedIdx = append(selectedIdx, bestIdx)
		selected = append(selected, head[bestIdx])
	}

	// A canceled pass keeps the remaining candidates in original order.
	for i := range head {
		if !used[i] {
			selected = append(selected, head[i])
		}
	}
	return append(selected, tail...)
}

// buildSimilarityMatrix computes pairwise recipe similarity.
func (m *MMR) buildSimilarityMatrix(recs []recommend.Recommendation) [][]float64 {
	n := len(recs)
	similarities := make([][]float64, n)
	for i := range similarities {
		similarities[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if recs[i].Recipe == nil || recs[j].Recipe == nil {
				continue
			}
			sim := m.sim(recs[i].Recipe, recs[j].Recipe)
			similarities[i][j] = sim
			similarities[j][i] = sim
		}
	}

	return similarities
}

// Ensure MMR implements the interface.
var _ recommend.Reranker = (*MMR)(nil)
