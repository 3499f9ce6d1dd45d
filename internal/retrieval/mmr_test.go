package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMMRPrefersRelevanceFirst(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},
		{1, 0},
		{0.9, 0.1},
	}

	order := maximalMarginalRelevance(query, candidates, 0.5, 2)
	require.Len(t, order, 2)

	// The exact query match comes first; diversity then favors the
	// orthogonal candidate over the near-duplicate.
	assert.Equal(t, 1, order[0])
	assert.Equal(t, 0, order[1])
}

func TestMMRPureRelevance(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0.5, 0.5},
		{1, 0},
		{0.99, 0.01},
	}

	order := maximalMarginalRelevance(query, candidates, 1.0, 3)
	require.Equal(t, []int{1, 2, 0}, order)
}

func TestMMRBounds(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}}

	assert.Nil(t, maximalMarginalRelevance(query, nil, 0.5, 3))
	assert.Nil(t, maximalMarginalRelevance(query, candidates, 0.5, 0))
	assert.Len(t, maximalMarginalRelevance(query, candidates, 0.5, 10), 1)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1}))
}
