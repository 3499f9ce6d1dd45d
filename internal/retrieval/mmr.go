package retrieval

import "math"

// maximalMarginalRelevance selects up to k candidate indices balancing
// similarity to the query against similarity to already-selected candidates.
// lambda 1.0 is pure relevance, 0.0 pure diversity. Candidates with nil
// embeddings are treated as maximally dissimilar to everything.
func maximalMarginalRelevance(query []float32, candidates [][]float32, lambda float64, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = cosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	remaining := make([]bool, len(candidates))
	for i := range remaining {
		remaining[i] = true
	}

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)

		for i := range candidates {
			if !remaining[i] {
				continue
			}

			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(candidates[i], candidates[s]); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		if best < 0 {
			break
		}
		selected = append(selected, best)
		remaining[best] = false
	}

	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
