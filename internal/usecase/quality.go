package usecase

import (
	"math"
	"math/rand"

	"vecbench/internal/domain"
	"vecbench/internal/mathutil"
)

// EvaluateQuality computes store-independent diagnostics for one model's
// corpus embeddings: mean and standard deviation of pairwise cosine
// similarity over a bounded random sample of pairs, a diversity score
// (1 - mean similarity, clamped to [0, 1]), and the mean vector norm.
// Pure: the same vectors, cap and seed always produce the same metrics.
func EvaluateQuality(model string, vectors []domain.Embedding, samplePairs int, seed int64) domain.QualityMetrics {
	m := domain.QualityMetrics{Model: model}
	if len(vectors) == 0 {
		return m
	}

	var normSum float64
	for _, v := range vectors {
		normSum += mathutil.Norm(v.Values)
	}
	m.AvgNorm = normSum / float64(len(vectors))

	if len(vectors) < 2 || samplePairs <= 0 {
		return m
	}

	totalPairs := len(vectors) * (len(vectors) - 1) / 2
	if samplePairs > totalPairs {
		samplePairs = totalPairs
	}

	rng := rand.New(rand.NewSource(seed))
	seen := make(map[[2]int]bool, samplePairs)
	sims := make([]float64, 0, samplePairs)
	for len(sims) < samplePairs {
		i := rng.Intn(len(vectors))
		j := rng.Intn(len(vectors))
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		key := [2]int{i, j}
		if seen[key] {
			continue
		}
		seen[key] = true
		sims = append(sims, mathutil.CosineSimilarity(vectors[i].Values, vectors[j].Values))
	}

	var sum float64
	for _, s := range sims {
		sum += s
	}
	mean := sum / float64(len(sims))

	var variance float64
	for _, s := range sims {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(sims))

	m.AvgPairwiseSim = mean
	m.SimilarityStdev = math.Sqrt(variance)
	m.Diversity = math.Max(0, math.Min(1, 1-mean))
	m.SampledPairs = len(sims)
	return m
}
