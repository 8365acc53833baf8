package mathutil

import "math"

// DotProduct computes the dot product of two vectors with float64
// accumulation.
func DotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm computes the L2 norm (magnitude) of a vector.
func Norm(v []float32) float64 {
	return math.Sqrt(DotProduct(v, v))
}

// Normalize returns a unit vector in the same direction. The zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	norm := Norm(v)
	if norm == 0 {
		return v
	}
	result := make([]float32, len(v))
	for i := range v {
		result[i] = float32(float64(v[i]) / norm)
	}
	return result
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 1 for identical directions, 0 for perpendicular or degenerate
// input, -1 for opposite.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	dot := DotProduct(a, b)
	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// CosineDistance converts cosine similarity to a distance metric.
// Returns 0 for identical vectors, 2 for opposite vectors.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
