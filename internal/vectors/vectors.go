// Package vectors holds the distance math shared by the candidate generator
// and the in-memory vector index. The pipeline uses cosine distance
// throughout; it must match the metric the embedding space was trained for.
package vectors

import "math"

// CosineDistance returns 1 - cosine similarity, in [0,2]. Zero-magnitude
// input yields the maximum distance so degenerate vectors never rank first.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
