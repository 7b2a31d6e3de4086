package search

import (
	"math"

	"github.com/aptihub/chatetl/internal/models"
)

// similarity computes the score for one candidate vector under the given
// metric. Cosine and L2 are normalized into (0, 1]; inner product is
// returned raw.
func similarity(metric models.SimilarityMetric, a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	switch metric {
	case models.MetricL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))

	case models.MetricInnerProduct:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return dot

	default: // cosine
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
}
