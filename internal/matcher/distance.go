package matcher

import "math"

// DistanceFunc computes a non-negative distance between two embeddings.
type DistanceFunc func(a, b []float32) float64

// maxDistance is returned for vectors that cannot be compared.
const maxDistance = math.MaxFloat64

// EuclideanDistance computes the L2 distance between two vectors.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return maxDistance
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite)
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	similarity = max(-1, min(1, similarity))

	return 1 - similarity
}

// Metric names accepted by DistanceByName.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// DistanceByName returns the distance function for a metric name.
// Unknown names resolve to EuclideanDistance.
func DistanceByName(metric string) DistanceFunc {
	if metric == MetricCosine {
		return CosineDistance
	}
	return EuclideanDistance
}
