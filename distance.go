package bhtsne

import (
	"math"
	"strings"
)

// DistanceMetric measures dissimilarity between two input points.
//
// ReducedDistance is a cheaper monotone transform of Distance used for tree
// pruning (squared Euclidean skips the sqrt). DistToRdist converts a true
// distance into the reduced space so bounds can be compared.
type DistanceMetric interface {
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64
	DistToRdist(d float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
// Reduced distances equal true distances.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64        { return f(a, b) }
func (f DistanceFunc) ReducedDistance(a, b []float64) float64 { return f(a, b) }
func (f DistanceFunc) DistToRdist(d float64) float64          { return d }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return math.Sqrt(squaredEuclidean(a, b))
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 { return squaredEuclidean(a, b) }
func (EuclideanMetric) DistToRdist(d float64) float64          { return d * d }

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ManhattanMetric computes the L1 distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

func (m ManhattanMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }
func (ManhattanMetric) DistToRdist(d float64) float64            { return d }

// ChebyshevMetric computes the L-infinity distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	var maxVal float64
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

func (m ChebyshevMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }
func (ChebyshevMetric) DistToRdist(d float64) float64            { return d }

// CosineMetric is the inverted cosine similarity: 1 - cos(a, b).
// Zero vectors are treated as orthogonal to everything (distance 1).
type CosineMetric struct{}

func (CosineMetric) Distance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	d := 1 - dot/math.Sqrt(normA*normB)
	if d < 0 {
		// rounding on identical directions
		return 0
	}
	return d
}

func (m CosineMetric) ReducedDistance(a, b []float64) float64 { return m.Distance(a, b) }
func (CosineMetric) DistToRdist(d float64) float64            { return d }

// Similarity function names accepted by NewMetric and Config.Similarity.
const (
	SimilarityEuclidean = "euclidean"
	SimilarityManhattan = "manhattan"
	SimilarityChebyshev = "chebyshev"
	SimilarityCosine    = "cosinesimilarity"
)

// NewMetric resolves a similarity function name and its sense into a
// distance metric. Distance functions must not be inverted; similarity
// functions (cosinesimilarity) must be, because neighbor search needs
// "smaller is closer".
func NewMetric(name string, invert bool) (DistanceMetric, error) {
	switch strings.ToLower(name) {
	case SimilarityEuclidean, "":
		if invert {
			return nil, configError("similarity %q is a distance and cannot be inverted", name)
		}
		return EuclideanMetric{}, nil
	case SimilarityManhattan:
		if invert {
			return nil, configError("similarity %q is a distance and cannot be inverted", name)
		}
		return ManhattanMetric{}, nil
	case SimilarityChebyshev:
		if invert {
			return nil, configError("similarity %q is a distance and cannot be inverted", name)
		}
		return ChebyshevMetric{}, nil
	case SimilarityCosine, "cosine":
		if !invert {
			return nil, configError("similarity %q must be inverted to act as a distance", name)
		}
		return CosineMetric{}, nil
	default:
		return nil, configError("unknown similarity function %q", name)
	}
}
