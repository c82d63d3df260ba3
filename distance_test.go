package bhtsne

import (
	"errors"
	"math"
	"testing"
)

// --- EuclideanMetric tests ---

func TestEuclideanDistance_IdenticalVectors(t *testing.T) {
	a := []float64{1, 2, 3}
	if d := (EuclideanMetric{}).Distance(a, a); d != 0 {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestEuclideanDistance_HandComputed(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{4, 6, 3}
	// sqrt(9 + 16 + 0) = 5
	if d := (EuclideanMetric{}).Distance(a, b); !almostEqual(d, 5, floatTol) {
		t.Errorf("expected 5, got %v", d)
	}
}

func TestEuclideanReducedDistance(t *testing.T) {
	m := EuclideanMetric{}
	a := []float64{0, 0}
	b := []float64{3, 4}
	if rd := m.ReducedDistance(a, b); rd != 25 {
		t.Errorf("ReducedDistance = %v, want 25", rd)
	}
	if rd := m.DistToRdist(5); rd != 25 {
		t.Errorf("DistToRdist(5) = %v, want 25", rd)
	}
}

// --- ManhattanMetric tests ---

func TestManhattanDistance_HandComputed(t *testing.T) {
	a := []float64{1, -2, 3}
	b := []float64{4, 2, 3}
	if d := (ManhattanMetric{}).Distance(a, b); d != 7 {
		t.Errorf("expected 7, got %v", d)
	}
}

// --- ChebyshevMetric tests ---

func TestChebyshevDistance_HandComputed(t *testing.T) {
	a := []float64{1, -2, 3}
	b := []float64{4, 2, 3}
	if d := (ChebyshevMetric{}).Distance(a, b); d != 4 {
		t.Errorf("expected 4, got %v", d)
	}
}

// --- CosineMetric tests ---

func TestCosineDistance_ParallelVectors(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{2, 4, 6}
	if d := (CosineMetric{}).Distance(a, b); !almostEqual(d, 0, floatTol) {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestCosineDistance_OrthogonalVectors(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	if d := (CosineMetric{}).Distance(a, b); !almostEqual(d, 1, floatTol) {
		t.Errorf("expected 1, got %v", d)
	}
}

func TestCosineDistance_Opposite(t *testing.T) {
	a := []float64{1, 1}
	b := []float64{-1, -1}
	if d := (CosineMetric{}).Distance(a, b); !almostEqual(d, 2, floatTol) {
		t.Errorf("expected 2, got %v", d)
	}
}

func TestCosineDistance_ZeroVector(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{1, 2}
	if d := (CosineMetric{}).Distance(a, b); d != 1 {
		t.Errorf("expected 1 for zero vector, got %v", d)
	}
}

func TestCosineDistance_NeverNegative(t *testing.T) {
	a := []float64{0.1, 0.7, 0.3}
	for i := 0; i < 100; i++ {
		if d := (CosineMetric{}).Distance(a, a); d < 0 {
			t.Fatalf("distance to self = %v, want >= 0", d)
		}
		a[0] += 0.013
	}
}

// --- DistanceFunc tests ---

func TestDistanceFunc_Adapter(t *testing.T) {
	f := DistanceFunc(func(a, b []float64) float64 { return math.Abs(a[0] - b[0]) })
	var m DistanceMetric = f
	if d := m.Distance([]float64{1}, []float64{4}); d != 3 {
		t.Errorf("Distance = %v, want 3", d)
	}
	if d := m.ReducedDistance([]float64{1}, []float64{4}); d != 3 {
		t.Errorf("ReducedDistance = %v, want 3", d)
	}
	if d := m.DistToRdist(3); d != 3 {
		t.Errorf("DistToRdist = %v, want 3", d)
	}
}

// --- NewMetric tests ---

func TestNewMetric(t *testing.T) {
	tests := []struct {
		name    string
		invert  bool
		want    DistanceMetric
		wantErr bool
	}{
		{"euclidean", false, EuclideanMetric{}, false},
		{"", false, EuclideanMetric{}, false},
		{"Manhattan", false, ManhattanMetric{}, false},
		{"chebyshev", false, ChebyshevMetric{}, false},
		{"cosinesimilarity", true, CosineMetric{}, false},
		{"euclidean", true, nil, true},
		{"cosinesimilarity", false, nil, true},
		{"hamming", false, nil, true},
	}
	for _, tt := range tests {
		got, err := NewMetric(tt.name, tt.invert)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewMetric(%q, %v) error = %v, want ErrInvalidConfig", tt.name, tt.invert, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewMetric(%q, %v) unexpected error: %v", tt.name, tt.invert, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NewMetric(%q, %v) = %T, want %T", tt.name, tt.invert, got, tt.want)
		}
	}
}
