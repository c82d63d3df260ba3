package bhtsne

import (
	"math"
	"testing"
)

func TestEdgeCase_TwoPoints(t *testing.T) {
	data := [][]float64{{0, 0}, {1, 0}}
	cfg := DefaultConfig()
	cfg.Perplexity = 1
	cfg.MaxIterations = 20
	result, err := Embed(data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, _ := result.Embedding.Dims(); r != 2 {
		t.Fatalf("expected 2 rows, got %d", r)
	}
	if result.Neighbors != 1 {
		t.Errorf("Neighbors = %d, want 1", result.Neighbors)
	}
	p01, _ := result.Affinities.Lookup(0, 1)
	if !almostEqual(p01, 0.5, 1e-12) {
		t.Errorf("P[0][1] = %v, want 0.5", p01)
	}
}

func TestEdgeCase_AllIdenticalPoints(t *testing.T) {
	data := make([][]float64, 12)
	for i := range data {
		data[i] = []float64{3, 3, 3}
	}
	cfg := DefaultConfig()
	cfg.Perplexity = 3
	cfg.MaxIterations = 20
	result, err := Embed(data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Every neighbor is at distance zero, so no bandwidth reaches the
	// target entropy and the kernel stays flat.
	if !almostEqual(result.Affinities.Sum(), 1, 1e-12) {
		t.Errorf("total mass = %v, want 1", result.Affinities.Sum())
	}
	if len(result.Unconverged) != 12 {
		t.Errorf("Unconverged = %d points, want 12", len(result.Unconverged))
	}
	checkFinite(t, result)
}

func TestEdgeCase_DuplicatePoints(t *testing.T) {
	data := [][]float64{
		{0, 0}, {0, 0}, {0, 0},
		{1, 1}, {1, 1.1}, {1.1, 1},
		{5, 5}, {5, 5}, {5.2, 5},
		{9, 0}, {9, 0.1},
	}
	cfg := DefaultConfig()
	cfg.Perplexity = 2
	cfg.MaxIterations = 50
	result, err := Embed(data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkFinite(t, result)
}

func TestEdgeCase_HighDimensionalInput(t *testing.T) {
	data := generateBenchData(40, 80)
	cfg := DefaultConfig()
	cfg.Perplexity = 5
	cfg.MaxIterations = 20
	result, err := Embed(data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkFinite(t, result)
}

func TestEdgeCase_HugeCoordinates(t *testing.T) {
	data := [][]float64{{1e150, 0}, {-1e150, 0}, {0, 1e150}, {0, -1e150}, {1e149, 1e149}}
	cfg := DefaultConfig()
	cfg.Perplexity = 1
	cfg.MaxIterations = 10
	result, err := Embed(data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkFinite(t, result)
}

func TestEdgeCase_MaxIterationsOne(t *testing.T) {
	data := generateBenchData(10, 3)
	cfg := DefaultConfig()
	cfg.Perplexity = 2
	cfg.MaxIterations = 1
	result, err := Embed(data, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", result.Iterations)
	}
	if len(result.Costs) != 1 || result.Costs[0].Iteration != 0 {
		t.Errorf("Costs = %v, want one sample at iteration 0", result.Costs)
	}
}

func checkFinite(t *testing.T, result *Result) {
	t.Helper()
	r, c := result.Embedding.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := result.Embedding.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("embedding[%d][%d] = %v", i, j, v)
			}
		}
	}
}
