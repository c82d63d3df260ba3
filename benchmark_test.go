package bhtsne

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func generateBenchData(n, dims int) [][]float64 {
	rng := rand.New(rand.NewSource(42))
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, dims)
		for j := range data[i] {
			data[i][j] = rng.Float64() * 100
		}
	}
	return data
}

func generateFlatData(n, dims int) []float64 {
	rng := rand.New(rand.NewSource(42))
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	return data
}

// --- Neighbor search ---

func benchSearch(b *testing.B, algo SearchAlgorithm, n int) {
	b.Helper()
	dims := 10
	data := generateFlatData(n, dims)
	cfg := DefaultConfig()
	cfg.Metric = EuclideanMetric{}
	s, err := newSearcher(algo, data, n, dims, cfg)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Search(i%n, 91); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch_KDTree_5000(b *testing.B) { benchSearch(b, SearchKDTree, 5000) }
func BenchmarkSearch_VPTree_5000(b *testing.B) { benchSearch(b, SearchVPTree, 5000) }
func BenchmarkSearch_Brute_5000(b *testing.B)  { benchSearch(b, SearchBrute, 5000) }

// --- Calibration ---

func benchCalibration(b *testing.B, n int) {
	b.Helper()
	dims := 10
	data := generateFlatData(n, dims)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, _ := NewKDTreeSearcher(data, n, dims, EuclideanMetric{}, 40)
		if _, _, err := ComputeAffinities(s, 30, CalibrationOptions{Workers: 4}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCalibration_1000(b *testing.B) { benchCalibration(b, 1000) }
func BenchmarkCalibration_5000(b *testing.B) { benchCalibration(b, 5000) }

// --- Gradient ---

func benchGradient(b *testing.B, build TreeBuilder, n int) {
	b.Helper()
	dims := 10
	data := generateFlatData(n, dims)
	s, _ := NewKDTreeSearcher(data, n, dims, EuclideanMetric{}, 40)
	cond, _, err := ComputeAffinities(s, 30, CalibrationOptions{Workers: 4})
	if err != nil {
		b.Fatal(err)
	}
	p, err := Symmetrize(cond)
	if err != nil {
		b.Fatal(err)
	}
	y := mat.NewDense(n, 2, generateFlatData(n, 2))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree, err := build(y)
		if err != nil {
			b.Fatal(err)
		}
		if _, _, err := ComputeGradient(y, p, tree, 0.5, 4); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGradient_BarnesHut_5000(b *testing.B) { benchGradient(b, BarnesHutBuilder(), 5000) }
func BenchmarkGradient_KDTree_5000(b *testing.B)    { benchGradient(b, KDTreeBuilder(), 5000) }

// --- Full pipeline ---

func benchFullPipeline(b *testing.B, n int) {
	b.Helper()
	data := generateBenchData(n, 10)
	cfg := DefaultConfig()
	cfg.MaxIterations = 100
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Embed(data, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFullPipeline_500(b *testing.B)  { benchFullPipeline(b, 500) }
func BenchmarkFullPipeline_2000(b *testing.B) { benchFullPipeline(b, 2000) }
