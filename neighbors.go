package bhtsne

import (
	"container/heap"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/vptree"
)

// BruteForceSearcher scans every point for every query. It works with any
// DistanceMetric, including non-metric dissimilarities such as cosine.
type BruteForceSearcher struct {
	data   []float64
	n      int
	dims   int
	metric DistanceMetric
}

// NewBruteForceSearcher indexes flat row-major data without copying it.
func NewBruteForceSearcher(data []float64, n, dims int, metric DistanceMetric) *BruteForceSearcher {
	return &BruteForceSearcher{data: data, n: n, dims: dims, metric: metric}
}

func (s *BruteForceSearcher) Len() int { return s.n }

func (s *BruteForceSearcher) Search(i, k int) ([]Neighbor, error) {
	if i < 0 || i >= s.n {
		return nil, fmt.Errorf("bhtsne: query index %d out of range [0, %d)", i, s.n)
	}
	if k <= 0 {
		return nil, nil
	}
	query := s.data[i*s.dims : (i+1)*s.dims]
	h := &knnHeap{}
	for j := 0; j < s.n; j++ {
		c := Neighbor{Index: j, Distance: s.metric.Distance(query, s.data[j*s.dims:(j+1)*s.dims])}
		if h.Len() < k {
			heap.Push(h, c)
		} else if h.less((*h)[0], c) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
	}
	out := make([]Neighbor, h.Len())
	for idx := len(out) - 1; idx >= 0; idx-- {
		out[idx] = heap.Pop(h).(Neighbor)
	}
	return out, nil
}

// KDTreeSearcher answers queries from a KDTree. Only axis-decomposable
// metrics are supported (see KDTreeValidMetric).
type KDTreeSearcher struct {
	tree *KDTree
}

// NewKDTreeSearcher builds a KD-tree over flat row-major data.
func NewKDTreeSearcher(data []float64, n, dims int, metric DistanceMetric, leafSize int) (*KDTreeSearcher, error) {
	if !KDTreeValidMetric(metric) {
		return nil, configError("metric %T is not supported by the KD-tree searcher", metric)
	}
	return &KDTreeSearcher{tree: NewKDTree(data, n, dims, metric, leafSize)}, nil
}

func (s *KDTreeSearcher) Len() int { return s.tree.NumPoints() }

func (s *KDTreeSearcher) Search(i, k int) ([]Neighbor, error) {
	if i < 0 || i >= s.tree.NumPoints() {
		return nil, fmt.Errorf("bhtsne: query index %d out of range [0, %d)", i, s.tree.NumPoints())
	}
	return s.tree.QueryKNN(s.tree.row(i), k), nil
}

// vpPoint is a vantage-point tree element carrying its row index.
type vpPoint struct {
	index  int
	coords []float64
	metric DistanceMetric
}

func (p vpPoint) Distance(c vptree.Comparable) float64 {
	return p.metric.Distance(p.coords, c.(vpPoint).coords)
}

// VPTreeSearcher answers queries from a gonum vantage-point tree. Pruning
// assumes the metric obeys the triangle inequality.
type VPTreeSearcher struct {
	tree   *vptree.Tree
	points []vpPoint
}

// NewVPTreeSearcher builds a vantage-point tree over flat row-major data.
// seed fixes vantage point selection so searches are reproducible.
func NewVPTreeSearcher(data []float64, n, dims int, metric DistanceMetric, seed uint64) (*VPTreeSearcher, error) {
	if !VPTreeValidMetric(metric) {
		return nil, configError("metric %T is not supported by the vantage-point tree searcher", metric)
	}
	points := make([]vpPoint, n)
	comparables := make([]vptree.Comparable, n)
	for i := range points {
		points[i] = vpPoint{index: i, coords: data[i*dims : (i+1)*dims], metric: metric}
		comparables[i] = points[i]
	}
	tree, err := vptree.New(comparables, 2, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	if err != nil {
		return nil, fmt.Errorf("bhtsne: build vantage-point tree: %w: %w", ErrInvalidInput, err)
	}
	return &VPTreeSearcher{tree: tree, points: points}, nil
}

func (s *VPTreeSearcher) Len() int { return len(s.points) }

func (s *VPTreeSearcher) Search(i, k int) ([]Neighbor, error) {
	if i < 0 || i >= len(s.points) {
		return nil, fmt.Errorf("bhtsne: query index %d out of range [0, %d)", i, len(s.points))
	}
	if k <= 0 {
		return nil, nil
	}
	keeper := vptree.NewNKeeper(k)
	s.tree.NearestSet(keeper, s.points[i])

	out := make([]Neighbor, 0, keeper.Len())
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, Neighbor{Index: c.Comparable.(vpPoint).index, Distance: c.Dist})
	}
	sortNeighbors(out)
	return out, nil
}

// sortNeighbors orders by distance, then index, matching the KD-tree and
// brute-force searchers so ties resolve identically.
func sortNeighbors(ns []Neighbor) {
	h := knnHeap(ns)
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && h.less(ns[j-1], ns[j]); j-- {
			ns[j-1], ns[j] = ns[j], ns[j-1]
		}
	}
}
