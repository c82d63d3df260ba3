package bhtsne

import (
	"container/heap"
	"math"
	"sort"
)

// KDTree is a KD-tree over flat row-major points. It serves two roles:
// exact k-nearest-neighbor queries over the input points during calibration,
// and the spatial partition behind kdForceTree during optimization.
//
// The tree is stored as a binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - node bounds are stored as min/max per dimension per node
//   - slots never touched by the build have IdxStart == IdxEnd
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int
	dims     int
	leafSize int
	metric   DistanceMetric
	idxArray []int      // tree-order position -> original index
	nodes    []NodeData // one entry per node slot
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
	numNodes      int // highest used slot + 1
}

// NewKDTree builds a KD-tree from flat row-major data with n points of
// dimensionality dims. The data is copied. leafSize controls the max points
// per leaf node.
func NewKDTree(data []float64, n, dims int, metric DistanceMetric, leafSize int) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}

	dataCopy := make([]float64, n*dims)
	copy(dataCopy, data)
	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	maxNodes := kdMaxNodes(n, leafSize)
	t := &KDTree{
		data:          dataCopy,
		n:             n,
		dims:          dims,
		leafSize:      leafSize,
		metric:        metric,
		idxArray:      idxArray,
		nodes:         make([]NodeData, maxNodes),
		nodeBoundsMin: make([]float64, maxNodes*dims),
		nodeBoundsMax: make([]float64, maxNodes*dims),
	}

	if n > 0 {
		t.buildNode(0, 0, n)
	}
	return t
}

// kdMaxNodes returns an upper bound on the number of node slots needed for
// a median-split tree with n points and the given leaf size.
func kdMaxNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	for v := 1; v < leaves; v *= 2 {
		depth++
	}
	// Median splits can push one extra level below the balanced depth.
	return (1 << (depth + 2)) - 1
}

func (t *KDTree) buildNode(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, NodeData{})
		t.nodeBoundsMin = append(t.nodeBoundsMin, make([]float64, t.dims)...)
		t.nodeBoundsMax = append(t.nodeBoundsMax, make([]float64, t.dims)...)
	}
	if nodeID+1 > t.numNodes {
		t.numNodes = nodeID + 1
	}

	t.computeNodeBounds(nodeID, start, end)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		return
	}

	// Split on the dimension with the greatest spread. When every dimension
	// is flat (coincident points) keep them together in one leaf.
	splitDim := 0
	maxSpread := -1.0
	for d := 0; d < t.dims; d++ {
		spread := t.nodeBoundsMax[nodeID*t.dims+d] - t.nodeBoundsMin[nodeID*t.dims+d]
		if spread > maxSpread {
			maxSpread = spread
			splitDim = d
		}
	}
	if maxSpread <= 0 {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		return
	}

	t.sortByDimension(start, end, splitDim)
	mid := start + count/2

	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end}
	t.buildNode(2*nodeID+1, start, mid)
	t.buildNode(2*nodeID+2, mid, end)
}

func (t *KDTree) computeNodeBounds(nodeID, start, end int) {
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		t.nodeBoundsMin[base+d] = math.Inf(1)
		t.nodeBoundsMax[base+d] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		row := t.row(t.idxArray[i])
		for d, v := range row {
			if v < t.nodeBoundsMin[base+d] {
				t.nodeBoundsMin[base+d] = v
			}
			if v > t.nodeBoundsMax[base+d] {
				t.nodeBoundsMax[base+d] = v
			}
		}
	}
}

// sortByDimension sorts idxArray[start:end] by the given dimension, breaking
// ties on the original index so the layout is deterministic.
func (t *KDTree) sortByDimension(start, end, dim int) {
	sub := t.idxArray[start:end]
	dims := t.dims
	data := t.data
	sort.Slice(sub, func(i, j int) bool {
		a, b := data[sub[i]*dims+dim], data[sub[j]*dims+dim]
		if a != b {
			return a < b
		}
		return sub[i] < sub[j]
	})
}

func (t *KDTree) row(i int) []float64 { return t.data[i*t.dims : (i+1)*t.dims] }

func (t *KDTree) valid(nodeID int) bool {
	return nodeID < t.numNodes && t.nodes[nodeID].IdxEnd > t.nodes[nodeID].IdxStart
}

func (t *KDTree) Data() []float64           { return t.data }
func (t *KDTree) NumPoints() int            { return t.n }
func (t *KDTree) NumFeatures() int          { return t.dims }
func (t *KDTree) IdxArray() []int           { return t.idxArray }
func (t *KDTree) NumNodes() int             { return t.numNodes }
func (t *KDTree) NodeDataArray() []NodeData { return t.nodes[:t.numNodes] }

// QueryKNN finds the k nearest neighbors of query, sorted by ascending
// distance. Ties are broken by original index.
func (t *KDTree) QueryKNN(query []float64, k int) []Neighbor {
	if k <= 0 || t.n == 0 {
		return nil
	}
	h := &knnHeap{}
	t.knnSearch(0, query, k, h)

	out := make([]Neighbor, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Neighbor)
	}
	return out
}

// knnSearch performs a single-tree KNN traversal using a max-heap of size k.
func (t *KDTree) knnSearch(nodeID int, query []float64, k int, h *knnHeap) {
	if !t.valid(nodeID) {
		return
	}
	node := t.nodes[nodeID]

	if node.IsLeaf {
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			idx := t.idxArray[i]
			c := Neighbor{Index: idx, Distance: t.metric.Distance(query, t.row(idx))}
			if h.Len() < k {
				heap.Push(h, c)
			} else if h.less((*h)[0], c) {
				(*h)[0] = c
				heap.Fix(h, 0)
			}
		}
		return
	}

	left, right := 2*nodeID+1, 2*nodeID+2
	leftRdist := t.minRdistPoint(left, query)
	rightRdist := t.minRdistPoint(right, query)

	nearChild, farChild := left, right
	farRdist := rightRdist
	if rightRdist < leftRdist {
		nearChild, farChild = right, left
		farRdist = leftRdist
	}

	t.knnSearch(nearChild, query, k, h)

	if h.Len() < k || t.metric.DistToRdist((*h)[0].Distance) >= farRdist {
		t.knnSearch(farChild, query, k, h)
	}
}

// minRdistPoint returns a lower bound in reduced-distance space on the
// distance between point and any point in node.
func (t *KDTree) minRdistPoint(node int, point []float64) float64 {
	if !t.valid(node) {
		return math.Inf(1)
	}
	base := node * t.dims

	_, chebyshev := t.metric.(ChebyshevMetric)
	p := metricP(t.metric)
	var rdist float64
	for j := 0; j < t.dims; j++ {
		lo := t.nodeBoundsMin[base+j]
		hi := t.nodeBoundsMax[base+j]
		var d float64
		if point[j] < lo {
			d = lo - point[j]
		} else if point[j] > hi {
			d = point[j] - hi
		}
		switch {
		case chebyshev:
			rdist = math.Max(rdist, d)
		case p == 1:
			rdist += d
		default:
			rdist += d * d
		}
	}
	return rdist
}

// metricP returns the Minkowski exponent of an axis-decomposable metric.
func metricP(m DistanceMetric) float64 {
	switch m.(type) {
	case ManhattanMetric:
		return 1
	case ChebyshevMetric:
		return math.Inf(1)
	default:
		return 2
	}
}

// knnHeap is a max-heap of Neighbor (farthest on top) used as a bounded
// priority queue. Equal distances rank the larger index as farther.
type knnHeap []Neighbor

func (h knnHeap) less(a, b Neighbor) bool {
	// reports whether b is strictly closer than a
	if a.Distance != b.Distance {
		return b.Distance < a.Distance
	}
	return b.Index < a.Index
}

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h.less(h[i], h[j]) }
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(Neighbor)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
