package bhtsne

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// kdForceTree is a Barnes-Hut tree over the embedding for any number of
// output dimensions. It reuses KDTree's median-split partition and adds a
// center of mass and a cell size per node.
type kdForceTree struct {
	*KDTree
	com   []float64 // com[node*dims .. (node+1)*dims) = center of mass
	width []float64 // widest side of the node's bounding box
}

// newKDForceTree snapshots y into a fresh tree.
func newKDForceTree(y *mat.Dense) *kdForceTree {
	n, dims := y.Dims()
	t := &kdForceTree{KDTree: NewKDTree(flatten(y), n, dims, EuclideanMetric{}, 1)}

	t.com = make([]float64, t.numNodes*dims)
	t.width = make([]float64, t.numNodes)
	for node := 0; node < t.numNodes; node++ {
		if !t.valid(node) {
			continue
		}
		nd := t.nodes[node]
		center := t.com[node*dims : (node+1)*dims]
		for i := nd.IdxStart; i < nd.IdxEnd; i++ {
			for d, v := range t.row(t.idxArray[i]) {
				center[d] += v
			}
		}
		count := float64(nd.IdxEnd - nd.IdxStart)
		for d := range center {
			center[d] /= count
			w := t.nodeBoundsMax[node*dims+d] - t.nodeBoundsMin[node*dims+d]
			t.width[node] = math.Max(t.width[node], w)
		}
	}
	return t
}

// KDTreeBuilder returns a TreeBuilder producing KD-tree force trees.
func KDTreeBuilder() TreeBuilder {
	return func(y *mat.Dense) (ForceTree, error) { return newKDForceTree(y), nil }
}

func (t *kdForceTree) EdgeForces(p *SparseAffinity, posF *mat.Dense, start, end int) {
	edgeForces(t.data, t.dims, p, posF, start, end)
}

func (t *kdForceTree) NonEdgeForces(i int, theta float64, negRow []float64) float64 {
	if t.n == 0 {
		return 0
	}
	return t.nonEdge(0, i, t.row(i), theta, negRow)
}

func (t *kdForceTree) nonEdge(node, i int, yi []float64, theta float64, negRow []float64) float64 {
	if !t.valid(node) {
		return 0
	}
	nd := t.nodes[node]

	if nd.IsLeaf {
		var sumQ float64
		for m := nd.IdxStart; m < nd.IdxEnd; m++ {
			j := t.idxArray[m]
			if j == i {
				continue
			}
			sumQ += repulse(yi, t.row(j), 1, negRow)
		}
		return sumQ
	}

	center := t.com[node*t.dims : (node+1)*t.dims]
	d2 := squaredEuclidean(yi, center)
	if d2 > 0 && t.width[node]/math.Sqrt(d2) < theta {
		return repulse(yi, center, float64(nd.IdxEnd-nd.IdxStart), negRow)
	}

	return t.nonEdge(2*node+1, i, yi, theta, negRow) +
		t.nonEdge(2*node+2, i, yi, theta, negRow)
}

// repulse adds the repulsion of mass at c on yi into negRow and returns the
// mass's share of sumQ.
func repulse(yi, c []float64, mass float64, negRow []float64) float64 {
	q := 1 / (1 + squaredEuclidean(yi, c))
	mult := mass * q * q
	for d := range negRow {
		negRow[d] += mult * (yi[d] - c[d])
	}
	return mass * q
}

// edgeForces accumulates p_ij * q_ij * (y_i - y_j) for every stored edge in
// rows [start, end). y is flat row-major with dims columns.
func edgeForces(y []float64, dims int, p *SparseAffinity, posF *mat.Dense, start, end int) {
	for i := start; i < end; i++ {
		yi := y[i*dims : (i+1)*dims]
		out := posF.RawRowView(i)
		cols, vals := p.Row(i)
		for m, j := range cols {
			yj := y[j*dims : (j+1)*dims]
			q := 1 / (1 + squaredEuclidean(yi, yj))
			mult := vals[m] * q
			for d := range out {
				out[d] += mult * (yi[d] - yj[d])
			}
		}
	}
}

// flatten returns the row-major contents of m as one contiguous slice.
func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	raw := m.RawMatrix()
	if raw.Stride == c {
		return raw.Data[:r*c]
	}
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
