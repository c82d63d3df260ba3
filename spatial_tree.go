package bhtsne

import "gonum.org/v1/gonum/mat"

// NodeData describes a single node in a KD-tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
}

// Neighbor is one result of a nearest-neighbor query.
type Neighbor struct {
	Index    int
	Distance float64
}

// NeighborSearcher answers k-nearest-neighbor queries over a fixed set of
// input points.
type NeighborSearcher interface {
	// Search returns up to k neighbors of point i, nearest first. The
	// result may include i itself at distance zero; callers drop it.
	Search(i, k int) ([]Neighbor, error)

	// Len returns the number of indexed points.
	Len() int
}

// ForceTree is a read-only spatial snapshot of the embedding for one
// optimizer iteration. Implementations must be safe for concurrent
// NonEdgeForces calls on distinct points.
type ForceTree interface {
	// EdgeForces writes the attractive force for rows [start, end) into
	// posF: for every stored edge (i, j, p_ij), p_ij * q_ij * (y_i - y_j).
	EdgeForces(p *SparseAffinity, posF *mat.Dense, start, end int)

	// NonEdgeForces accumulates the unnormalized repulsive force on point i
	// into negRow and returns point i's contribution to sumQ.
	NonEdgeForces(i int, theta float64, negRow []float64) float64
}

// TreeBuilder builds a fresh ForceTree from the current embedding.
type TreeBuilder func(y *mat.Dense) (ForceTree, error)
