package bhtsne

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ComputeGradient returns the Barnes-Hut t-SNE gradient of the embedding y
// under the joint affinities p, and the normalization constant sumQ.
//
// Attractive forces are summed exactly over the sparse edges; repulsive
// forces come from tree, which must have been built from y. The gradient is
// posF - negF/sumQ. Work is split into contiguous row ranges; each worker
// writes only its own rows, including its rows' shares of sumQ, which are
// summed in row order afterwards. The result does not depend on workers.
func ComputeGradient(y *mat.Dense, p *SparseAffinity, tree ForceTree, theta float64, workers int) (*mat.Dense, float64, error) {
	n, dims := y.Dims()
	if p.N != n {
		panic("bhtsne: affinity size does not match embedding rows")
	}
	if workers < 1 {
		workers = 1
	}

	posF := mat.NewDense(n, dims, nil)
	negF := mat.NewDense(n, dims, nil)
	rowQ := make([]float64, n)

	err := forEachRowRange(n, workers, func(r rowRange) error {
		tree.EdgeForces(p, posF, r.start, r.end)
		for i := r.start; i < r.end; i++ {
			rowQ[i] = tree.NonEdgeForces(i, theta, negF.RawRowView(i))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sumQ := floats.Sum(rowQ)
	if !(sumQ > 0) || math.IsInf(sumQ, 0) {
		return nil, 0, &NumericalError{Stage: "gradient", Index: -1, Iteration: -1, Value: sumQ}
	}

	negF.Scale(1/sumQ, negF)
	posF.Sub(posF, negF)

	if row, v, bad := firstNonFinite(posF); bad {
		return nil, 0, &NumericalError{Stage: "gradient", Index: row, Iteration: -1, Value: v}
	}
	return posF, sumQ, nil
}

// firstNonFinite returns the first row holding a NaN or infinite value.
func firstNonFinite(m *mat.Dense) (row int, v float64, found bool) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for _, x := range m.RawRowView(i) {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return i, x, true
			}
		}
	}
	return -1, 0, false
}
