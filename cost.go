package bhtsne

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// costEpsilon keeps the log finite for vanishing p or q.
const costEpsilon = 1e-12

// CostSample is the cost recorded at one iteration.
type CostSample struct {
	Iteration int
	Cost      float64
}

// Cost estimates the KL divergence Σ p_ij log(p_ij / q_ij) over the stored
// entries of p, with q_ij = (1 + |y_i - y_j|²)⁻¹ / sumQ. sumQ must come from
// the force pass over the same y. The value is diagnostic only.
func Cost(y *mat.Dense, p *SparseAffinity, sumQ float64) (float64, error) {
	if !(sumQ > 0) || math.IsInf(sumQ, 0) {
		return 0, &NumericalError{Stage: "cost", Index: -1, Iteration: -1, Value: sumQ}
	}
	var c float64
	for i := 0; i < p.N; i++ {
		yi := y.RawRowView(i)
		cols, vals := p.Row(i)
		for m, j := range cols {
			q := 1 / (1 + squaredEuclidean(yi, y.RawRowView(j))) / sumQ
			c += vals[m] * math.Log((vals[m]+costEpsilon)/(q+costEpsilon))
		}
	}
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, &NumericalError{Stage: "cost", Index: -1, Iteration: -1, Value: c}
	}
	return c, nil
}
