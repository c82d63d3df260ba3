package bhtsne

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// SparseAffinity is a sparse N x N matrix of non-negative affinities in
// compressed-row form. Row i owns ColIndices[RowOffsets[i]:RowOffsets[i+1]]
// and the parallel slice of Values.
type SparseAffinity struct {
	N          int
	RowOffsets []int
	ColIndices []int
	Values     []float64
}

// NNZ returns the number of stored entries.
func (p *SparseAffinity) NNZ() int { return len(p.Values) }

// Row returns the column indices and values stored for row i. The slices
// alias the matrix.
func (p *SparseAffinity) Row(i int) ([]int, []float64) {
	begin, end := p.RowOffsets[i], p.RowOffsets[i+1]
	return p.ColIndices[begin:end], p.Values[begin:end]
}

// Sum returns the total mass of the matrix.
func (p *SparseAffinity) Sum() float64 { return floats.Sum(p.Values) }

// RowSum returns the mass stored in row i.
func (p *SparseAffinity) RowSum(i int) float64 {
	_, vals := p.Row(i)
	return floats.Sum(vals)
}

// Lookup returns the value stored at (i, j), if any.
func (p *SparseAffinity) Lookup(i, j int) (float64, bool) {
	cols, vals := p.Row(i)
	for m, c := range cols {
		if c == j {
			return vals[m], true
		}
	}
	return 0, false
}

// Scale multiplies every stored value by f in place.
func (p *SparseAffinity) Scale(f float64) { floats.Scale(f, p.Values) }

// Clone returns a deep copy.
func (p *SparseAffinity) Clone() *SparseAffinity {
	return &SparseAffinity{
		N:          p.N,
		RowOffsets: slices.Clone(p.RowOffsets),
		ColIndices: slices.Clone(p.ColIndices),
		Values:     slices.Clone(p.Values),
	}
}

// Validate checks the CSR invariants: N+1 monotone offsets starting at
// zero, parallel column/value slices of length RowOffsets[N], in-range
// columns and finite non-negative values.
func (p *SparseAffinity) Validate() error {
	if p.N < 0 || len(p.RowOffsets) != p.N+1 {
		return fmt.Errorf("bhtsne: %w: %d row offsets for N=%d", ErrMalformedAffinity, len(p.RowOffsets), p.N)
	}
	if p.RowOffsets[0] != 0 {
		return fmt.Errorf("bhtsne: %w: first row offset is %d", ErrMalformedAffinity, p.RowOffsets[0])
	}
	for i := 0; i < p.N; i++ {
		if p.RowOffsets[i+1] < p.RowOffsets[i] {
			return fmt.Errorf("bhtsne: %w: row offsets decrease at row %d", ErrMalformedAffinity, i)
		}
	}
	nnz := p.RowOffsets[p.N]
	if len(p.ColIndices) != nnz || len(p.Values) != nnz {
		return fmt.Errorf("bhtsne: %w: %d columns and %d values for %d entries",
			ErrMalformedAffinity, len(p.ColIndices), len(p.Values), nnz)
	}
	for m, c := range p.ColIndices {
		if c < 0 || c >= p.N {
			return fmt.Errorf("bhtsne: %w: column %d out of range at entry %d", ErrMalformedAffinity, c, m)
		}
		if v := p.Values[m]; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bhtsne: %w: value %v at entry %d", ErrMalformedAffinity, v, m)
		}
	}
	return nil
}

// mustValidate panics on a broken invariant. Used where the matrix was
// produced by this package and a failure is a programming error.
func (p *SparseAffinity) mustValidate() {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}

// CalibrationOptions controls the per-point bandwidth search.
type CalibrationOptions struct {
	// Tolerance is the accepted |H - log(perplexity)| gap. Default: 1e-5.
	Tolerance float64
	// MaxTries caps the binary search per point. Default: 200.
	MaxTries int
	// Workers is the number of goroutines querying neighbors. Default: 1.
	Workers int
	// Logger receives progress and non-convergence records. Default: discard.
	Logger *slog.Logger
}

// Calibration reports what the bandwidth search did.
type Calibration struct {
	// K is the neighbor count per point.
	K int
	// Betas holds the final precision of every point.
	Betas []float64
	// Unconverged lists points whose search hit MaxTries; their last
	// candidate beta was used.
	Unconverged []int
}

// NeighborCount returns k = floor(3 * perplexity), clamped to the n-1 other
// points. The perplexity may not exceed k.
func NeighborCount(perplexity float64, n int) (int, error) {
	if !(perplexity > 0) || math.IsInf(perplexity, 0) {
		return 0, configError("Perplexity must be a finite value > 0, got %v", perplexity)
	}
	k := int(3 * perplexity)
	if k > n-1 {
		k = n - 1
	}
	if perplexity > float64(k) {
		return 0, configError("perplexity %v exceeds the neighbor count %d (n = %d)", perplexity, k, n)
	}
	return k, nil
}

// ComputeAffinities builds the row-normalized conditional probability
// matrix P(j|i) over the k nearest neighbors (see NeighborCount) of every point.
// Each row's Gaussian precision is found by binary search so the row
// entropy matches log(perplexity).
func ComputeAffinities(searcher NeighborSearcher, perplexity float64, opts CalibrationOptions) (*SparseAffinity, *Calibration, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-5
	}
	if opts.MaxTries <= 0 {
		opts.MaxTries = 200
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}

	n := searcher.Len()
	k, err := NeighborCount(perplexity, n)
	if err != nil {
		return nil, nil, err
	}

	p := &SparseAffinity{
		N:          n,
		RowOffsets: make([]int, n+1),
		ColIndices: make([]int, n*k),
		Values:     make([]float64, n*k),
	}
	for i := 0; i < n; i++ {
		p.RowOffsets[i+1] = p.RowOffsets[i] + k
	}

	calib := &Calibration{K: k, Betas: make([]float64, n)}
	converged := make([]bool, n)
	logU := math.Log(perplexity)

	logger.Info("calibrating affinities", "n", n, "k", k, "perplexity", perplexity)

	err = forEachRowRange(n, opts.Workers, func(r rowRange) error {
		dists := make([]float64, k)
		for i := r.start; i < r.end; i++ {
			if r.worker == 0 && opts.Workers <= 1 && i%500 == 0 && i > 0 {
				logger.Info("calibration progress", "handled", i)
			}
			neighbors, err := searcher.Search(i, k+1)
			if err != nil {
				return err
			}
			neighbors = dropSelf(neighbors, i, k)
			if len(neighbors) < k {
				return fmt.Errorf("bhtsne: neighbor search returned %d neighbors for point %d, want %d",
					len(neighbors), i, k)
			}

			for j, nb := range neighbors {
				d := nb.Distance
				if math.IsNaN(d) || math.IsInf(d, 0) {
					return &NumericalError{Stage: "calibration", Index: i, Iteration: -1, Value: d}
				}
				dists[j] = d * d
			}

			begin := p.RowOffsets[i]
			row := p.Values[begin : begin+k]
			beta, _, ok := searchBeta(dists, logU, opts.Tolerance, opts.MaxTries, row)

			sum := floats.Sum(row)
			if !(sum > 0) || math.IsInf(sum, 0) {
				return &NumericalError{Stage: "calibration", Index: i, Iteration: -1, Value: sum}
			}
			floats.Scale(1/sum, row)

			for j, nb := range neighbors {
				p.ColIndices[begin+j] = nb.Index
			}
			calib.Betas[i] = beta
			converged[i] = ok
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for i, ok := range converged {
		if !ok {
			calib.Unconverged = append(calib.Unconverged, i)
		}
	}
	if len(calib.Unconverged) > 0 {
		logger.Warn("perplexity search did not converge; using last bandwidth candidate",
			"count", len(calib.Unconverged), "max_tries", opts.MaxTries, "tolerance", opts.Tolerance)
	}
	logger.Info("calibration done", "n", n, "nnz", p.NNZ())
	return p, calib, nil
}

// dropSelf removes point i from a k+1 neighbor list. If i is absent the
// farthest neighbor is dropped instead so exactly k remain.
func dropSelf(neighbors []Neighbor, i, k int) []Neighbor {
	for m, nb := range neighbors {
		if nb.Index == i {
			return append(neighbors[:m:m], neighbors[m+1:]...)
		}
	}
	if len(neighbors) > k {
		return neighbors[:k]
	}
	return neighbors
}

// searchBeta bisects the Gaussian precision until the kernel entropy over
// dists is within tol of logU, writing the final kernel row into row. It
// returns the last candidate and false when maxTries is exhausted.
func searchBeta(dists []float64, logU, tol float64, maxTries int, row []float64) (beta float64, tries int, converged bool) {
	beta = 1.0
	betaMin := -math.MaxFloat64
	betaMax := math.MaxFloat64

	hDiff := gaussianKernel(dists, beta, row) - logU
	for tries < maxTries {
		if math.Abs(hDiff) < tol {
			return beta, tries, true
		}
		if hDiff > 0 {
			betaMin = beta
			if betaMax == math.MaxFloat64 || betaMax == -math.MaxFloat64 {
				beta *= 2
			} else {
				beta = (beta + betaMax) / 2
			}
		} else {
			betaMax = beta
			if betaMin == -math.MaxFloat64 || betaMin == math.MaxFloat64 {
				beta /= 2
			} else {
				beta = (beta + betaMin) / 2
			}
		}
		hDiff = gaussianKernel(dists, beta, row) - logU
		tries++
	}
	return beta, tries, math.Abs(hDiff) < tol
}

// gaussianKernel writes exp(-beta * d_j) for every distance into row and
// returns the entropy H = beta * Σ d_j p_j / Σ p_j + log Σ p_j.
//
// The kernel is shifted by the smallest distance so its largest term is 1.
// The shift cancels in the normalized row and H.
func gaussianKernel(dists []float64, beta float64, row []float64) float64 {
	dMin := floats.Min(dists)
	var sum, weighted float64
	for j, d := range dists {
		p := math.Exp(-beta * (d - dMin))
		row[j] = p
		sum += p
		weighted += d * p
	}
	return beta*weighted/sum + math.Log(sum) - beta*dMin
}

// entropy is the kernel entropy for a fixed distance vector.
func entropy(dists []float64, beta float64) float64 {
	return gaussianKernel(dists, beta, make([]float64, len(dists)))
}
