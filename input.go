package bhtsne

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// initialStdDev is the spread of the starting embedding.
const initialStdDev = 1e-4

// flattenInput copies points into a flat row-major slice, rejecting ragged
// rows and non-finite coordinates.
func flattenInput(data [][]float64) (flat []float64, n, dims int, err error) {
	n = len(data)
	if n == 0 {
		return nil, 0, 0, nil
	}
	dims = len(data[0])
	if dims == 0 {
		return nil, 0, 0, fmt.Errorf("bhtsne: %w: points have zero dimensions", ErrInvalidInput)
	}
	flat = make([]float64, n*dims)
	for i, row := range data {
		if len(row) != dims {
			return nil, 0, 0, fmt.Errorf("bhtsne: %w: point %d has %d dimensions, want %d",
				ErrInvalidInput, i, len(row), dims)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, 0, fmt.Errorf("bhtsne: %w: point %d coordinate %d is %v", ErrInvalidInput, i, j, v)
			}
		}
		copy(flat[i*dims:], row)
	}
	return flat, n, dims, nil
}

// normalizeInput centers every column and divides all values by the largest
// absolute value, in place. A constant input is left centered.
func normalizeInput(flat []float64, n, dims int) {
	x := mat.NewDense(n, dims, flat)
	col := make([]float64, n)
	for j := 0; j < dims; j++ {
		mat.Col(col, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			x.Set(i, j, x.At(i, j)-mean)
		}
	}

	maxAbs := math.Max(math.Abs(floats.Max(flat)), math.Abs(floats.Min(flat)))
	if maxAbs > 0 {
		floats.Scale(1/maxAbs, flat)
	}
}

// randomEmbedding draws an n x dims embedding from N(0, initialStdDev²).
func randomEmbedding(n, dims int, seed uint64) *mat.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: initialStdDev, Src: rand.NewPCG(seed, seed+1)}
	y := mat.NewDense(n, dims, nil)
	y.Apply(func(_, _ int, _ float64) float64 { return normal.Rand() }, y)
	return y
}

// pcaEmbedding projects the input on its first dims principal components,
// centered and scaled so the first component has standard deviation
// initialStdDev. ok is false when the input has too few points or features.
func pcaEmbedding(flat []float64, n, inDims, dims int) (y *mat.Dense, ok bool) {
	if n < 2 || inDims < dims {
		return nil, false
	}
	x := mat.NewDense(n, inDims, flat)

	var pc stat.PC
	if !pc.PrincipalComponents(x, nil) {
		return nil, false
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if _, c := vecs.Dims(); c < dims {
		return nil, false
	}

	y = mat.NewDense(n, dims, nil)
	y.Mul(x, vecs.Slice(0, inDims, 0, dims))

	col := make([]float64, n)
	for j := 0; j < dims; j++ {
		mat.Col(col, j, y)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			y.Set(i, j, y.At(i, j)-mean)
		}
	}

	mat.Col(col, 0, y)
	if sd := stat.StdDev(col, nil); sd > 0 {
		y.Scale(initialStdDev/sd, y)
	}
	return y, true
}
