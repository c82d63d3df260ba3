package bhtsne

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LearningRateScaler turns a gain-weighted gradient into the step that is
// subtracted from the velocity. Implementations may keep state across calls
// and are used by exactly one optimization run.
type LearningRateScaler interface {
	Scale(g *mat.Dense) *mat.Dense
}

// adaGradEpsilon guards the division for coordinates with no history.
const adaGradEpsilon = 1e-6

// AdaGrad scales each coordinate by the inverse root of its accumulated
// squared gradients.
type AdaGrad struct {
	learningRate float64
	history      *mat.Dense
}

// NewAdaGrad returns an AdaGrad scaler for a rows x cols gradient.
func NewAdaGrad(rows, cols int, learningRate float64) *AdaGrad {
	return &AdaGrad{learningRate: learningRate, history: mat.NewDense(rows, cols, nil)}
}

// Scale returns learningRate * g / (sqrt(history) + eps) after adding g² to
// the history. g is not modified.
func (a *AdaGrad) Scale(g *mat.Dense) *mat.Dense {
	var sq mat.Dense
	sq.MulElem(g, g)
	a.history.Add(a.history, &sq)

	var out mat.Dense
	out.Apply(func(i, j int, v float64) float64 {
		return a.learningRate * v / (math.Sqrt(a.history.At(i, j)) + adaGradEpsilon)
	}, g)
	return &out
}
