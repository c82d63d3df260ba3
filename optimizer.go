package bhtsne

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ExaggerationFactor scales the affinities during early exaggeration.
const ExaggerationFactor = 12.0

const (
	gainGrowth = 0.2
	gainDecay  = 0.8
)

// OptimizationState is the mutable state of one optimization run. It is
// owned by that run; nothing else may mutate it while the run is active.
type OptimizationState struct {
	Y        *mat.Dense // embedding, N x d
	Gains    *mat.Dense // per-coordinate step multipliers, floored at MinGain
	Velocity *mat.Dense // momentum-accumulated update

	Iteration   int
	Momentum    float64
	Exaggerated bool

	learningRate float64
	minGain      float64
	scaler       LearningRateScaler
}

// NewOptimizationState wraps y (not copied) with unit gains and zero
// velocity. scaler may be nil, in which case steps are scaled by
// learningRate.
func NewOptimizationState(y *mat.Dense, momentum, learningRate, minGain float64, scaler LearningRateScaler) *OptimizationState {
	r, c := y.Dims()
	gains := mat.NewDense(r, c, nil)
	gains.Apply(func(_, _ int, _ float64) float64 { return 1 }, gains)
	return &OptimizationState{
		Y:            y,
		Gains:        gains,
		Velocity:     mat.NewDense(r, c, nil),
		Momentum:     momentum,
		learningRate: learningRate,
		minGain:      minGain,
		scaler:       scaler,
	}
}

// Step applies one update: gains adapt to the sign agreement between the
// gradient and the previous velocity, then
//
//	velocity = momentum * velocity - scale(gain * grad)
//	y       += velocity
//
// A non-finite coordinate afterwards is reported as a NumericalError; the
// state is left as computed so callers can inspect it.
func (s *OptimizationState) Step(grad *mat.Dense) error {
	r, c := grad.Dims()
	step := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		g := grad.RawRowView(i)
		v := s.Velocity.RawRowView(i)
		gains := s.Gains.RawRowView(i)
		out := step.RawRowView(i)
		for j := range g {
			gains[j] = updateGain(gains[j], g[j], v[j], s.minGain)
			out[j] = gains[j] * g[j]
		}
	}

	if s.scaler != nil {
		step = s.scaler.Scale(step)
	} else {
		step.Scale(s.learningRate, step)
	}

	s.Velocity.Scale(s.Momentum, s.Velocity)
	s.Velocity.Sub(s.Velocity, step)
	s.Y.Add(s.Y, s.Velocity)

	if row, v, bad := firstNonFinite(s.Y); bad {
		return &NumericalError{Stage: "update", Index: row, Iteration: s.Iteration, Value: v}
	}
	return nil
}

// updateGain shrinks the gain by 0.8 when the gradient and the previous
// velocity share a sign and grows it by 0.2 otherwise, then applies the
// floor.
func updateGain(gain, grad, velocity, minGain float64) float64 {
	if sign(grad) == sign(velocity) {
		gain *= gainDecay
	} else {
		gain += gainGrowth
	}
	return math.Max(gain, minGain)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// momentumAt is InitialMomentum before the switch iteration and
// FinalMomentum from it onward.
func momentumAt(cfg Config, iteration int) float64 {
	if iteration < cfg.MomentumSwitchIteration {
		return cfg.InitialMomentum
	}
	return cfg.FinalMomentum
}

// exaggeratedAt reports whether affinities are exaggerated at iteration.
func exaggeratedAt(cfg Config, iteration int) bool {
	return iteration < cfg.StopLyingIteration
}
