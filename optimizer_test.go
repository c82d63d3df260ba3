package bhtsne

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestUpdateGain(t *testing.T) {
	tests := []struct {
		name          string
		gain, grad, v float64
		minGain, want float64
	}{
		{"same sign positive shrinks", 1, 0.3, 2, 0.01, 0.8},
		{"same sign negative shrinks", 1, -0.3, -2, 0.01, 0.8},
		{"both zero shrink", 1, 0, 0, 0.01, 0.8},
		{"opposite sign grows", 1, 0.3, -2, 0.01, 1.2},
		{"zero velocity grows", 1, 0.3, 0, 0.01, 1.2},
		{"zero gradient grows", 1, 0, 0.5, 0.01, 1.2},
		{"floor applies", 0.011, 1, 1, 0.01, 0.01},
		{"floor above growth", 0.1, 1, -1, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, updateGain(tt.gain, tt.grad, tt.v, tt.minGain), 1e-15)
		})
	}
}

func TestOptimizationState_Step(t *testing.T) {
	y := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	s := NewOptimizationState(y, 0.5, 10, 0.01, nil)

	grad := mat.NewDense(2, 2, []float64{0.1, -0.2, 0, 0.4})
	require.NoError(t, s.Step(grad))

	// First step: velocity is zero, so every nonzero gradient sign differs
	// and gains grow to 1.2; the zero gradient matches and shrinks to 0.8.
	wantGains := []float64{1.2, 1.2, 0.8, 1.2}
	wantV := []float64{-1.2, 2.4, 0, -4.8}
	wantY := []float64{-1.2, 2.4, 1, -3.8}
	for k := range wantGains {
		i, j := k/2, k%2
		assert.InDelta(t, wantGains[k], s.Gains.At(i, j), 1e-12, "gain[%d]", k)
		assert.InDelta(t, wantV[k], s.Velocity.At(i, j), 1e-12, "velocity[%d]", k)
		assert.InDelta(t, wantY[k], y.At(i, j), 1e-12, "y[%d]", k)
	}

	// Second step with the same gradient: velocity now opposes the
	// gradient, so gains grow again, and momentum carries half the old
	// velocity.
	require.NoError(t, s.Step(grad))
	assert.InDelta(t, 1.4, s.Gains.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5*-1.2-10*1.4*0.1, s.Velocity.At(0, 0), 1e-12)
	assert.InDelta(t, 0.64, s.Gains.At(1, 0), 1e-12)
}

func TestOptimizationState_StepWithScaler(t *testing.T) {
	y := mat.NewDense(1, 2, nil)
	s := NewOptimizationState(y, 0, 1, 0.01, NewAdaGrad(1, 2, 0.5))
	require.NoError(t, s.Step(mat.NewDense(1, 2, []float64{2, -4})))

	// AdaGrad on gain*g = (2.4, -4.8) with empty history gives
	// 0.5 * g / |g| per coordinate.
	assert.InDelta(t, -0.5, y.At(0, 0), 1e-6)
	assert.InDelta(t, 0.5, y.At(0, 1), 1e-6)
}

func TestOptimizationState_NonFinite(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{0})
	s := NewOptimizationState(y, 0.5, 1, 0.01, nil)
	s.Iteration = 7
	err := s.Step(mat.NewDense(1, 1, []float64{math.Inf(1)}))

	var ne *NumericalError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "update", ne.Stage)
	assert.Equal(t, 7, ne.Iteration)
	assert.ErrorIs(t, err, ErrNumericalDegeneracy)
}

func TestMomentumSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MomentumSwitchIteration = 3
	assert.Equal(t, cfg.InitialMomentum, momentumAt(cfg, 0))
	assert.Equal(t, cfg.InitialMomentum, momentumAt(cfg, 2))
	assert.Equal(t, cfg.FinalMomentum, momentumAt(cfg, 3))
	assert.Equal(t, cfg.FinalMomentum, momentumAt(cfg, 100))
}

func TestExaggerationSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopLyingIteration = 2
	assert.True(t, exaggeratedAt(cfg, 0))
	assert.True(t, exaggeratedAt(cfg, 1))
	assert.False(t, exaggeratedAt(cfg, 2))

	cfg.StopLyingIteration = 0
	assert.False(t, exaggeratedAt(cfg, 0))
}

func TestAdaGrad_AccumulatesHistory(t *testing.T) {
	a := NewAdaGrad(1, 1, 1)
	g := mat.NewDense(1, 1, []float64{3})

	first := a.Scale(g)
	assert.InDelta(t, 3/(3+adaGradEpsilon), first.At(0, 0), 1e-15)

	second := a.Scale(g)
	assert.InDelta(t, 3/(math.Sqrt(18)+adaGradEpsilon), second.At(0, 0), 1e-15)
	assert.Equal(t, 3.0, g.At(0, 0), "input must not be modified")
}

func TestAdaGrad_ZeroGradient(t *testing.T) {
	a := NewAdaGrad(2, 1, 0.1)
	out := a.Scale(mat.NewDense(2, 1, nil))
	assert.Equal(t, 0.0, out.At(0, 0))
	assert.Equal(t, 0.0, out.At(1, 0))
}
