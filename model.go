package bhtsne

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Phase is the lifecycle stage of a Model.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseCalibrating
	PhaseOptimizing
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseCalibrating:
		return "calibrating"
	case PhaseOptimizing:
		return "optimizing"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ErrNotFitted is returned by Model methods that need an optimization state
// with at least two points.
var ErrNotFitted = errors.New("bhtsne: model has no optimization state")

// Model runs one t-SNE fit. It is not safe for concurrent use; listeners
// run on the fitting goroutine and may call the read-only methods.
type Model struct {
	cfg   Config
	build TreeBuilder

	phase Phase
	n     int

	base  *SparseAffinity // symmetrized affinities, never exaggerated
	p     *SparseAffinity // working copy seen by the gradient
	calib *Calibration
	state *OptimizationState
	y     *mat.Dense // final embedding when there is no optimization state

	costs      []CostSample
	iterations int
}

// NewModel validates cfg and returns an unfitted model.
func NewModel(cfg Config) (*Model, error) {
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	build, err := treeBuilder(cfg)
	if err != nil {
		return nil, err
	}
	return &Model{cfg: cfg, build: build}, nil
}

// Phase returns the current lifecycle stage.
func (m *Model) Phase() Phase { return m.phase }

// Iteration returns the number of completed gradient steps.
func (m *Model) Iteration() int { return m.iterations }

// Config returns the resolved configuration, defaults applied.
func (m *Model) Config() Config { return m.cfg }

// Affinities returns the symmetrized joint probabilities, or nil before
// calibration has finished.
func (m *Model) Affinities() *SparseAffinity { return m.base }

// Exaggerated reports whether the affinities currently seen by the gradient
// are scaled by ExaggerationFactor.
func (m *Model) Exaggerated() bool { return m.state != nil && m.state.Exaggerated }

// Embedding returns a copy of the current embedding, or nil before Fit.
func (m *Model) Embedding() *mat.Dense {
	switch {
	case m.state != nil:
		return mat.DenseCopyOf(m.state.Y)
	case m.y != nil:
		if r, _ := m.y.Dims(); r == 0 {
			return &mat.Dense{}
		}
		return mat.DenseCopyOf(m.y)
	default:
		return nil
	}
}

// Gradient computes the gradient of the current embedding against the
// affinities the optimizer currently uses, exaggeration included.
func (m *Model) Gradient() (*mat.Dense, float64, error) {
	if m.state == nil {
		return nil, 0, ErrNotFitted
	}
	return m.gradient()
}

// Score returns the KL cost of the current embedding against the plain
// (unexaggerated) affinities.
func (m *Model) Score() (float64, error) {
	if m.state == nil {
		return 0, ErrNotFitted
	}
	_, sumQ, err := m.gradient()
	if err != nil {
		return 0, err
	}
	return Cost(m.state.Y, m.base, sumQ)
}

func (m *Model) gradient() (*mat.Dense, float64, error) {
	tree, err := m.build(m.state.Y)
	if err != nil {
		return nil, 0, err
	}
	return ComputeGradient(m.state.Y, m.p, tree, m.cfg.Theta, m.cfg.Workers)
}

// Result summarizes the fit so far.
func (m *Model) Result() *Result {
	r := &Result{
		Embedding:  m.Embedding(),
		Affinities: m.base,
		Costs:      append([]CostSample(nil), m.costs...),
		Iterations: m.iterations,
	}
	if m.calib != nil {
		r.Neighbors = m.calib.K
		r.Unconverged = append([]int(nil), m.calib.Unconverged...)
	}
	return r
}

// Fit calibrates the affinities of data and optimizes the embedding. It may
// be called once. The context is checked before every iteration; on
// cancellation the embedding holds the last completed step.
func (m *Model) Fit(ctx context.Context, data [][]float64) error {
	if m.phase != PhaseUninitialized {
		return fmt.Errorf("bhtsne: Fit called on a model in phase %s", m.phase)
	}
	cfg := m.cfg

	flat, n, dims, err := flattenInput(data)
	if err != nil {
		return err
	}
	m.n = n
	if cfg.InitialEmbedding != nil {
		if r, _ := cfg.InitialEmbedding.Dims(); r != n {
			return configError("InitialEmbedding has %d rows, want %d points", r, n)
		}
	}

	switch n {
	case 0:
		m.y = &mat.Dense{}
		m.phase = PhaseTerminated
		return nil
	case 1:
		if cfg.InitialEmbedding != nil {
			m.y = mat.DenseCopyOf(cfg.InitialEmbedding)
		} else {
			m.y = mat.NewDense(1, cfg.Dimensions, nil)
		}
		m.phase = PhaseTerminated
		cfg.Logger.Debug("single point embedded without optimization")
		return nil
	}

	if _, err := NeighborCount(cfg.Perplexity, n); err != nil {
		return err
	}

	if cfg.Normalize {
		normalizeInput(flat, n, dims)
	}

	m.phase = PhaseCalibrating
	base, calib, err := calibrate(flat, n, dims, cfg)
	if err != nil {
		m.phase = PhaseTerminated
		return err
	}
	m.base, m.calib = base, calib

	m.state = m.initState(flat, n, dims)
	m.p = base.Clone()
	if exaggeratedAt(cfg, 0) {
		m.p.Scale(ExaggerationFactor)
		m.state.Exaggerated = true
	}

	m.phase = PhaseOptimizing
	defer func() { m.phase = PhaseTerminated }()
	return m.optimize(ctx)
}

// initState builds the starting embedding with unit gains and zero
// velocity.
func (m *Model) initState(flat []float64, n, dims int) *OptimizationState {
	cfg := m.cfg

	var y *mat.Dense
	switch {
	case cfg.InitialEmbedding != nil:
		y = mat.DenseCopyOf(cfg.InitialEmbedding)
	case cfg.Init == InitPCA:
		var ok bool
		if y, ok = pcaEmbedding(flat, n, dims, cfg.Dimensions); !ok {
			cfg.Logger.Warn("pca initialization unavailable, using random initialization",
				"n", n, "input_dims", dims, "dims", cfg.Dimensions)
			y = randomEmbedding(n, cfg.Dimensions, cfg.Seed)
		}
	default:
		y = randomEmbedding(n, cfg.Dimensions, cfg.Seed)
	}

	var scaler LearningRateScaler
	if cfg.UseAdaGrad {
		scaler = NewAdaGrad(n, cfg.Dimensions, cfg.LearningRate)
	}
	return NewOptimizationState(y, momentumAt(cfg, 0), cfg.LearningRate, cfg.MinGain, scaler)
}

func (m *Model) optimize(ctx context.Context) error {
	cfg := m.cfg
	s := m.state

	for i := 0; i < cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bhtsne: stopped after %d iterations: %w", i, err)
		}
		s.Iteration = i

		grad, sumQ, err := m.gradient()
		if err != nil {
			return wrapIteration(err, i)
		}

		// Scored on the force-pass snapshot, before the step moves y.
		score := m.scoreDue(i)
		var cost float64
		if score {
			if cost, err = Cost(s.Y, m.base, sumQ); err != nil {
				return wrapIteration(err, i)
			}
		}

		if err := s.Step(grad); err != nil {
			return wrapIteration(err, i)
		}

		s.Momentum = momentumAt(cfg, i+1)
		if s.Exaggerated && !exaggeratedAt(cfg, i+1) {
			copy(m.p.Values, m.base.Values)
			s.Exaggerated = false
			cfg.Logger.Debug("early exaggeration stopped", "iteration", i+1)
		}
		m.iterations = i + 1

		if cfg.Listener != nil {
			cfg.Listener.IterationDone(m, i)
		}
		if score {
			m.costs = append(m.costs, CostSample{Iteration: i, Cost: cost})
			cfg.Logger.Info("iteration", "iteration", i, "cost", cost)
		}
		cfg.Logger.Debug("step", "iteration", i, "momentum", s.Momentum, "exaggerated", s.Exaggerated)
	}
	return nil
}

// scoreDue reports whether the cost is sampled at iteration i.
func (m *Model) scoreDue(i int) bool {
	if m.cfg.CostInterval < 0 {
		return false
	}
	return (i+1)%m.cfg.CostInterval == 0 || i == m.cfg.MaxIterations-1
}
