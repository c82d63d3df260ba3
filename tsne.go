package bhtsne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

// InitMethod selects how the starting embedding is produced when
// Config.InitialEmbedding is nil.
type InitMethod string

const (
	InitRandom InitMethod = "random"
	InitPCA    InitMethod = "pca"
)

// Config controls a t-SNE run. Start with [DefaultConfig] and override the
// fields you need. A Config is never modified by a run.
type Config struct {
	// Dimensions is the number of output coordinates per point.
	// Must be >= 1. Default: 2.
	Dimensions int

	// Perplexity is the effective number of neighbors each point should
	// have. Each point keeps floor(3 * Perplexity) neighbors, clamped to
	// N-1; the perplexity may not exceed that count. Default: 30.
	Perplexity float64

	// Theta is the Barnes-Hut accuracy/speed trade-off: a tree cell is
	// summarized when its size over its distance is below Theta. The exact
	// (Theta = 0) algorithm is not provided; Theta must be > 0.
	// Default: 0.5.
	Theta float64

	// MaxIterations is the number of gradient steps. Must be >= 1.
	// Default: 1000.
	MaxIterations int

	// LearningRate scales the gain-weighted gradient (or is handed to
	// AdaGrad when UseAdaGrad is set). Must be > 0. Default: 200.
	LearningRate float64

	// UseAdaGrad replaces the fixed learning rate with a per-coordinate
	// AdaGrad schedule. Default: false.
	UseAdaGrad bool

	// InitialMomentum applies before MomentumSwitchIteration and
	// FinalMomentum from it onward. Both in [0, 1). Defaults: 0.5 and 0.8.
	InitialMomentum float64
	FinalMomentum   float64

	// MomentumSwitchIteration is the first iteration using FinalMomentum.
	// Must be >= 0. Default: 100.
	MomentumSwitchIteration int

	// StopLyingIteration is the first iteration without early
	// exaggeration. Iterations before it see affinities multiplied by
	// ExaggerationFactor. 0 disables exaggeration. Default: 250.
	StopLyingIteration int

	// MinGain floors the adaptive per-coordinate gains. Must be > 0.
	// Default: 0.01.
	MinGain float64

	// Similarity names the input-space similarity function; see NewMetric.
	// Invert declares that it is a similarity (higher is closer).
	// Default: "euclidean", not inverted.
	Similarity string
	Invert     bool

	// Metric overrides Similarity/Invert with a custom distance.
	Metric DistanceMetric

	// Tolerance is the accepted entropy gap in the perplexity search.
	// Must be > 0. Default: 1e-5.
	Tolerance float64

	// BetaSearchMaxTries caps the perplexity binary search per point.
	// Points hitting the cap keep their last candidate and are reported in
	// Result.Unconverged. Must be >= 1. Default: 200.
	BetaSearchMaxTries int

	// Normalize centers the input columns and scales all values into
	// [-1, 1] before the neighbor search. Default: true (see DefaultConfig;
	// the zero Config leaves it off).
	Normalize bool

	// Init selects the starting embedding. Default: InitRandom.
	Init InitMethod

	// InitialEmbedding seeds the embedding (N x Dimensions). It is copied.
	// A single point is returned at its supplied row without optimization.
	InitialEmbedding *mat.Dense

	// Seed drives random initialization and vantage point selection.
	Seed uint64

	// Search selects the neighbor search. Default: SearchAuto.
	Search SearchAlgorithm

	// Tree selects the repulsive force tree. Default: TreeAuto.
	Tree TreeAlgorithm

	// LeafSize is the maximum number of points in a KD-tree search leaf.
	// Must be >= 1. Default: 40.
	LeafSize int

	// Workers bounds the goroutines used for neighbor queries and force
	// accumulation. 0 means runtime.NumCPU(). The embedding for a given
	// Seed is the same for every worker count.
	Workers int

	// CostInterval computes the KL cost every CostInterval iterations and
	// on the last one. Negative disables it. Default: 50.
	CostInterval int

	// Listener is called synchronously after every iteration.
	Listener IterationListener

	// Logger receives structured progress records. Default: discard.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the usual Barnes-Hut t-SNE settings.
func DefaultConfig() Config {
	return Config{
		Dimensions:              2,
		Perplexity:              30,
		Theta:                   0.5,
		MaxIterations:           1000,
		LearningRate:            200,
		InitialMomentum:         0.5,
		FinalMomentum:           0.8,
		MomentumSwitchIteration: 100,
		StopLyingIteration:      250,
		MinGain:                 0.01,
		Similarity:              SimilarityEuclidean,
		Tolerance:               1e-5,
		BetaSearchMaxTries:      200,
		Normalize:               true,
		Init:                    InitRandom,
		Search:                  SearchAuto,
		Tree:                    TreeAuto,
		LeafSize:                40,
		CostInterval:            50,
	}
}

// applyDefaults fills zero-valued fields with their defaults.
func applyDefaults(cfg *Config) error {
	def := DefaultConfig()
	if cfg.Dimensions == 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.Perplexity == 0 {
		cfg.Perplexity = def.Perplexity
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MinGain == 0 {
		cfg.MinGain = def.MinGain
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.BetaSearchMaxTries == 0 {
		cfg.BetaSearchMaxTries = def.BetaSearchMaxTries
	}
	if cfg.Init == "" {
		cfg.Init = def.Init
	}
	if cfg.Search == "" {
		cfg.Search = def.Search
	}
	if cfg.Tree == "" {
		cfg.Tree = def.Tree
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = def.LeafSize
	}
	if cfg.CostInterval == 0 {
		cfg.CostInterval = def.CostInterval
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Metric == nil {
		m, err := NewMetric(cfg.Similarity, cfg.Invert)
		if err != nil {
			return err
		}
		cfg.Metric = m
	}
	return nil
}

// validateConfig checks that cfg fields are valid and returns a descriptive
// error wrapping ErrInvalidConfig if not.
func validateConfig(cfg *Config) error {
	if cfg.Dimensions < 1 {
		return configError("Dimensions must be >= 1, got %d", cfg.Dimensions)
	}
	if !(cfg.Perplexity > 0) || math.IsInf(cfg.Perplexity, 0) {
		return configError("Perplexity must be a finite value > 0, got %v", cfg.Perplexity)
	}
	if cfg.Theta == 0 {
		return configError("Theta = 0 requests exact t-SNE, which is not supported; use Theta > 0")
	}
	if !(cfg.Theta > 0) || math.IsInf(cfg.Theta, 0) {
		return configError("Theta must be a finite value > 0, got %v", cfg.Theta)
	}
	if cfg.MaxIterations < 1 {
		return configError("MaxIterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if !(cfg.LearningRate > 0) {
		return configError("LearningRate must be > 0, got %v", cfg.LearningRate)
	}
	if cfg.InitialMomentum < 0 || cfg.InitialMomentum >= 1 {
		return configError("InitialMomentum must be in [0, 1), got %v", cfg.InitialMomentum)
	}
	if cfg.FinalMomentum < 0 || cfg.FinalMomentum >= 1 {
		return configError("FinalMomentum must be in [0, 1), got %v", cfg.FinalMomentum)
	}
	if cfg.MomentumSwitchIteration < 0 {
		return configError("MomentumSwitchIteration must be >= 0, got %d", cfg.MomentumSwitchIteration)
	}
	if cfg.StopLyingIteration < 0 {
		return configError("StopLyingIteration must be >= 0, got %d", cfg.StopLyingIteration)
	}
	if !(cfg.MinGain > 0) {
		return configError("MinGain must be > 0, got %v", cfg.MinGain)
	}
	if !(cfg.Tolerance > 0) {
		return configError("Tolerance must be > 0, got %v", cfg.Tolerance)
	}
	if cfg.BetaSearchMaxTries < 1 {
		return configError("BetaSearchMaxTries must be >= 1, got %d", cfg.BetaSearchMaxTries)
	}
	switch cfg.Init {
	case InitRandom, InitPCA:
	default:
		return configError("invalid Init %q", cfg.Init)
	}
	switch cfg.Search {
	case SearchAuto, SearchVPTree, SearchKDTree, SearchBrute:
	default:
		return configError("invalid Search %q", cfg.Search)
	}
	switch cfg.Tree {
	case TreeAuto, TreeKDTree, TreeBarnesHut:
	default:
		return configError("invalid Tree %q", cfg.Tree)
	}
	if _, err := selectTree(cfg.Tree, cfg.Dimensions); err != nil {
		return err
	}
	if cfg.Search != SearchAuto {
		// Forced searches do not depend on the input dimensionality.
		if _, err := selectSearch(cfg.Search, cfg.Metric, 0); err != nil {
			return err
		}
	}
	if cfg.LeafSize < 1 {
		return configError("LeafSize must be >= 1, got %d", cfg.LeafSize)
	}
	if cfg.Workers < 1 {
		return configError("Workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.InitialEmbedding != nil {
		if _, c := cfg.InitialEmbedding.Dims(); c != cfg.Dimensions {
			return configError("InitialEmbedding has %d columns, want Dimensions = %d", c, cfg.Dimensions)
		}
	}
	return nil
}

// Result is the output of a completed run.
type Result struct {
	// Embedding holds one row of Dimensions coordinates per input point.
	Embedding *mat.Dense

	// Affinities is the symmetrized joint probability matrix the run
	// optimized against (without exaggeration). Nil for fewer than two
	// points.
	Affinities *SparseAffinity

	// Costs holds the KL cost samples taken every CostInterval iterations.
	Costs []CostSample

	// Iterations is the number of completed gradient steps.
	Iterations int

	// Neighbors is the per-point neighbor count used for calibration.
	Neighbors int

	// Unconverged lists points whose perplexity search hit
	// BetaSearchMaxTries.
	Unconverged []int
}

// Embed runs Barnes-Hut t-SNE on data. Each element is a point; all points
// must have the same dimensionality.
//
// Zero points give an empty result. A single point is embedded at the
// origin without calibration or optimization.
func Embed(data [][]float64, cfg Config) (*Result, error) {
	return EmbedContext(context.Background(), data, cfg)
}

// EmbedContext is Embed with cancellation. ctx is checked between
// iterations only, so a cancelled run never leaves a half-applied step.
func EmbedContext(ctx context.Context, data [][]float64, cfg Config) (*Result, error) {
	m, err := NewModel(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Fit(ctx, data); err != nil {
		return nil, err
	}
	return m.Result(), nil
}

// calibrate runs the neighbor search, perplexity calibration and
// symmetrization for flat input data.
func calibrate(flat []float64, n, dims int, cfg Config) (*SparseAffinity, *Calibration, error) {
	algo, err := selectSearch(cfg.Search, cfg.Metric, dims)
	if err != nil {
		return nil, nil, err
	}
	searcher, err := newSearcher(algo, flat, n, dims, cfg)
	if err != nil {
		return nil, nil, err
	}
	cfg.Logger.Debug("neighbor search selected", "search", string(algo), "n", n, "dims", dims)

	cond, calib, err := ComputeAffinities(searcher, cfg.Perplexity, CalibrationOptions{
		Tolerance: cfg.Tolerance,
		MaxTries:  cfg.BetaSearchMaxTries,
		Workers:   cfg.Workers,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	joint, err := Symmetrize(cond)
	if err != nil {
		return nil, nil, err
	}
	joint.mustValidate()
	return joint, calib, nil
}

// treeBuilder resolves the configured force tree. The Barnes-Hut builder
// falls back to the KD-tree when gonum cannot separate coincident points.
func treeBuilder(cfg Config) (TreeBuilder, error) {
	algo, err := selectTree(cfg.Tree, cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	if algo == TreeKDTree {
		return KDTreeBuilder(), nil
	}
	bh := BarnesHutBuilder()
	return func(y *mat.Dense) (ForceTree, error) {
		t, err := bh(y)
		if err != nil {
			cfg.Logger.Warn("barnes-hut tree unavailable, using kd-tree", "error", err)
			return newKDForceTree(y), nil
		}
		return t, nil
	}, nil
}

func wrapIteration(err error, iteration int) error {
	var ne *NumericalError
	if errors.As(err, &ne) {
		ne.Iteration = iteration
		return err
	}
	return fmt.Errorf("bhtsne: iteration %d: %w", iteration, err)
}
