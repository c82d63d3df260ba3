package bhtsne

import "fmt"

// SearchAlgorithm selects the neighbor search used during calibration.
type SearchAlgorithm string

const (
	SearchAuto   SearchAlgorithm = "auto"
	SearchVPTree SearchAlgorithm = "vptree"
	SearchKDTree SearchAlgorithm = "kdtree"
	SearchBrute  SearchAlgorithm = "brute"
)

// TreeAlgorithm selects the space-partitioning tree used for repulsive
// forces during optimization.
type TreeAlgorithm string

const (
	TreeAuto      TreeAlgorithm = "auto"
	TreeKDTree    TreeAlgorithm = "kdtree"
	TreeBarnesHut TreeAlgorithm = "barneshut"
)

// KDTreeValidMetric reports whether the metric supports KD-tree search.
// KD-trees require metrics that decompose along coordinate axes.
func KDTreeValidMetric(m DistanceMetric) bool {
	switch m.(type) {
	case EuclideanMetric, ManhattanMetric, ChebyshevMetric:
		return true
	default:
		return false
	}
}

// VPTreeValidMetric reports whether the metric is known to satisfy the
// triangle inequality, which vantage-point pruning relies on.
func VPTreeValidMetric(m DistanceMetric) bool {
	switch m.(type) {
	case EuclideanMetric, ManhattanMetric, ChebyshevMetric:
		return true
	default:
		return false
	}
}

// selectSearch resolves SearchAuto into a concrete strategy based on the
// metric and input dimensionality, and validates forced choices.
func selectSearch(algo SearchAlgorithm, metric DistanceMetric, dims int) (SearchAlgorithm, error) {
	if algo == SearchAuto {
		switch {
		case KDTreeValidMetric(metric) && dims <= 60:
			return SearchKDTree, nil
		case VPTreeValidMetric(metric):
			return SearchVPTree, nil
		default:
			return SearchBrute, nil
		}
	}
	if algo == SearchKDTree && !KDTreeValidMetric(metric) {
		return "", configError("metric %T is not supported by the KD-tree searcher", metric)
	}
	if algo == SearchVPTree && !VPTreeValidMetric(metric) {
		return "", configError("metric %T is not supported by the vantage-point tree searcher", metric)
	}
	return algo, nil
}

// selectTree resolves TreeAuto. gonum's Barnes-Hut plane and volume only
// exist for two and three dimensions.
func selectTree(algo TreeAlgorithm, dims int) (TreeAlgorithm, error) {
	switch algo {
	case TreeAuto:
		if dims == 2 || dims == 3 {
			return TreeBarnesHut, nil
		}
		return TreeKDTree, nil
	case TreeBarnesHut:
		if dims != 2 && dims != 3 {
			return "", configError("tree %q requires 2 or 3 output dimensions, got %d", algo, dims)
		}
	}
	return algo, nil
}

// newSearcher builds the neighbor searcher for the resolved strategy.
func newSearcher(algo SearchAlgorithm, data []float64, n, dims int, cfg Config) (NeighborSearcher, error) {
	switch algo {
	case SearchKDTree:
		return NewKDTreeSearcher(data, n, dims, cfg.Metric, cfg.LeafSize)
	case SearchVPTree:
		return NewVPTreeSearcher(data, n, dims, cfg.Metric, cfg.Seed)
	case SearchBrute:
		return NewBruteForceSearcher(data, n, dims, cfg.Metric), nil
	default:
		return nil, fmt.Errorf("bhtsne: unresolved search algorithm %q", algo)
	}
}
