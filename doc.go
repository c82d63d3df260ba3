// Package bhtsne embeds high-dimensional points into two or three (or any
// small number of) dimensions with Barnes-Hut t-SNE.
//
// A fit has two stages. Calibration finds each point's nearest neighbors,
// picks a Gaussian bandwidth per point so the neighbor distribution has the
// requested perplexity, and symmetrizes the result into a sparse joint
// probability matrix. Optimization then moves the embedding by gradient
// descent with momentum and adaptive gains, approximating the repulsive
// forces with a space-partitioning tree rebuilt every iteration.
//
// Basic usage:
//
//	cfg := bhtsne.DefaultConfig()
//	cfg.Perplexity = 20
//	result, err := bhtsne.Embed(data, cfg)
//	// result.Embedding is an N x cfg.Dimensions *mat.Dense
//	// result.Costs samples the KL divergence every cfg.CostInterval steps
//
// For cancellation, progress callbacks or inspecting the gradient, drive a
// Model directly:
//
//	m, err := bhtsne.NewModel(cfg)
//	err = m.Fit(ctx, data)
//	y := m.Embedding()
//
// # Algorithm selection
//
// Neighbors are found with a KD-tree for axis-decomposable metrics on
// low-dimensional input, a vantage-point tree for other metrics, or brute
// force for cosine distance. Repulsive forces use gonum's quadtree or octree
// for two and three output dimensions and a KD-tree otherwise. Set
// Config.Search and Config.Tree to force a choice:
//
//	cfg.Search = bhtsne.SearchVPTree
//	cfg.Tree = bhtsne.TreeKDTree
package bhtsne
