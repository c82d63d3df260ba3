package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/TrevorS/bhtsne"
)

var embedCommand = &cli.Command{
	Name:  "embed",
	Usage: "Embed the points of a CSV file",
	Description: `Read points from a CSV file, run Barnes-Hut t-SNE and write the embedding.

Each input line holds the coordinates of one point, optionally followed by a
label. Output lines hold the embedded coordinates followed by the label; for
unlabeled input the label is the row number.

Examples:
  # 2-D embedding of labeled points
  bhtsne embed -i points.csv -o embedding.csv

  # 3-D embedding with AdaGrad and cosine similarity
  bhtsne embed -i docs.csv -o out.csv -d 3 --adagrad --similarity cosinesimilarity --invert`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Path to the input CSV file",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Path to the output CSV file",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "labels",
			Usage: "Treat the last input column as a label",
			Value: true,
		},

		// Calibration
		&cli.Float64Flag{
			Name:  "perplexity",
			Usage: "Effective number of neighbors per point",
			Value: 30,
		},
		&cli.StringFlag{
			Name:  "similarity",
			Usage: "Similarity function: euclidean, manhattan, chebyshev or cosinesimilarity",
			Value: bhtsne.SimilarityEuclidean,
		},
		&cli.BoolFlag{
			Name:  "invert",
			Usage: "The similarity function grows with closeness (required for cosinesimilarity)",
		},
		&cli.StringFlag{
			Name:  "search",
			Usage: "Neighbor search: auto, kdtree, vptree or brute",
			Value: string(bhtsne.SearchAuto),
		},

		// Optimization
		&cli.IntFlag{
			Name:    "iterations",
			Aliases: []string{"n"},
			Usage:   "Number of gradient steps",
			Value:   1000,
		},
		&cli.IntFlag{
			Name:    "dims",
			Aliases: []string{"d"},
			Usage:   "Output dimensions",
			Value:   2,
		},
		&cli.Float64Flag{
			Name:  "theta",
			Usage: "Barnes-Hut accuracy trade-off, > 0",
			Value: 0.5,
		},
		&cli.Float64Flag{
			Name:  "learning-rate",
			Usage: "Step size",
			Value: 200,
		},
		&cli.BoolFlag{
			Name:  "adagrad",
			Usage: "Use a per-coordinate AdaGrad learning rate",
		},
		&cli.StringFlag{
			Name:  "tree",
			Usage: "Force tree: auto, barneshut or kdtree",
			Value: string(bhtsne.TreeAuto),
		},
		&cli.StringFlag{
			Name:  "init",
			Usage: "Initial embedding: random or pca",
			Value: string(bhtsne.InitRandom),
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "Random seed",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Worker goroutines (0 = number of CPUs)",
		},

		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn or error",
			Value:   "info",
			EnvVars: []string{"BHTSNE_LOG_LEVEL"},
		},
	},
	Action: func(c *cli.Context) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger := bhtsne.NewTextLogger(level)

		cfg, err := configFromCLI(c)
		if err != nil {
			return err
		}
		cfg.Logger = logger

		in, err := os.Open(c.String("input"))
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		data, labels, err := bhtsne.ReadCSV(in, c.Bool("labels"))
		in.Close()
		if err != nil {
			return err
		}
		if !c.Bool("labels") {
			labels = rowLabels(len(data))
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("embedding", "points", len(data), "input", c.String("input"))
		result, err := bhtsne.EmbedContext(ctx, data, cfg)
		if err != nil {
			return err
		}
		if n := len(result.Unconverged); n > 0 {
			logger.Warn("some points did not reach the target perplexity", "count", n)
		}

		if err := bhtsne.SaveCSV(c.String("output"), result.Embedding, labels); err != nil {
			return err
		}
		logger.Info("embedding written", "output", c.String("output"), "iterations", result.Iterations)
		return nil
	},
}

// configFromCLI maps command flags onto a Config.
func configFromCLI(c *cli.Context) (bhtsne.Config, error) {
	cfg := bhtsne.DefaultConfig()
	cfg.Perplexity = c.Float64("perplexity")
	cfg.Similarity = c.String("similarity")
	cfg.Invert = c.Bool("invert")
	cfg.Search = bhtsne.SearchAlgorithm(c.String("search"))
	cfg.MaxIterations = c.Int("iterations")
	cfg.Dimensions = c.Int("dims")
	cfg.Theta = c.Float64("theta")
	cfg.LearningRate = c.Float64("learning-rate")
	cfg.UseAdaGrad = c.Bool("adagrad")
	cfg.Tree = bhtsne.TreeAlgorithm(c.String("tree"))
	cfg.Init = bhtsne.InitMethod(c.String("init"))
	cfg.Seed = c.Uint64("seed")
	cfg.Workers = c.Int("workers")

	if cfg.MaxIterations < 1 {
		return cfg, fmt.Errorf("--iterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if cfg.Dimensions < 1 {
		return cfg, fmt.Errorf("--dims must be >= 1, got %d", cfg.Dimensions)
	}
	return cfg, nil
}

func rowLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}
