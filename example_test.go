package bhtsne_test

import (
	"fmt"
	"log"
	"os"

	"github.com/TrevorS/bhtsne"
)

func ExampleEmbed() {
	data := [][]float64{
		{0, 0}, {0, 1}, {1, 0},
		{10, 10}, {10, 11}, {11, 10},
	}
	cfg := bhtsne.DefaultConfig()
	cfg.Perplexity = 1.5
	cfg.MaxIterations = 200
	cfg.StopLyingIteration = 50
	cfg.Seed = 1

	result, err := bhtsne.Embed(data, cfg)
	if err != nil {
		log.Fatal(err)
	}
	rows, cols := result.Embedding.Dims()
	fmt.Println(rows, cols, result.Iterations)
	// Output: 6 2 200
}

func ExampleWriteCSV() {
	cfg := bhtsne.DefaultConfig()
	result, err := bhtsne.Embed([][]float64{{1, 2, 3}}, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := bhtsne.WriteCSV(os.Stdout, result.Embedding, []string{"only"}); err != nil {
		log.Fatal(err)
	}
	// Output: 0,0,only
}
