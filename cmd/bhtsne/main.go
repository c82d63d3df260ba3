package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "bhtsne",
		Version: "v0.1.0",
		Usage:   "Barnes-Hut t-SNE embeddings of CSV point sets",
		Commands: []*cli.Command{
			embedCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
