// glmr collects merge request activity for a GitLab group into a local
// JSONL cache consumed by the reporting pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "glmr",
		Usage:   "GitLab merge request metrics collector",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging output",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Human-readable log output instead of JSON",
			},
		},
		Commands: []*cli.Command{
			collectCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
