package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/qcat/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "qcat",
		Usage:    "Search the music catalog and resolve stream URLs",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Commands: runner.register(),
		Before:   runner.Before,
		After:    runner.After,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
