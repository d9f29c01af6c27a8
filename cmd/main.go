package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/desertthunder/copyurl/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	var configPath string
	if _, err := os.Stat("config.toml"); err == nil {
		configPath = "config.toml"
	}

	runner := NewRunner(RunnerOpts{
		ConfigPath: configPath,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		stop()
		if errors.Is(err, errReported) {
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
