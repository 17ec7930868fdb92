package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goCred/internal/app"
	"github.com/MrEthical07/goCred/internal/config"
	"github.com/MrEthical07/goCred/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:], nil)
	if err != nil {
		logging.New(os.Stderr, "").Error(ctx, "load config", "error", err)
		os.Exit(2)
	}

	logger := logging.New(os.Stdout, cfg.Environment)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
