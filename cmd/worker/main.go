// Package main runs the headless insight worker. It consumes sprint insight
// tasks from the coordination store, generates the insights with Gemini and
// stores them in Postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := newWorker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer w.cleanup()

	return w.run(ctx)
}
