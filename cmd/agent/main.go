package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PrabinKa/ShipMate/internal/app"
	"github.com/PrabinKa/ShipMate/internal/config"
	"github.com/PrabinKa/ShipMate/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger.
	log := logger.New("shipmate-agent", cfg.LogLevel)
	log.Info("starting shipmate agent",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("backend", cfg.BackendBaseURL),
	)

	// Create the agent with all dependencies wired.
	agent, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize agent: %w", err)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the agent. This blocks until shutdown.
	if err := agent.Run(ctx); err != nil {
		return fmt.Errorf("run agent: %w", err)
	}

	log.Info("shipmate agent stopped")
	return nil
}
