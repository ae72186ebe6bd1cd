package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/egannguyen/go-food-delivery/internal/config"
	"github.com/egannguyen/go-food-delivery/internal/logging"
)

// Main runs a service binary for role and returns its exit code.
func Main(role string) int {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(role, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	logger, closer, err := logging.New(cfg.Log, cfg.Service.Name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", "err", err)
		return 1
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error("Service stopped with error", "err", err)
		return 1
	}
	logger.Info("Shut down")
	return 0
}
