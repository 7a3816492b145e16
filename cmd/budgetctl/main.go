package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-budget/cmd/budgetctl/cli"
	"github.com/odyssey-erp/odyssey-budget/internal/app"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(load)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "budgetctl: %v\n", err)
		os.Exit(1)
	}
}

func load(ctx context.Context) (*cli.Deps, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "budgetctl"))

	deps := &cli.Deps{Migrate: func() error { return db.RunMigrations(cfg.PGDSN) }}
	if app.InTestMode() {
		return deps, func() {}, nil
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	jobClient := jobs.NewClient(redisOpts.AsynqOpt())

	services := app.NewServices(cfg, pool, redisClient, nil, logger)
	deps.FiscalYears = services.FiscalYears
	deps.Groups = services.BusinessGroups
	deps.CostCenters = services.CostCenters
	deps.Jobs = jobClient

	release := func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
		pool.Close()
	}
	return deps, release, nil
}
