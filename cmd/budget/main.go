package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-budget/internal/app"
	"github.com/odyssey-erp/odyssey-budget/internal/budgets"
	"github.com/odyssey-erp/odyssey-budget/internal/businessgroups"
	"github.com/odyssey-erp/odyssey-budget/internal/companies"
	"github.com/odyssey-erp/odyssey-budget/internal/costcenters"
	"github.com/odyssey-erp/odyssey-budget/internal/expenses"
	"github.com/odyssey-erp/odyssey-budget/internal/fiscalyears"
	"github.com/odyssey-erp/odyssey-budget/internal/observability"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-budget/internal/platform/db"
	"github.com/odyssey-erp/odyssey-budget/internal/reports"
	"github.com/odyssey-erp/odyssey-budget/internal/revenues"
	"github.com/odyssey-erp/odyssey-budget/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(cfg.PGDSN); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, pool, redisClient, metrics.Domain(), logger)

	jobClient := jobs.NewClient(redisOpts.AsynqOpt())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts.AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Metrics:              metrics,
		CostCenterHandler:    costcenters.NewHandler(logger, services.CostCenters),
		CompanyHandler:       companies.NewHandler(logger, services.Companies),
		BusinessGroupHandler: businessgroups.NewHandler(logger, services.BusinessGroups),
		FiscalYearHandler:    fiscalyears.NewHandler(logger, services.FiscalYears),
		BudgetHandler:        budgets.NewHandler(logger, services.Budgets),
		ExpenseHandler:       expenses.NewHandler(logger, services.Expenses),
		RevenueHandler:       revenues.NewHandler(logger, services.Revenues),
		ReportHandler:        reports.NewHandler(logger, services.Reports, services.FiscalYears, jobClient),
		JobHandler:           jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
