package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ticketing_app_echo/internal/app"
	"ticketing_app_echo/internal/config"
	"ticketing_app_echo/internal/logger"
	"ticketing_app_echo/internal/tasks"
)

const tickInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close()

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry)

	store := tasks.NewGormTaskStore(a.DB)
	if created, err := tasks.EnsureRecurring(ctx, store, tasks.DefaultRecurring, time.Now()); err != nil {
		zl.Error("Failed to schedule recurring tasks", zap.Error(err))
	} else if created > 0 {
		zl.Info("Scheduled recurring tasks", zap.Int("created", created))
	}

	runner := tasks.NewRunner(registry, store, &tasks.Deps{
		Resender:                a.Checkout,
		Sweeper:                 a.Checkout,
		Orders:                  a.Store,
		Logger:                  zl,
		NotificationMaxAttempts: cfg.Checkout.NotificationMaxAttempts,
		PendingSweepAfter:       cfg.Checkout.PendingSweepAfter,
	}, zl)

	zl.Info("Worker started", zap.Strings("tasks", registry.Names()), zap.Duration("interval", tickInterval))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// run once on start, then on every tick
	process(ctx, runner, zl)
	for {
		select {
		case <-ticker.C:
			process(ctx, runner, zl)
		case <-ctx.Done():
			zl.Info("Shutting down worker")
			return
		}
	}
}

func process(ctx context.Context, runner *tasks.Runner, zl *zap.Logger) {
	if _, err := runner.RunDue(ctx); err != nil {
		zl.Error("Task run failed", zap.Error(err))
	}
}
