package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrichain/agrichain-backend/internal/indexer"
	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/internal/registry"
	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/db"
	"github.com/agrichain/agrichain-backend/pkg/eventlog"
	"github.com/agrichain/agrichain-backend/pkg/logger"
	"github.com/agrichain/agrichain-backend/pkg/metrics"
	"github.com/agrichain/agrichain-backend/pkg/migrate"
	"github.com/agrichain/agrichain-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "indexer-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	backfill := flag.Bool("backfill", false, "repair missing index records before following the event log")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "indexer-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// The claim store is optional: without it replicas may double-index an
	// event, which the idempotent upsert absorbs.
	var claims redis.ClaimStore
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		claims = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, event claims disabled")
	}

	registryService, err := registry.NewService(registry.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}

	events := eventlog.NewRepository(dbClient.DB())
	emitter := eventlog.NewEmitter(events, logg)

	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(dbClient.DB()), registryService, emitter, cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	reconciler, err := indexer.NewReconciler(indexer.ReconcilerParams{
		Config:  cfg.Indexer,
		Logger:  logg,
		Ledger:  ledgerService,
		Events:  events,
		Repo:    indexer.NewRepository(dbClient.DB()),
		Cursors: indexer.NewCheckpointRepository(dbClient.DB()),
		Claims:  claims,
		Metrics: metrics.NewWorkerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"consumer": cfg.Indexer.Consumer,
	})

	if *backfill || cfg.Indexer.BackfillOnBoot {
		logg.Info(ctx, "running index backfill")
		if err := reconciler.Backfill(ctx); err != nil {
			logg.Error(ctx, "index backfill failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "starting indexer worker")

	if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "indexer worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "indexer worker shutting down gracefully")
}
