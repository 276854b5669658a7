package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/agrichain/agrichain-backend/api/controllers"
	"github.com/agrichain/agrichain-backend/api/routes"
	"github.com/agrichain/agrichain-backend/internal/indexer"
	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/internal/registry"
	"github.com/agrichain/agrichain-backend/internal/search"
	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/db"
	"github.com/agrichain/agrichain-backend/pkg/eventlog"
	"github.com/agrichain/agrichain-backend/pkg/logger"
	"github.com/agrichain/agrichain-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registryService, err := registry.NewService(registry.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}

	emitter := eventlog.NewEmitter(eventlog.NewRepository(dbClient.DB()), logg)

	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(dbClient.DB()), registryService, emitter, cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	searchService, err := search.NewService(ledgerService, indexer.NewRepository(dbClient.DB()), cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, readiness, registryService, ledgerService, searchService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
