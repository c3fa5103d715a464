// Package main is the entry point for the Portfoy personal portfolio tracker.
// It wires the price aggregation pipeline, the valuation and analytics
// services, the HTTP API and the weekly snapshot job, then runs until a
// shutdown signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/portfoyapp/portfoy/internal/classify"
	"github.com/portfoyapp/portfoy/internal/clients/coingecko"
	"github.com/portfoyapp/portfoy/internal/clients/exchangerate"
	"github.com/portfoyapp/portfoy/internal/clients/yahoo"
	"github.com/portfoyapp/portfoy/internal/config"
	"github.com/portfoyapp/portfoy/internal/database"
	"github.com/portfoyapp/portfoy/internal/modules/portfolio"
	portfoliohandlers "github.com/portfoyapp/portfoy/internal/modules/portfolio/handlers"
	priceshandlers "github.com/portfoyapp/portfoy/internal/modules/prices/handlers"
	"github.com/portfoyapp/portfoy/internal/modules/snapshots"
	snapshotshandlers "github.com/portfoyapp/portfoy/internal/modules/snapshots/handlers"
	"github.com/portfoyapp/portfoy/internal/prices"
	"github.com/portfoyapp/portfoy/internal/scheduler"
	"github.com/portfoyapp/portfoy/internal/server"
	"github.com/portfoyapp/portfoy/internal/valuation"
	"github.com/portfoyapp/portfoy/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Portfoy")

	// Database
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(portfolio.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate positions schema")
	}
	if err := db.Migrate(snapshots.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate snapshots schema")
	}

	// Market data clients
	yahooClient := yahoo.NewClient(log)
	coingeckoClient := coingecko.NewClient(log)
	exchangeRateClient := exchangerate.NewClient(log)

	// Prices: classify symbols into provider buckets, aggregate concurrently,
	// serve from a shared cache with single-flight refresh
	classifier := classify.NewHeuristic(coingeckoClient.KnownSymbols())
	aggregator := prices.NewAggregator(classifier, yahooClient, coingeckoClient, exchangeRateClient, log)
	priceCache := prices.NewCache(aggregator, time.Now, log)

	// Valuation and analytics
	engine := valuation.NewEngine(log)

	// Repositories and services
	positionRepo := portfolio.NewPositionRepository(db.Conn(), log)
	snapshotRepo := snapshots.NewRepository(db.Conn(), log)
	portfolioService := portfolio.NewService(positionRepo, priceCache, engine, snapshotRepo, log)

	// Weekly snapshot job
	snapshotJob := scheduler.NewSnapshotJob(positionRepo, snapshotRepo, exchangeRateClient, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SnapshotSchedule).Msg("Failed to register snapshot job")
	}
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:               log,
		DB:                db,
		Config:            cfg,
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		PriceCache:        priceCache,
		PriceHandlers:     priceshandlers.NewHandler(priceCache, yahooClient, log),
		PortfolioHandlers: portfoliohandlers.NewHandler(positionRepo, portfolioService, log),
		SnapshotHandlers:  snapshotshandlers.NewHandler(snapshotRepo, snapshotJob, log),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server gracefully")
	}

	log.Info().Msg("Portfoy stopped")
}
