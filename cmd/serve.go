package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpusd/corpusd/api"
	"github.com/corpusd/corpusd/db"
	"github.com/corpusd/corpusd/internal/config"
	"github.com/corpusd/corpusd/internal/database"
	"github.com/corpusd/corpusd/internal/embedding"
	"github.com/corpusd/corpusd/internal/rag"
	"github.com/corpusd/corpusd/internal/registry"
	"github.com/corpusd/corpusd/internal/search"
	"github.com/corpusd/corpusd/internal/sink"
)

// executeServe wires all components together and runs the HTTP server until
// SIGINT/SIGTERM. Shutdown order matters: the server stops accepting
// requests first, then the dispatcher drains, then the pool closes.
func executeServe() error {
	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := checkRequiredEnv(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, cleanup, err := database.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer cleanup()

	embedder, err := embedding.FromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing embedder: %w", err)
	}

	reg := registry.New(pool, logger.With("component", "registry"))
	storage := search.NewPostgresStorage(pool)
	engine := search.NewEngine(storage, embedder, logger.With("component", "search"))

	sinkClient := sink.NewClient(cfg.SinkURL,
		time.Duration(cfg.SinkTimeoutSeconds)*time.Second,
		logger.With("component", "sink"))

	dispatcher := rag.NewDispatcher(sinkClient, rag.DispatcherConfig{
		MaxRetries:     uint64(cfg.DispatchMaxRetries),
		InitialBackoff: time.Duration(cfg.DispatchInitialBackoffMS) * time.Millisecond,
		RatePerSecond:  cfg.DispatchRatePerSecond,
	}, logger.With("component", "dispatcher"))
	defer dispatcher.Close()

	orchestrator := rag.NewOrchestrator(reg, engine, dispatcher, rag.Options{
		DefaultTopK:         cfg.RetrievalTopK,
		ConfidenceThreshold: float64(cfg.ConfidenceThreshold),
		MaxTopK:             config.MaxRetrievalTopK,
	}, logger.With("component", "rag"))

	server := api.NewServer(reg, engine, orchestrator, pool, logger.With("component", "api"))
	return server.Run(ctx, cfg.ServerAddr)
}
