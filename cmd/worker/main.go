package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"genforge/internal/adapter/repo"
	"genforge/internal/db"
	"genforge/internal/dispatch"
	"genforge/internal/generators/static"
	httpadmin "genforge/internal/http"
	"genforge/internal/infra"
	"genforge/internal/lineage"
	"genforge/internal/loader"
	"genforge/internal/progress"
	"genforge/internal/queue"
	"genforge/internal/registry"
	"genforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema setup failed")
	}

	bus, err := queue.New(cfg.NATSURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: nats connection failed")
	}
	defer bus.Close()

	storageCfg, err := storage.ReadConfig(cfg.StorageConfigPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.StorageConfigPath).Msg("worker: storage config failed")
	}
	manager, err := storage.NewManager(storageCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: storage manager failed")
	}

	manifest, err := loader.ReadManifest(cfg.ManifestPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ManifestPath).Msg("worker: manifest read failed")
	}

	reg := registry.New()
	ld := loader.New(loader.Config{
		Factories: static.Factories(),
		Logger:    logger,
	})
	report, err := ld.Load(manifest, reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: generator load failed")
	}
	for _, skipped := range report.Skipped {
		logger.Warn().Str("entry", skipped.Ref).Str("reason", skipped.Reason).Msg("worker: generator skipped")
	}
	logger.Info().Strs("generators", report.Loaded).Msg("worker: generators ready")

	promReg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(promReg)

	genStore := repo.NewGenerationRepo(pool)
	lineageStore := repo.NewLineageRepo(pool)
	progressSink := repo.NewProgressRepo(pool)

	publisher := progress.New(progressSink, bus, logger)
	tracker := lineage.New(lineageStore, logger)

	dispatcher := dispatch.New(dispatch.Deps{
		Store:    genStore,
		Registry: reg,
		Storage:  manager,
		Lineage:  tracker,
		Progress: publisher,
		Resolver: dispatch.NewStoreResolver(lineageStore),
		Metrics:  metrics,
		Logger:   logger,
	}, dispatch.Config{
		MaxRetries:        cfg.MaxRetries,
		MaxStorageRetries: cfg.MaxStorageRetries,
		DefaultTimeout:    cfg.DefaultTimeout,
	})

	sub, err := bus.SubscribeJobs(ctx, cfg.WorkerDurable, dispatcher.Process)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: subscribe failed")
	}
	defer sub.Close()

	admin := infra.NewHTTPServer(cfg, httpadmin.NewRouter(&httpadmin.App{
		Store:    genStore,
		Registry: reg,
		Progress: publisher,
		Gatherer: promReg,
		Logger:   logger,
	}))
	go func() {
		logger.Info().Str("port", cfg.AdminPort).Msg("worker: admin server listening")
		if err := admin.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: admin server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("worker: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("worker: admin shutdown failed")
	}
}
