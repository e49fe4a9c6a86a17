package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/events"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/offline"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	origin, err := url.Parse(cfg.OriginURL)
	if err != nil {
		logger.Error("Invalid origin URL", log.FieldError, err, log.FieldURL, cfg.OriginURL)
		os.Exit(1)
	}

	result := cli.InitBackend(logger, cfg)

	m := metrics.New()
	bus := events.NewBus()
	closeAMQP := cli.AttachAMQP(context.Background(), cfg, bus, logger)

	cacheManager := cache.NewManager(logger)
	if result.Cleaner != nil {
		cacheManager.Register(result.Cleaner)
		cacheManager.StartCleanup(time.Minute)
	}

	controller, err := offline.NewController(offline.Config{
		Version:     cfg.CacheVersion,
		Origin:      origin,
		Storage:     result.Cache,
		Concurrency: cfg.PrecacheConcurrency,
		Logger:      logger,
		Metrics:     m,
		Bus:         bus,
	})
	if err != nil {
		logger.Error("Failed to create offline controller", log.FieldError, err)
		os.Exit(1)
	}

	reg := offline.NewRegistration(http.DefaultTransport, logger)
	if err := reg.Register(context.Background(), controller); err != nil {
		// Serve straight from the network; the update worker retries.
		logger.Error("Controller registration failed", log.FieldError, err, log.FieldVersion, cfg.CacheVersion)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /__sw/metrics", m.Handler())
	mux.Handle("/", offline.NewHandler(origin, reg, logger))

	srv := &http.Server{
		Addr:              ":" + cfg.EdgePort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	updater := worker.NewUpdateWorker(reg, cfg.UpdateInterval, logger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		updater.Run(workerCtx)
	}()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Edge shutdown error", log.FieldError, err)
		}
		stopWorker()
		<-workerDone
		cacheManager.Stop()
		closeAMQP()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting spendwise edge", log.FieldOperation, log.OpStartup,
		"port", cfg.EdgePort, log.FieldURL, origin.String(),
		log.FieldVersion, cfg.CacheVersion, log.FieldBackend, cfg.CacheBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Edge server error", log.FieldError, err, "port", cfg.EdgePort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Edge stopped gracefully")
}
