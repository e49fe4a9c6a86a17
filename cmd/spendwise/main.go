package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendwise/internal/cli"
	"spendwise/internal/events"
	apphttp "spendwise/internal/http"
	"spendwise/internal/install"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/services"
	"spendwise/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(logger, cfg)

	m := metrics.New()
	bus := events.NewBus()
	closeAMQP := cli.AttachAMQP(context.Background(), cfg, bus, logger)

	st := store.New(result.KV, store.Options{
		Logger:       logger,
		Metrics:      m,
		PersistEmpty: cfg.StorePersistEmpty,
	})
	st.Load(context.Background())

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.Burst = cfg.RateLimitBurst

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     st,
		Service:   services.NewTransactionService(st, logger),
		Prompt:    install.NewPrompt(result.KV, install.Options{Bus: bus, Logger: logger}),
		KV:        result.KV,
		Metrics:   m,
		Logger:    logger,
		RateLimit: rl,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		closeAMQP()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting spendwise server", log.FieldOperation, log.OpStartup,
		"port", cfg.Port, log.FieldBackend, cfg.DataBackend, log.FieldCount, len(st.Transactions()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
