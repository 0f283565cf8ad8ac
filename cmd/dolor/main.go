package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dolor/internal/cli"
	apphttp "dolor/internal/http"
	"dolor/internal/log"
	"dolor/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.LoggerFromConfig(log.ComponentApp, cfg)

	ctx := context.Background()
	_, bcfg, res := cli.InitBackend(ctx, logger, cfg)

	tracker := services.NewTracker(res.Store)
	srv := apphttp.NewServer(":"+cfg.Port, tracker, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SummaryCacheTTL:    cfg.SummaryCacheTTL,
		Logger:             logger,
		Ping:               res.Ping,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting dolor server",
		"port", cfg.Port,
		"backend", bcfg.Type,
		"events", res.EventsEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
