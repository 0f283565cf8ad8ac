package main

import (
	"context"
	"errors"
	"time"

	"dolor/internal/amqp"
	"dolor/internal/cli"
	"dolor/internal/log"
	"dolor/internal/services"
	"dolor/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateWorkerConfig(logger)
	logger = cli.LoggerFromConfig(log.ComponentWorker, cfg)

	logger.Info("Starting dolor-worker")

	// The worker only reads records, so its store does not publish events.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	factory, bcfg, res := cli.InitBackend(context.Background(), logger, &storeCfg)

	writer, err := factory.CreateSummaryWriter(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize summary writer", err)
	}
	if cfg.SheetsEnabled() {
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSummarySheet)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, summary kept in memory")
	}

	summaryWorker := worker.NewSummaryWorker(services.NewTracker(res.Store), writer, cfg.SummaryInterval)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
	} else {
		logger.Info("AMQP disabled - relying on periodic refresh only", "interval", cfg.SummaryInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := summaryWorker.Stop(ctx); err != nil {
			logger.Error("Summary worker stop error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := summaryWorker.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start summary worker", err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRecordEvents(ctx, summaryWorker.HandleRecordEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
