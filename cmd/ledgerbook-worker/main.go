package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/cli"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	"ledgerbook/internal/sheets"
	gsheet "ledgerbook/internal/sheets/google"
	mem "ledgerbook/internal/sheets/memory"
	"ledgerbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	logger.Info("Starting ledgerbook-worker", "sync_interval", cfg.SyncInterval.String())

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var mirror sheets.ReportMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			SheetBase:          cfg.GoogleSheetName,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = mem.New()
		logger.Warn("Google Sheets disabled - mirroring to memory only")
	}

	// Reads only; the worker never publishes.
	mirrorWorker := worker.NewMirrorWorker(ledger.NewService(repo, nil), mirror, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cancel()
	})

	amqpClient, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		if ctx.Err() != nil {
			<-done
			return
		}
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	if cfg.SyncOnStartup {
		logger.Info("Performing startup mirror resync...")
		if err := mirrorWorker.ResyncAll(ctx); err != nil {
			logger.Error("Startup resync failed", log.FieldError, err)
		}
	}

	go mirrorWorker.RunPeriodicSync(ctx, cfg.SyncInterval)

	go func() {
		if err := amqpClient.Consume(ctx, mirrorWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		cancel()
	}()

	select {
	case <-shutdownCtx.Done():
		<-done
	case <-ctx.Done():
		logger.Info("Consumer stopped")
	}
	logger.Info("Worker stopped")
}
