package main

import (
	"context"
	"os"
	"time"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/auth"
	"ledgerbook/internal/cli"
	apphttp "ledgerbook/internal/http"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	"ledgerbook/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	logger.Info("Starting ledgerbook server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", cfg.AMQPURL != "")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	authenticator := auth.NewPasswordAuthenticator(repo, 0)
	seeded, err := authenticator.EnsureDefaultUser(context.Background(), cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logger.Error("Failed to seed default user", log.FieldError, err)
		os.Exit(1)
	}
	if seeded {
		logger.Warn("Created default user, change its credentials",
			log.FieldUsername, cfg.AdminUsername)
	}

	// Events feed the mirror worker and are optional.
	var publisher ledger.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:  ledger.NewService(repo, publisher),
		Auth:    authenticator,
		Store:   repo,
		Metrics: metrics.New(),
		Logger:  logger,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		CacheSize:          cfg.CacheSize,
		StaticDir:          cfg.StaticDir,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
