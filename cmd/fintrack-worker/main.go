package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/ledger/csvfile"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(boot.Logger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Starting fintrack-worker",
		applog.FieldBackend, cfg.LedgerBackend,
		"mirror", cfg.MirrorCSVPath,
		"interval", cfg.MirrorInterval)

	// The primary ledger is opened without a publisher; the worker only reads it.
	primary := cfg.AMQPURL
	cfg.AMQPURL = ""
	backend := cli.InitBackend(context.Background(), logger.Logger, cfg)
	cfg.AMQPURL = primary

	mirror := worker.NewMirrorWorker(backend.Store, csvfile.New(cfg.MirrorCSVPath, cfg.HomeCurrency), logger)

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, falling back to periodic sync",
				applog.FieldError, err, applog.FieldOperation, applog.OpStartup)
		}
	} else {
		logger.Info("AMQP disabled - mirroring on the periodic schedule only")
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := backend.Close(); err != nil {
			logger.Warn("Backend close error", applog.FieldError, err)
		}
	})

	// Catch up on anything missed while the worker was down
	if err := mirror.Sync(ctx); err != nil {
		logger.Error("Startup mirror sync failed", applog.FieldError, err)
	}

	if consumer != nil {
		go func() {
			err := consumer.ConsumeLedgerChanges(ctx, cfg.AMQPQueue, mirror.HandleLedgerChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption stopped", applog.FieldError, err)
			}
		}()
	}

	go mirror.Run(ctx, cfg.MirrorInterval)

	cli.WaitForShutdown(ctx, done)
	stats := mirror.Stats()
	logger.Info("Worker stopped gracefully", "syncs", stats.Syncs, "failures", stats.Failures)
}
