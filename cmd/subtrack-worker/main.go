package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"subtrack/internal/amqp"
	"subtrack/internal/config"
	gexport "subtrack/internal/export/google"
	"subtrack/internal/log"
	"subtrack/internal/storage"
	"subtrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting subtrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The spreadsheet mirror is optional; without it the worker has
	// nothing to do.
	var backup *gexport.Client
	if cfg.BackupSpreadsheetID != "" {
		backup, err = gexport.New(context.Background(), cfg.BackupSpreadsheetID, cfg.BackupSheetName)
		if err != nil {
			logger.Error("Failed to initialize spreadsheet backup client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Spreadsheet backup client initialized",
			log.FieldSpreadsheetID, cfg.BackupSpreadsheetID,
			"sheet", cfg.BackupSheetName)
	} else {
		logger.Info("Spreadsheet backup disabled - no BACKUP_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syncWorker *worker.SyncWorker
	if backup != nil {
		syncWorker = worker.NewSyncWorker(repo, backup, cfg.SyncBatchSize)

		// On startup, sweep rows that might have been missed while the
		// worker was down.
		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Startup sync check failed", log.FieldError, err)
			// Don't exit - continue with normal operation
		}
	} else {
		logger.Info("Skipping sync operations - no backup client available")
	}

	if syncWorker != nil {
		go func() {
			handler := func(msg *amqp.SubscriptionSyncMessage) error {
				return syncWorker.HandleSyncMessage(ctx, msg)
			}
			if err := amqpClient.ConsumeSubscriptionSync(ctx, handler); err != nil {
				if err != context.Canceled {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
				cancel()
			}
		}()

		// Periodic sweep catches rows whose sync message was lost.
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := syncWorker.ProcessPendingSubscriptions(ctx); err != nil {
						logger.Error("Periodic sync failed", log.FieldError, err)
					}
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
