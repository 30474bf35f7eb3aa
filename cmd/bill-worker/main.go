package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"financas/internal/amqp"
	"financas/internal/config"
	"financas/internal/log"
	"financas/internal/services"
	"financas/internal/sheets"
	gsheet "financas/internal/sheets/google"
	"financas/internal/storage"
	"financas/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run a single reminder pass and exit")
	notify := flag.Bool("notify", false, "also consume reminders from the queue and log them")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	lc.Component = log.ComponentWorker
	logger := log.New(lc)
	log.SetDefault(logger)

	logger.Info("Starting bill-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the bill worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exporter sheets.SummaryWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			ClientJSON:    cfg.GoogleOAuthClientJSON,
			ClientFile:    cfg.GoogleOAuthClientFile,
			TokenJSON:     cfg.GoogleOAuthTokenJSON,
			TokenFile:     cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	processor := services.NewReminderProcessor(repo, amqpClient, cfg.Location())
	reminderWorker := worker.NewReminderWorker(processor, repo, exporter,
		worker.Config{Interval: cfg.ReminderInterval}, cfg.Location())

	if *once {
		reminderWorker.RunOnce(ctx)
		return
	}

	if *notify {
		notifier := log.NewStructuredLogger(logger.WithComponent(log.ComponentBills))
		go func() {
			err := amqpClient.ConsumeBillReminders(ctx, func(ctx context.Context, msg *amqp.BillReminder) error {
				notifier.LogBillReminder(ctx, msg.BillID, msg.Name, msg.DaysUntilDue, string(msg.Severity))
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Reminder consumption failed", "error", err)
				cancel()
			}
		}()
	}

	if err := reminderWorker.Start(ctx); err != nil {
		logger.Error("Failed to start reminder worker", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := reminderWorker.Stop(stopCtx); err != nil {
		logger.Error("Reminder worker shutdown error", "error", err)
	}
	cancel()
	logger.Info("bill-worker stopped")
}
