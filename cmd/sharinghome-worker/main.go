package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"sharinghome/internal/amqp"
	"sharinghome/internal/backend"
	"sharinghome/internal/config"
	"sharinghome/internal/directory"
	"sharinghome/internal/events"
	"sharinghome/internal/export"
	gexport "sharinghome/internal/export/google"
	mexport "sharinghome/internal/export/memory"
	"sharinghome/internal/ledger"
	"sharinghome/internal/log"
	"sharinghome/internal/rooms"
	"sharinghome/internal/worker"
)

func main() {
	// Load .env for local development; absent file is fine
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting sharinghome-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if !cfg.HasAMQP() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer result.Cleanup()

	if result.AMQP == nil {
		logger.Error("AMQP broker unreachable")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exporter export.InvoiceExporter
	if cfg.HasSheets() {
		exporter, err = gexport.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled, exports stay in memory")
		exporter = mexport.NewExporter()
	}

	dir := directory.New(result.Store, logger)
	mgr := rooms.NewManager(result.Store, dir, events.NewBus(), logger)
	led := ledger.New(result.Store, mgr, nil, logger)
	exportWorker := worker.NewExportWorker(led, mgr, exporter)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return result.AMQP.ConsumeInvoiceSync(ctx, func(msg *amqp.InvoiceSyncMessage) error {
			return exportWorker.HandleSyncMessage(ctx, msg)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shut down")
}
