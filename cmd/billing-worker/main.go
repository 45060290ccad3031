package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sharinghome/internal/backend"
	"sharinghome/internal/config"
	"sharinghome/internal/directory"
	"sharinghome/internal/events"
	"sharinghome/internal/ledger"
	"sharinghome/internal/log"
	"sharinghome/internal/rooms"
	"sharinghome/internal/services"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentBilling})
	log.SetDefault(logger)

	logger.Info("Starting billing-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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

	dir := directory.New(result.Store, logger)
	mgr := rooms.NewManager(result.Store, dir, events.NewBus(), logger)
	led := ledger.New(result.Store, mgr, nil, logger)
	svc := services.NewInvoiceService(led, mgr, nil, result.AMQP)
	processor := services.NewBillingProcessor(led, mgr, svc, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func(now time.Time) {
		n, err := processor.ProcessDueRooms(ctx, now)
		if err != nil {
			logger.Error("Billing run failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("Billing run finished", "invoices_created", n)
		}
	}

	// One pass at startup, then on the configured interval
	runOnce(time.Now())

	ticker := time.NewTicker(cfg.BillingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Billing worker shut down")
			return
		case now := <-ticker.C:
			runOnce(now)
		}
	}
}
