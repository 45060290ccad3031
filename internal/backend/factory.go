package backend

import (
	"fmt"
	"log/slog"

	"sharinghome/internal/amqp"
	"sharinghome/internal/kv"
)

// Factory builds backends from configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateBackend opens the configured store and, when a broker URL is
// set, the AMQP client. A broker that fails to connect is logged and
// skipped; the store alone is enough to run.
func (f *Factory) CreateBackend(config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store kv.Store
	var err error
	switch config.Type {
	case SQLiteBackend:
		store, err = kv.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		f.logger.Info("SQLite store initialized", "path", config.SQLiteDBPath)
	case MemoryBackend:
		store = kv.NewMemoryStore()
		f.logger.Info("Memory store initialized")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Error("AMQP connection failed, continuing without sync",
				"url", config.AMQPURL, "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("AMQP client connected",
				"exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	cleanup := func() error {
		var errs []error
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
		if len(errs) > 0 {
			return fmt.Errorf("cleanup backend: %v", errs)
		}
		return nil
	}

	return &Result{Store: store, AMQP: amqpClient, Cleanup: cleanup}, nil
}
