package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

const cacheCleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store and wires the optional broker, exporter
// and report cache around a FinanceService.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	var broker *amqp.Client
	if config.AMQPURL != "" {
		broker, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			if config.RequireBroker {
				store.Close()
				return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
			}
			f.logger.Warn("Failed to initialize AMQP client, refreshing rates synchronously", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var exporter sheets.ReportExporter
	if config.GoogleSpreadsheetID != "" {
		exp, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			if broker != nil {
				broker.Close()
			}
			store.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
		}
		exporter = exp
	}

	provider := rates.NewClient(rates.Config{
		URL:     config.RatesAPIURL,
		AppID:   config.RatesAppID,
		Timeout: config.RatesTimeout,
		Logger:  f.logger,
	})

	opts := services.Options{
		Rates:             provider,
		Exporter:          exporter,
		Logger:            f.logger,
		DefaultCurrencies: config.DefaultCurrencies,
	}
	if broker != nil {
		opts.Publisher = broker
	}

	var manager *cache.Manager
	if config.StatsCacheSize > 0 {
		reports := cache.NewLRU[stats.Report](config.StatsCacheSize, config.StatsCacheTTL)
		opts.Reports = reports
		if config.StatsCacheTTL > 0 {
			manager = cache.NewManager(f.logger)
			manager.Register("reports", reports)
			manager.StartCleanup(cacheCleanupInterval)
		}
	}

	svc := services.NewFinanceService(store, opts)

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", broker != nil,
		"export_enabled", exporter != nil,
		"stats_cache_size", config.StatsCacheSize)

	return &BackendResult{
		Service: svc,
		Broker:  broker,
		Cleanup: func() error {
			if manager != nil {
				manager.Stop()
			}
			var errs []error
			if broker != nil {
				errs = append(errs, broker.Close())
			}
			errs = append(errs, svc.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (*storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := storage.OpenSQLite(ctx, config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return store, nil
	case PostgresBackend:
		store, err := storage.OpenPostgres(ctx, config.DatabaseURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL store")
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
