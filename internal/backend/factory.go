package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dolor/internal/adapters"
	"dolor/internal/amqp"
	"dolor/internal/records"
	"dolor/internal/records/memory"
	"dolor/internal/records/mongo"
	"dolor/internal/sheets"
	gsheet "dolor/internal/sheets/google"
	smemory "dolor/internal/sheets/memory"
	"dolor/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// rawStore is what every concrete backend provides.
type rawStore interface {
	records.Store
	records.Closer
	Ping(ctx context.Context) error
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		raw rawStore
		err error
	)
	switch config.Type {
	case MemoryBackend:
		raw = memoryStore{memory.New()}
	case SQLiteBackend:
		raw, err = storage.NewSQLiteRepository(config.SQLiteDBPath,
			storage.WithDeleteConcurrency(config.deleteConcurrency()))
	case PostgresBackend:
		raw, err = storage.NewPostgresRepository(config.PostgresURL,
			storage.WithDeleteConcurrency(config.deleteConcurrency()))
	case MongoBackend:
		raw, err = mongo.Connect(ctx, config.MongoURL, config.MongoDatabase, config.deleteConcurrency())
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	store := records.WithTimeout(raw, config.timeout())
	cleanups := []CleanupFunc{raw.Close}

	amqpClient := f.connectAMQP(config)
	if amqpClient != nil {
		store = adapters.NewPublishingStore(store, amqpClient)
		cleanups = append([]CleanupFunc{amqpClient.Close}, cleanups...)
	}

	f.logger.Info("Initialized record store",
		"backend", config.Type,
		"timeout", config.timeout(),
		"delete_concurrency", config.deleteConcurrency(),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Store:         store,
		Ping:          raw.Ping,
		Cleanup:       joinCleanup(cleanups),
		EventsEnabled: amqpClient != nil,
	}, nil
}

// connectAMQP returns nil when AMQP is not configured or unreachable; the
// store then works without publishing.
func (f *DefaultFactory) connectAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without record events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// CreateSummaryWriter returns the Google Sheets writer when a spreadsheet is
// configured and an in-memory writer otherwise.
func (f *DefaultFactory) CreateSummaryWriter(ctx context.Context, config Config) (sheets.SummaryWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, keeping the monthly summary in memory")
		return smemory.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSummarySheet,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientJSON:    config.GoogleOAuthClientJSON,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets summary writer", "sheet", config.GoogleSummarySheet)
	return cli, nil
}

// memoryStore adapts the in-memory store to rawStore.
type memoryStore struct {
	*memory.Store
}

func (memoryStore) Close() error { return nil }
func (memoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func joinCleanup(fns []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}
}
