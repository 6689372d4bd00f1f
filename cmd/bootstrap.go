package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheet-reconciler/core/config"
	"sheet-reconciler/core/database"
	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/storage"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/store/dbstore"
	"sheet-reconciler/core/tabular"

	"go.uber.org/zap"
)

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  store.Store
	client storage.Client
}

// bootstrap loads the configuration, creates the logger and connects to the database.
func bootstrap() (*app, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	return a, nil
}

// loadApp loads the configuration and creates the logger.
func loadApp() (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if mappingFile != "" {
		cfg.Mapping.File = mappingFile
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &app{cfg: cfg, log: l}, nil
}

// connect opens the database and builds the store over it.
func (a *app) connect() error {
	db, err := database.Connect(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.log.Debug("Connected to database",
		zap.String("driver", a.cfg.Database.Driver),
		zap.String("name", a.cfg.Database.Name))
	a.store = dbstore.New(db, a.log)
	return nil
}

// models returns a model source that resolves the document on every call.
func (a *app) models() *schema.Cache {
	return schema.NewCache(schema.NewResolver(a.store, a.log), 0)
}

// storageFor returns the storage client for loc, creating it on first use.
// Local locations need none.
func (a *app) storageFor(loc tabular.Location) (storage.Client, error) {
	if !loc.IsRemote() {
		return nil, nil
	}
	if a.client == nil {
		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.client = client
	}
	return a.client, nil
}

// signalContext is canceled on interrupt, stopping a run between sheets.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (a *app) cacheTTL() time.Duration {
	return time.Duration(a.cfg.Mapping.CacheTTLSeconds) * time.Second
}
