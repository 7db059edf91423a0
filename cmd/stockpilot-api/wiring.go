package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stockpilot/stockpilot/internal/api"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/backend/duckdb"
	"github.com/stockpilot/stockpilot/internal/backend/memory"
	"github.com/stockpilot/stockpilot/internal/backend/postgres"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/oracle"
	"github.com/stockpilot/stockpilot/internal/snapshot"
	"github.com/stockpilot/stockpilot/internal/storage"
	storagememory "github.com/stockpilot/stockpilot/internal/storage/memory"
	s3store "github.com/stockpilot/stockpilot/internal/storage/s3"
)

type openedBackend struct {
	store  backend.Store
	health api.ReadinessCheck
	close  func() error
	// refresher is set when queries are served from a snapshot.
	refresher snapshot.Refresher
}

// openObjectStore returns the S3 store when an endpoint is configured and an
// in-process store otherwise.
func openObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	if cfg.ObjectStore.Endpoint == "" {
		return storagememory.New(), nil
	}
	return s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
}

func openBackend(ctx context.Context, cfg config.Config, objects storage.ObjectStore, logger *slog.Logger) (openedBackend, error) {
	noop := func() error { return nil }
	switch cfg.Backend.Driver {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, postgres.PoolFromConfig(cfg.Backend))
		if err != nil {
			return openedBackend{}, err
		}
		store := postgres.NewStore(db)
		return openedBackend{store: store, health: store.HealthCheck, close: db.Close}, nil
	case config.BackendSnapshot:
		store, err := duckdb.OpenLatest(ctx, objects)
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warn("no inventory snapshot found; exporting generated demo data",
				slog.Int("rows", cfg.Backend.SeedRows))
			seeded, seedErr := seededStore(cfg)
			if seedErr != nil {
				return openedBackend{}, seedErr
			}
			if _, seedErr = snapshot.NewExporter(seeded, objects).Export(ctx); seedErr != nil {
				return openedBackend{}, fmt.Errorf("bootstrap snapshot: %w", seedErr)
			}
			store, err = duckdb.OpenLatest(ctx, objects)
		}
		if err != nil {
			return openedBackend{}, err
		}
		return openedBackend{store: store, close: store.Close, refresher: store}, nil
	default:
		store, err := seededStore(cfg)
		if err != nil {
			return openedBackend{}, err
		}
		logger.Info("serving generated inventory from memory", slog.Int("rows", cfg.Backend.SeedRows))
		return openedBackend{store: store, close: noop}, nil
	}
}

func seededStore(cfg config.Config) (*memory.Store, error) {
	records := inventory.NewGenerator(cfg.Backend.SeedValue).Generate(cfg.Backend.SeedRows)
	return memory.FromRecords(records)
}

func openOracle(ctx context.Context, cfg config.Config) (oracle.Oracle, error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		client, err := oracle.NewOpenAI(oracle.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return oracle.WithMetrics(client, config.ProviderOpenAI), nil
	default:
		client, err := oracle.NewGemini(ctx, oracle.GeminiConfig{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return oracle.WithMetrics(client, config.ProviderGemini), nil
	}
}
