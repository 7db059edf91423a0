package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/stockpilot/stockpilot/internal/backend/postgres"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/observability"
)

func main() {
	rows := flag.Int("rows", 0, "number of records to generate; 0 uses STOCKPILOT_BACKEND_SEED_ROWS")
	seed := flag.Int64("seed", 0, "generator seed; 0 uses STOCKPILOT_BACKEND_SEED")
	batch := flag.Int("batch", 100, "records per transaction")
	flag.Parse()

	cfg, err := config.LoadFromEnv("stockpilot-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)
	if *rows <= 0 {
		*rows = cfg.Backend.SeedRows
	}
	if *seed == 0 {
		*seed = cfg.Backend.SeedValue
	}
	if *batch <= 0 {
		*batch = 100
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.PoolFromConfig(cfg.Backend))
	if err != nil {
		logger.Error("failed to open backend db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store := postgres.NewStore(db)
	records := inventory.NewGenerator(*seed).Generate(*rows)
	written := 0
	for start := 0; start < len(records); start += *batch {
		end := min(start+*batch, len(records))
		n, err := store.UpsertRecords(ctx, records[start:end])
		if err != nil {
			logger.Error("seed batch failed", slog.Int("offset", start), slog.Any("error", err))
			os.Exit(1)
		}
		written += n
	}
	logger.Info("seeded inventory", slog.Int("records", written), slog.Int64("seed", *seed))
}
