package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/stockpilot/stockpilot/internal/config"
)

const defaultPingTimeout = 5 * time.Second

// Pool holds the connection settings for the hosted Inventory database. Zero
// values leave the database/sql defaults in place.
type Pool struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

func PoolFromConfig(cfg config.BackendConfig) Pool {
	return Pool{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
}

// Open parses the DSN up front so a malformed one fails before any dial, then
// pings the database once.
func Open(ctx context.Context, pool Pool) (*sql.DB, error) {
	if pool.DSN == "" {
		return nil, fmt.Errorf("backend dsn is required")
	}
	connConfig, err := pgx.ParseConfig(pool.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse backend dsn: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	pool.apply(db)

	timeout := pool.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping backend db at %s: %w", connConfig.Host, err)
	}
	return db, nil
}

func (p Pool) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}
