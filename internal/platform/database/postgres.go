package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/config"

	_ "github.com/lib/pq"
)

const defaultPingTimeout = 5 * time.Second

// NewPostgresDB opens a pooled Postgres handle and verifies it with a ping.
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return Open(context.Background(), cfg.GetDSN(), cfg)
}

// Open opens dsn with the pool settings of cfg (cfg may be nil).
func Open(ctx context.Context, dsn string, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	timeout := defaultPingTimeout
	if cfg != nil {
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		if cfg.MaxIdle > 0 {
			db.SetMaxIdleConns(cfg.MaxIdle)
		}
		if cfg.PingTimeout > 0 {
			timeout = cfg.PingTimeout
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes db if non-nil.
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
