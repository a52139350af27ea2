package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-coordinator/pkg/logging"
)

// PoolSettings tunes the pgx pool. Zero values fall back to defaults
// sized for the stub's modest load.
type PoolSettings struct {
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
}

func DefaultPoolSettings() PoolSettings {
	return PoolSettings{
		MaxConns:          10,
		MinConns:          1,
		HealthCheckPeriod: 30 * time.Second,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   15 * time.Minute,
	}
}

func (s PoolSettings) withDefaults() PoolSettings {
	def := DefaultPoolSettings()
	if s.MaxConns <= 0 {
		s.MaxConns = def.MaxConns
	}
	if s.MinConns <= 0 {
		s.MinConns = def.MinConns
	}
	if s.HealthCheckPeriod <= 0 {
		s.HealthCheckPeriod = def.HealthCheckPeriod
	}
	if s.MaxConnLifetime <= 0 {
		s.MaxConnLifetime = def.MaxConnLifetime
	}
	if s.MaxConnIdleTime <= 0 {
		s.MaxConnIdleTime = def.MaxConnIdleTime
	}
	return s
}

func (s PoolSettings) apply(cfg *pgxpool.Config) {
	s = s.withDefaults()
	cfg.MaxConns = s.MaxConns
	cfg.MinConns = s.MinConns
	cfg.HealthCheckPeriod = s.HealthCheckPeriod
	cfg.MaxConnLifetime = s.MaxConnLifetime
	cfg.MaxConnIdleTime = s.MaxConnIdleTime
}

// ConnectPostgres opens a tuned pgx pool and pings it, failing fast
// when the database is unreachable at startup.
func ConnectPostgres(ctx context.Context, dsn string, settings PoolSettings, logger *logging.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Default()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	settings.apply(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		"max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
	return pool, nil
}
