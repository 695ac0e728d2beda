package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const defaultApplicationName = "orgkeeper"

// PoolConfig configures the connection pool shared by every store.
// Durations are in seconds; zero values take the defaults from ApplyDefaults.
type PoolConfig struct {
	// ConnString is a postgres:// URL or key=value DSN.
	ConnString string

	MaxConns          int32 // default 20
	MinConns          int32 // default 5
	MaxConnLifetime   int32 // default 3600
	MaxConnIdleTime   int32 // default 1800
	HealthCheckPeriod int32 // default 60
	ConnectTimeout    int32 // default 10

	// StatementTimeout bounds each statement in milliseconds. Deletes run one row set at a time,
	// so a stuck statement fails the step and the procedure is retried. Zero disables it.
	StatementTimeout int32

	// ApplicationName is reported in pg_stat_activity.
	ApplicationName string
}

// Validate checks that the pool configuration is valid.
func (c *PoolConfig) Validate() error {
	if c.ConnString == "" {
		return fmt.Errorf("connection string is required")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min conns (%d) exceeds max conns (%d)", c.MinConns, c.MaxConns)
	}
	if c.StatementTimeout < 0 {
		return fmt.Errorf("statement timeout must not be negative")
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *PoolConfig) ApplyDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 20
	}
	if c.MinConns == 0 {
		c.MinConns = 5
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 3600
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 1800
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = 60
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10
	}
	if c.ApplicationName == "" {
		c.ApplicationName = defaultApplicationName
	}
}

// NewPool validates cfg, opens a pool and pings the database.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pool config is required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Second
	poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod) * time.Second
	poolConfig.ConnConfig.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second

	params := poolConfig.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.Itoa(int(cfg.StatementTimeout))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Str("application_name", params["application_name"]).
		Msg("Opened PostgreSQL pool")

	return pool, nil
}
