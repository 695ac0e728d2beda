package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// Config holds configuration for the PostgreSQL-backed stores.
type Config struct {
	Pool PoolConfig

	// AutoMigrate applies pending migrations when the stores are opened.
	AutoMigrate bool
}

// Open creates a pool, optionally migrates the schema, and returns every store sharing that pool.
// The caller closes the returned pool.
func Open(ctx context.Context, cfg *Config) (*pgxpool.Pool, *store.Stores, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("postgres config is required")
	}

	pool, err := NewPool(ctx, &cfg.Pool)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return pool, NewStores(pool), nil
}

// NewStores returns every PostgreSQL store over a shared pool.
func NewStores(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		Accounts:      NewAccountStore(pool),
		Organizations: NewOrganizationStore(pool),
		Memberships:   NewMembershipStore(pool),
		Projects:      NewProjectStore(pool),
		Settings:      NewSettingsStore(pool),
		Instructions:  NewInstructionStore(pool),
		Audit:         NewAuditStore(pool),
	}
}
