package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/admin"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/logger"
	"github.com/wolfeidau/orgkeeper/internal/orgs"
	"github.com/wolfeidau/orgkeeper/internal/overrides"
	"github.com/wolfeidau/orgkeeper/internal/store"
	postgresstore "github.com/wolfeidau/orgkeeper/internal/store/postgres"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
	"gopkg.in/yaml.v3"
)

type Globals struct {
	Debug   bool
	Version string
	Tracing bool
	Store   StoreFlags

	// GlobalOverrideTTL is how long global instruction overrides are cached.
	GlobalOverrideTTL time.Duration
}

// StoreFlags configures the PostgreSQL connection shared by every command.
type StoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"ORGKEEPER_POSTGRES_CONN_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"4"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"1"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	StatementTimeout int32 `help:"statement timeout in milliseconds, 0 disables it" default:"30000" env:"ORGKEEPER_POSTGRES_STATEMENT_TIMEOUT"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations before the command" default:"false" env:"ORGKEEPER_POSTGRES_AUTO_MIGRATE"`
}

func (s *StoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or ORGKEEPER_POSTGRES_CONN_STRING)")
	}
	return nil
}

func (s *StoreFlags) config(autoMigrate bool) *postgresstore.Config {
	return &postgresstore.Config{
		Pool: postgresstore.PoolConfig{
			ConnString:      s.ConnString,
			MaxConns:        s.MaxConns,
			MinConns:        s.MinConns,
			MaxConnLifetime: s.MaxConnLifetime,
			MaxConnIdleTime: s.MaxConnIdleTime,

			StatementTimeout: s.StatementTimeout,
		},
		AutoMigrate: autoMigrate || s.AutoMigrate,
	}
}

// environment is the set of services a command runs against.
type environment struct {
	log       zerolog.Logger
	pool      *pgxpool.Pool
	stores    *store.Stores
	recorder  *audit.Recorder
	orgCache  *overrides.OrgCache
	resolver  *overrides.Resolver
	admin     *admin.Service
	orgs      *orgs.Service
	overrides *overrides.Service
	shutdown  func(context.Context) error
}

// open connects to PostgreSQL and builds the services. With migrate set the schema is migrated first.
func (g *Globals) open(ctx context.Context, migrate bool) (*environment, error) {
	log := logger.Setup(g.Debug)

	shutdown := func(ctx context.Context) error { return nil }
	if g.Tracing {
		log.Info().Msg("Tracing is enabled")
		var err error
		shutdown, err = telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "orgctl",
			Version:     g.Version,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
	}

	if err := g.Store.Validate(); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	pool, stores, err := postgresstore.Open(ctx, g.Store.config(migrate))
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}

	recorder := audit.NewRecorder(stores.Audit)
	globalCache := overrides.NewGlobalCache(stores.Instructions, overrides.WithTTL(g.GlobalOverrideTTL))
	orgCache := overrides.NewOrgCache(stores.Instructions)
	resolver := overrides.NewResolver(globalCache, orgCache)

	return &environment{
		log:       log,
		pool:      pool,
		stores:    stores,
		recorder:  recorder,
		orgCache:  orgCache,
		resolver:  resolver,
		admin:     admin.NewService(stores, recorder, orgCache),
		orgs:      orgs.NewService(stores, recorder),
		overrides: overrides.NewService(stores, recorder, resolver),
		shutdown:  shutdown,
	}, nil
}

func (e *environment) Close() {
	e.pool.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.shutdown(shutdownCtx); err != nil {
		e.log.Error().Err(err).Msg("Failed to shutdown telemetry")
	}
}

// as returns a context carrying the acting account.
func as(ctx context.Context, actor uuid.UUID) context.Context {
	return auth.WithCaller(ctx, actor)
}

var stdout io.Writer = os.Stdout

// printResult writes v to stdout as YAML.
func printResult(v any) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return enc.Close()
}
