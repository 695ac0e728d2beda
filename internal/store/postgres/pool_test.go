package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig_ApplyDefaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/orgkeeper"}
	cfg.ApplyDefaults()

	require.Equal(t, int32(20), cfg.MaxConns)
	require.Equal(t, int32(5), cfg.MinConns)
	require.Equal(t, int32(3600), cfg.MaxConnLifetime)
	require.Equal(t, int32(1800), cfg.MaxConnIdleTime)
	require.Equal(t, int32(60), cfg.HealthCheckPeriod)
	require.Equal(t, int32(10), cfg.ConnectTimeout)
	require.Equal(t, "orgkeeper", cfg.ApplicationName)
	require.NoError(t, cfg.Validate())
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PoolConfig
		wantErr string
	}{
		{"missing conn string", PoolConfig{MaxConns: 2, MinConns: 1}, "connection string is required"},
		{"min above max", PoolConfig{ConnString: "postgres://x", MaxConns: 1, MinConns: 2}, "exceeds max conns"},
		{"negative statement timeout", PoolConfig{ConnString: "postgres://x", MaxConns: 2, MinConns: 1, StatementTimeout: -1}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewPool_RejectsInvalidConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)

	_, err = NewPool(context.Background(), &PoolConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid pool config")
}
