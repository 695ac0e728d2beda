package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// SettingsStore implements store.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new PostgreSQL-backed settings store.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{
		pool: pool,
	}
}

// Get returns the settings of an account.
func (s *SettingsStore) Get(ctx context.Context, accountID uuid.UUID) (*models.AccountSettings, error) {
	query := `SELECT account_id, preferences, updated_at FROM account_settings WHERE account_id = $1`

	var (
		settings models.AccountSettings
		prefs    []byte
	)
	err := s.pool.QueryRow(ctx, query, accountID).Scan(&settings.AccountID, &prefs, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", mapPostgresError(err))
	}

	if err := json.Unmarshal(prefs, &settings.Preferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return &settings, nil
}

// Upsert creates or replaces the settings of an account.
func (s *SettingsStore) Upsert(ctx context.Context, settings *models.AccountSettings) error {
	prefs, err := marshalMap(settings.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	query := `
		INSERT INTO account_settings (account_id, preferences, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, settings.AccountID, prefs, settings.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert settings: %w", mapPostgresError(err))
	}
	return nil
}

// Delete removes the settings of an account and reports whether a row existed.
func (s *SettingsStore) Delete(ctx context.Context, accountID uuid.UUID) (bool, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM account_settings WHERE account_id = $1`, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to delete settings: %w", mapPostgresError(err))
	}
	return result.RowsAffected() > 0, nil
}

// marshalMap encodes a map for a JSONB column; nil becomes an empty object.
func marshalMap[V any](m map[string]V) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
