package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// ErrSettingsNotFound is returned when an account has no settings record.
var ErrSettingsNotFound = errors.New("settings not found")

// SettingsStore manages per-account settings.
type SettingsStore interface {
	// Get returns the settings of an account.
	// Returns ErrSettingsNotFound if none were saved.
	Get(ctx context.Context, accountID uuid.UUID) (*models.AccountSettings, error)

	// Upsert creates or replaces the settings of an account.
	Upsert(ctx context.Context, settings *models.AccountSettings) error

	// Delete removes the settings of an account and reports whether a row existed.
	Delete(ctx context.Context, accountID uuid.UUID) (bool, error)
}
