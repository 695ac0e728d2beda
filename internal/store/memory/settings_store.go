package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// SettingsStore implements store.SettingsStore using in-memory storage.
type SettingsStore struct {
	mu sync.RWMutex

	settings map[uuid.UUID]*models.AccountSettings
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		settings: make(map[uuid.UUID]*models.AccountSettings),
	}
}

// Get returns the settings of an account.
func (s *SettingsStore) Get(ctx context.Context, accountID uuid.UUID) (*models.AccountSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[accountID]
	if !ok {
		return nil, store.ErrSettingsNotFound
	}
	clone := *st
	clone.Preferences = maps.Clone(st.Preferences)
	return &clone, nil
}

// Upsert creates or replaces the settings of an account.
func (s *SettingsStore) Upsert(ctx context.Context, settings *models.AccountSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *settings
	clone.Preferences = maps.Clone(settings.Preferences)
	s.settings[settings.AccountID] = &clone
	return nil
}

// Delete removes the settings of an account.
func (s *SettingsStore) Delete(ctx context.Context, accountID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.settings[accountID]
	delete(s.settings, accountID)
	return ok, nil
}
