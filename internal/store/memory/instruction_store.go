package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// InstructionStore implements store.InstructionStore using in-memory storage.
type InstructionStore struct {
	mu sync.RWMutex

	global *models.InstructionSet
	orgs   map[uuid.UUID]*models.InstructionSet
}

// NewInstructionStore creates a new in-memory instruction store.
func NewInstructionStore() *InstructionStore {
	return &InstructionStore{
		orgs: make(map[uuid.UUID]*models.InstructionSet),
	}
}

// GetGlobal returns the global instruction set.
func (s *InstructionStore) GetGlobal(ctx context.Context) (*models.InstructionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.global == nil {
		return nil, store.ErrInstructionSetNotFound
	}
	return s.global.Clone(), nil
}

// UpsertGlobal creates or replaces the global instruction set.
func (s *InstructionStore) UpsertGlobal(ctx context.Context, set *models.InstructionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := set.Clone()
	clone.OrgID = nil
	s.global = clone
	return nil
}

// GetForOrg returns the instruction set of an organization.
func (s *InstructionStore) GetForOrg(ctx context.Context, orgID uuid.UUID) (*models.InstructionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.orgs[orgID]
	if !ok {
		return nil, store.ErrInstructionSetNotFound
	}
	return set.Clone(), nil
}

// UpsertForOrg creates or replaces the instruction set of an organization.
func (s *InstructionStore) UpsertForOrg(ctx context.Context, set *models.InstructionSet) error {
	if set.OrgID == nil {
		return errors.New("organization instruction set requires an organization id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orgs[*set.OrgID] = set.Clone()
	return nil
}

// DeleteForOrg removes the instruction set of an organization.
func (s *InstructionStore) DeleteForOrg(ctx context.Context, orgID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.orgs[orgID]
	delete(s.orgs, orgID)
	return ok, nil
}
