package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// AccountStore implements store.AccountStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type AccountStore struct {
	mu sync.RWMutex

	accounts map[uuid.UUID]*models.Account // account_id -> Account
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[uuid.UUID]*models.Account),
	}
}

func cloneAccount(a *models.Account) *models.Account {
	clone := *a
	if a.ActiveOrgID != nil {
		id := *a.ActiveOrgID
		clone.ActiveOrgID = &id
	}
	return &clone
}

// Create creates a new account in memory.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountID]; exists {
		return store.ErrAccountAlreadyExists
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return store.ErrAccountAlreadyExists
		}
	}

	s.accounts[account.AccountID] = cloneAccount(account)
	return nil
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.accounts[accountID]
	if !exists {
		return nil, store.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

// GetByEmail retrieves an account by email, ignoring case.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, store.ErrAccountNotFound
}

// ListByIDs returns the accounts that exist for the given IDs, in input order.
func (s *AccountStore) ListByIDs(ctx context.Context, accountIDs []uuid.UUID) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Account
	for _, id := range accountIDs {
		if a, ok := s.accounts[id]; ok {
			result = append(result, cloneAccount(a))
		}
	}
	return result, nil
}

// UpdateRole sets the global role of an account.
func (s *AccountStore) UpdateRole(ctx context.Context, accountID uuid.UUID, role models.GlobalRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.accounts[accountID]
	if !exists {
		return store.ErrAccountNotFound
	}
	a.Role = role
	a.UpdatedAt = time.Now()
	return nil
}

// SetActiveOrg sets or clears the active organization of an account.
func (s *AccountStore) SetActiveOrg(ctx context.Context, accountID uuid.UUID, orgID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.accounts[accountID]
	if !exists {
		return store.ErrAccountNotFound
	}
	if orgID == nil {
		a.ActiveOrgID = nil
	} else {
		id := *orgID
		a.ActiveOrgID = &id
	}
	a.UpdatedAt = time.Now()
	return nil
}

// ClearActiveOrg clears the active organization only if it points at orgID.
func (s *AccountStore) ClearActiveOrg(ctx context.Context, accountID, orgID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.accounts[accountID]
	if !exists || a.ActiveOrgID == nil || *a.ActiveOrgID != orgID {
		return false, nil
	}
	a.ActiveOrgID = nil
	a.UpdatedAt = time.Now()
	return true, nil
}

// ClearActiveOrgForOrg clears the active organization of every account pointing at orgID.
func (s *AccountStore) ClearActiveOrgForOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	now := time.Now()
	for _, a := range s.accounts {
		if a.ActiveOrgID != nil && *a.ActiveOrgID == orgID {
			a.ActiveOrgID = nil
			a.UpdatedAt = now
			cleared++
		}
	}
	return cleared, nil
}

// Delete deletes an account. Absent accounts are ignored.
func (s *AccountStore) Delete(ctx context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, accountID)
	return nil
}
