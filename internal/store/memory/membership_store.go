package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

type membershipKey struct {
	orgID     uuid.UUID
	accountID uuid.UUID
}

// MembershipStore implements store.MembershipStore using in-memory storage.
type MembershipStore struct {
	mu sync.RWMutex

	memberships map[membershipKey]*models.Membership
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// Create adds a membership.
func (s *MembershipStore) Create(ctx context.Context, membership *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{membership.OrgID, membership.AccountID}
	if _, exists := s.memberships[key]; exists {
		return store.ErrMembershipAlreadyExists
	}
	clone := *membership
	s.memberships[key] = &clone
	return nil
}

// Get retrieves one membership.
func (s *MembershipStore) Get(ctx context.Context, orgID, accountID uuid.UUID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{orgID, accountID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}
	clone := *m
	return &clone, nil
}

func (s *MembershipStore) list(match func(*models.Membership) bool) []*models.Membership {
	var result []*models.Membership
	for _, m := range s.memberships {
		if match(m) {
			clone := *m
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result
}

// ListByOrg returns all memberships of an organization.
func (s *MembershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(m *models.Membership) bool { return m.OrgID == orgID }), nil
}

// ListByAccount returns all memberships held by an account.
func (s *MembershipStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(func(m *models.Membership) bool { return m.AccountID == accountID }), nil
}

// UpdateRole changes the role of an existing membership.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID, accountID uuid.UUID, role models.OrgRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.memberships[membershipKey{orgID, accountID}]
	if !exists {
		return store.ErrMembershipNotFound
	}
	m.Role = role
	return nil
}

// Delete removes one membership.
func (s *MembershipStore) Delete(ctx context.Context, orgID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.memberships, membershipKey{orgID, accountID})
	return nil
}

func (s *MembershipStore) deleteWhere(match func(*models.Membership) bool) int64 {
	var n int64
	for key, m := range s.memberships {
		if match(m) {
			delete(s.memberships, key)
			n++
		}
	}
	return n
}

// DeleteByAccount removes every membership held by an account.
func (s *MembershipStore) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhere(func(m *models.Membership) bool { return m.AccountID == accountID }), nil
}

// DeleteByOrg removes every membership of an organization.
func (s *MembershipStore) DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhere(func(m *models.Membership) bool { return m.OrgID == orgID }), nil
}
