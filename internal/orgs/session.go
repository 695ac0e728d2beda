package orgs

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/overrides"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// Session caches one caller's organization list and active organization.
// It keeps the organization override cache bound to the active organization.
type Session struct {
	svc       *Service
	overrides *overrides.OrgCache

	mu         sync.RWMutex
	orgs       []*models.Organization // nil until loaded
	active     *models.Organization
	activeRole models.OrgRole
	resolved   bool // active organization has been read from storage
}

// NewSession creates a session. orgCache may be nil when overrides are not resolved in-process.
func NewSession(svc *Service, orgCache *overrides.OrgCache) *Session {
	return &Session{svc: svc, overrides: orgCache}
}

// Organizations returns the caller's organizations, from cache when possible.
func (s *Session) Organizations(ctx context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	orgs := s.orgs
	s.mu.RUnlock()
	if orgs != nil {
		return orgs, nil
	}

	orgs, err := s.svc.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.orgs = orgs
	s.mu.Unlock()
	return orgs, nil
}

// ActiveOrganization returns the caller's active organization, or nil when none is selected.
// A stored reference to an organization the caller no longer belongs to is cleared.
func (s *Session) ActiveOrganization(ctx context.Context) (*models.Organization, error) {
	s.mu.RLock()
	active, resolved := s.active, s.resolved
	s.mu.RUnlock()
	if resolved {
		return active, nil
	}

	stores := s.svc.stores
	caller, err := auth.LoadCaller(ctx, stores.Accounts)
	if err != nil {
		return nil, err
	}
	if caller.ActiveOrgID == nil {
		s.setActive(nil, "", false)
		return nil, nil
	}

	orgID := *caller.ActiveOrgID
	membership, err := stores.Memberships.Get(ctx, orgID, caller.AccountID)
	if err != nil && !errors.Is(err, store.ErrMembershipNotFound) {
		return nil, apperr.Storage(err)
	}

	var org *models.Organization
	if membership != nil {
		org, err = stores.Organizations.Get(ctx, orgID)
		if err != nil && !errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.Storage(err)
		}
	}

	if org == nil {
		log.Warn().
			Str("account_id", caller.AccountID.String()).
			Str("org_id", orgID.String()).
			Msg("Clearing dangling active organization")
		if _, err := stores.Accounts.ClearActiveOrg(ctx, caller.AccountID, orgID); err != nil {
			return nil, apperr.Storage(err)
		}
		s.setActive(nil, "", false)
		return nil, nil
	}

	s.setActive(org, membership.Role, false)
	return org, nil
}

// ActiveRole returns the caller's role in the cached active organization, or "" when none.
func (s *Session) ActiveRole() models.OrgRole {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRole
}

// SwitchOrganization makes orgID the caller's active organization. The caller must be a member.
// The override cache is retargeted before this returns, so no later resolve sees the previous
// organization's overrides.
func (s *Session) SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	stores := s.svc.stores
	caller, err := auth.LoadCaller(ctx, stores.Accounts)
	if err != nil {
		return nil, err
	}

	membership, err := stores.Memberships.Get(ctx, orgID, caller.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return nil, apperr.New(apperr.NotFound, "you are not a member of this organization")
		}
		return nil, apperr.Storage(err)
	}

	org, err := stores.Organizations.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.New(apperr.NotFound, "organization not found")
		}
		return nil, apperr.Storage(err)
	}

	if err := stores.Accounts.SetActiveOrg(ctx, caller.AccountID, &orgID); err != nil {
		return nil, apperr.Storage(err)
	}

	s.setActive(org, membership.Role, true)

	log.Debug().
		Str("account_id", caller.AccountID.String()).
		Str("org_id", orgID.String()).
		Msg("Switched active organization")

	return org, nil
}

// CreateOrganization creates an organization and makes it the active one.
func (s *Session) CreateOrganization(ctx context.Context, name string) (*models.Organization, error) {
	org, err := s.svc.CreateOrganization(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.orgs = nil
	s.mu.Unlock()

	return s.SwitchOrganization(ctx, org.OrgID)
}

// LeaveOrganization leaves an organization and drops it from the cached state.
func (s *Session) LeaveOrganization(ctx context.Context, orgID uuid.UUID) error {
	if err := s.svc.LeaveOrganization(ctx, orgID); err != nil {
		return err
	}
	s.InvalidateOrganization(orgID)
	return nil
}

// InvalidateOrganization drops cached state that may reference orgID.
func (s *Session) InvalidateOrganization(orgID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orgs = nil
	if s.active != nil && s.active.OrgID == orgID {
		s.active = nil
		s.activeRole = ""
		s.resolved = false
		if s.overrides != nil {
			s.overrides.SetOrganization(nil)
		}
	}
}

// Invalidate drops all cached state.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orgs = nil
	s.active = nil
	s.activeRole = ""
	s.resolved = false
}

// setActive updates the active organization cache and rebinds the override cache in one step.
// With rebind set the override cache is dropped even when the organization is unchanged.
func (s *Session) setActive(org *models.Organization, role models.OrgRole, rebind bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = org
	s.activeRole = role
	s.resolved = true

	if s.overrides == nil {
		return
	}
	if org == nil {
		s.overrides.SetOrganization(nil)
		return
	}
	if bound, ok := s.overrides.Organization(); rebind || !ok || bound != org.OrgID {
		s.overrides.SetOrganization(&org.OrgID)
	}
}
