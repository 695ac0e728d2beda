// Package admin implements account and organization removal.
//
// The backing store has no multi-statement transactions, so every procedure is an ordered
// sequence of idempotent deletes. Children are always removed before their parent row. When a
// procedure fails part way the caller retries the whole procedure.
package admin

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// Procedure names used in logs and metrics.
const (
	procDeleteAccount      = "delete_account"
	procRemoveFromOrg      = "remove_from_org"
	procDeleteSelf         = "delete_self"
	procDeleteOrganization = "delete_organization"
	procPurgeAccount       = "purge_account"
	procUpdateRole         = "update_role"
)

// Invalidator is notified after an organization has been removed so that
// cached copies (organization lists, active organization, override caches) can be dropped.
type Invalidator interface {
	InvalidateOrganization(orgID uuid.UUID)
}

// Service exposes the deletion protocol and global role assignment.
type Service struct {
	stores *store.Stores
	purger *Purger
	audit  *audit.Recorder

	mu           sync.RWMutex
	invalidators []Invalidator
}

// NewService creates an admin service.
func NewService(stores *store.Stores, recorder *audit.Recorder, invalidators ...Invalidator) *Service {
	return &Service{
		stores:       stores,
		purger:       NewPurger(stores),
		audit:        recorder,
		invalidators: invalidators,
	}
}

// AddInvalidator registers another cache to be notified about removed organizations.
func (s *Service) AddInvalidator(inv Invalidator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidators = append(s.invalidators, inv)
}

func (s *Service) invalidate(orgIDs ...uuid.UUID) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, orgID := range orgIDs {
		for _, inv := range s.invalidators {
			inv.InvalidateOrganization(orgID)
		}
	}
}

func (s *Service) finish(ctx context.Context, procedure string, err error) {
	outcome := "success"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	telemetry.GetMetrics().RecordDeletion(ctx, procedure, outcome)
}

// getAccount loads an account, mapping a missing row to NotFound.
func (s *Service) getAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.stores.Accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.NotFound, "account not found")
		}
		return nil, apperr.Storage(err)
	}
	return account, nil
}

// auditScanLimit bounds the audit records read when reconstructing state left by an interrupted procedure.
const auditScanLimit = 1000

// createdBy reports whether the audit log shows accountID creating orgID. Organizations have no
// ownership transfer, so the creator is the owner even after the owner membership is gone.
func (s *Service) createdBy(ctx context.Context, orgID, accountID uuid.UUID) (bool, error) {
	records, err := s.audit.List(ctx, store.ListAuditOptions{
		ActorID:  &accountID,
		TargetID: &orgID,
		Action:   audit.ActionOrganizationCreate,
		Limit:    1,
	})
	if err != nil {
		return false, apperr.Storage(err)
	}
	return len(records) > 0, nil
}

// createdOrganizations returns the ids of the organizations the audit log shows accountID creating.
func (s *Service) createdOrganizations(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	records, err := s.audit.List(ctx, store.ListAuditOptions{
		ActorID: &accountID,
		Action:  audit.ActionOrganizationCreate,
		Limit:   auditScanLimit,
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		if r.TargetID != nil {
			ids = append(ids, *r.TargetID)
		}
	}
	return ids, nil
}

// addedTo reports whether the audit log shows accountID being added to orgID.
func (s *Service) addedTo(ctx context.Context, orgID, accountID uuid.UUID) (bool, error) {
	records, err := s.audit.List(ctx, store.ListAuditOptions{
		TargetID: &accountID,
		Action:   audit.ActionMembershipAdd,
		Limit:    auditScanLimit,
	})
	if err != nil {
		return false, apperr.Storage(err)
	}
	for _, r := range records {
		if id, _ := r.Details["org_id"].(string); id == orgID.String() {
			return true, nil
		}
	}
	return false, nil
}

// memberless reports whether an organization holds no memberships, the state an organization
// delete leaves behind when it stops between removing the memberships and the organization row.
func (s *Service) memberless(ctx context.Context, orgID uuid.UUID) (bool, error) {
	members, err := s.stores.Memberships.ListByOrg(ctx, orgID)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return len(members) == 0, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
