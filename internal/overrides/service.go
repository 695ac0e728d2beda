package overrides

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// Service loads, saves and resets instruction sets and keeps the resolver's caches in step.
type Service struct {
	stores   *store.Stores
	audit    *audit.Recorder
	resolver *Resolver
	now      func() time.Time
}

// NewService creates an override service. resolver may be nil when nothing resolves in-process.
func NewService(stores *store.Stores, recorder *audit.Recorder, resolver *Resolver) *Service {
	return &Service{
		stores:   stores,
		audit:    recorder,
		resolver: resolver,
		now:      time.Now,
	}
}

// LoadGlobal returns the global instruction set. Superadmin only.
// An empty set is returned when none has been saved.
func (s *Service) LoadGlobal(ctx context.Context) (*models.InstructionSet, error) {
	if _, err := s.requireSuperadmin(ctx); err != nil {
		return nil, err
	}

	set, err := s.stores.Instructions.GetGlobal(ctx)
	if err != nil {
		if errors.Is(err, store.ErrInstructionSetNotFound) {
			return &models.InstructionSet{Overrides: map[string]string{}}, nil
		}
		return nil, apperr.Storage(err)
	}
	return set, nil
}

// SaveGlobal replaces the global overrides. Keys with blank text are dropped. Superadmin only.
func (s *Service) SaveGlobal(ctx context.Context, overrides map[string]string) (*models.InstructionSet, error) {
	caller, err := s.requireSuperadmin(ctx)
	if err != nil {
		return nil, err
	}

	set := &models.InstructionSet{
		Overrides: normalize(overrides),
		UpdatedAt: s.now().UTC(),
		UpdatedBy: &caller.AccountID,
	}
	if err := s.stores.Instructions.UpsertGlobal(ctx, set); err != nil {
		return nil, apperr.Storage(err)
	}
	s.invalidateGlobal()

	log.Info().Int("keys", len(set.Overrides)).Msg("Saved global overrides")

	s.audit.Record(ctx, audit.Entry{
		ActorID: caller.AccountID,
		Action:  audit.ActionGlobalInstructions,
		Details: map[string]any{"keys": Keys(set.Overrides)},
	})

	return set, nil
}

// ResetGlobal removes the given keys from the global overrides, or every key when none are given.
// Superadmin only.
func (s *Service) ResetGlobal(ctx context.Context, keys ...string) (*models.InstructionSet, error) {
	caller, err := s.requireSuperadmin(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.stores.Instructions.GetGlobal(ctx)
	if err != nil && !errors.Is(err, store.ErrInstructionSetNotFound) {
		return nil, apperr.Storage(err)
	}

	set := &models.InstructionSet{
		Overrides: reset(current, keys),
		UpdatedAt: s.now().UTC(),
		UpdatedBy: &caller.AccountID,
	}
	if err := s.stores.Instructions.UpsertGlobal(ctx, set); err != nil {
		return nil, apperr.Storage(err)
	}
	s.invalidateGlobal()

	s.audit.Record(ctx, audit.Entry{
		ActorID: caller.AccountID,
		Action:  audit.ActionGlobalReset,
		Details: resetDetails(keys),
	})

	return set, nil
}

// LoadOrganization returns an organization's instruction set. Members and superadmins may read it.
func (s *Service) LoadOrganization(ctx context.Context, orgID uuid.UUID) (*models.InstructionSet, error) {
	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	_, role, err := auth.AuthorityOver(ctx, s.stores.Memberships, caller, orgID)
	if err != nil {
		return nil, err
	}
	if role == "" && !auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "you are not a member of this organization")
	}

	set, err := s.stores.Instructions.GetForOrg(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrInstructionSetNotFound) {
			return &models.InstructionSet{OrgID: &orgID, Overrides: map[string]string{}}, nil
		}
		return nil, apperr.Storage(err)
	}
	return set, nil
}

// SaveOrganization replaces an organization's overrides. Organization owners and admins, and
// superadmins, may save.
func (s *Service) SaveOrganization(ctx context.Context, orgID uuid.UUID, overrides map[string]string) (*models.InstructionSet, error) {
	caller, err := s.requireOrgManager(ctx, orgID)
	if err != nil {
		return nil, err
	}

	set := &models.InstructionSet{
		OrgID:     &orgID,
		Overrides: normalize(overrides),
		UpdatedAt: s.now().UTC(),
		UpdatedBy: &caller.AccountID,
	}
	if err := s.stores.Instructions.UpsertForOrg(ctx, set); err != nil {
		return nil, apperr.Storage(err)
	}
	s.invalidateOrganization(orgID)

	log.Info().Str("org_id", orgID.String()).Int("keys", len(set.Overrides)).Msg("Saved organization overrides")

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionOrgInstructions,
		TargetID: audit.Target(orgID),
		Details:  map[string]any{"keys": Keys(set.Overrides)},
	})

	return set, nil
}

// ResetOrganization removes the given keys from an organization's overrides, or every key when
// none are given.
func (s *Service) ResetOrganization(ctx context.Context, orgID uuid.UUID, keys ...string) (*models.InstructionSet, error) {
	caller, err := s.requireOrgManager(ctx, orgID)
	if err != nil {
		return nil, err
	}

	current, err := s.stores.Instructions.GetForOrg(ctx, orgID)
	if err != nil && !errors.Is(err, store.ErrInstructionSetNotFound) {
		return nil, apperr.Storage(err)
	}

	set := &models.InstructionSet{
		OrgID:     &orgID,
		Overrides: reset(current, keys),
		UpdatedAt: s.now().UTC(),
		UpdatedBy: &caller.AccountID,
	}
	if err := s.stores.Instructions.UpsertForOrg(ctx, set); err != nil {
		return nil, apperr.Storage(err)
	}
	s.invalidateOrganization(orgID)

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionOrgReset,
		TargetID: audit.Target(orgID),
		Details:  resetDetails(keys),
	})

	return set, nil
}

func (s *Service) requireSuperadmin(ctx context.Context) (*models.Account, error) {
	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}
	if !auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "only superadmins can manage global instructions")
	}
	return caller, nil
}

func (s *Service) requireOrgManager(ctx context.Context, orgID uuid.UUID) (*models.Account, error) {
	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	authority, _, err := auth.AuthorityOver(ctx, s.stores.Memberships, caller, orgID)
	if err != nil {
		return nil, err
	}
	if !authority.CanManage() {
		return nil, apperr.New(apperr.NotAuthorized, "only organization owners and admins can change instructions")
	}
	return caller, nil
}

func (s *Service) requireOrganization(ctx context.Context, orgID uuid.UUID) error {
	if _, err := s.stores.Organizations.Get(ctx, orgID); err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return apperr.New(apperr.NotFound, "organization not found")
		}
		return apperr.Storage(err)
	}
	return nil
}

func (s *Service) invalidateGlobal() {
	if s.resolver != nil {
		s.resolver.Global().Invalidate()
	}
}

func (s *Service) invalidateOrganization(orgID uuid.UUID) {
	if s.resolver == nil {
		return
	}
	if bound, ok := s.resolver.Organization().Organization(); ok && bound == orgID {
		s.resolver.Organization().Invalidate()
	}
}

// normalize copies overrides, trimming keys and dropping blank values.
func normalize(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(overrides))
	for k, v := range overrides {
		k = strings.TrimSpace(k)
		if k == "" || strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func reset(current *models.InstructionSet, keys []string) map[string]string {
	out := map[string]string{}
	if current == nil || len(keys) == 0 {
		return out
	}
	for k, v := range current.Overrides {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, strings.TrimSpace(k))
	}
	return out
}

func resetDetails(keys []string) map[string]any {
	if len(keys) == 0 {
		return map[string]any{"all": true}
	}
	return map[string]any{"keys": keys}
}
