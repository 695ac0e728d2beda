// Package orgs manages organizations, their memberships and each caller's active organization.
package orgs

import (
	"context"
	"errors"
	"sort"
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

const slugAttempts = 3

// UpdateOrganizationRequest carries the organization fields that may change. Nil fields are left as is.
type UpdateOrganizationRequest struct {
	Name    *string
	LogoURL *string
}

// Service implements organization and membership operations against the stores.
type Service struct {
	stores *store.Stores
	audit  *audit.Recorder
	now    func() time.Time
}

// NewService creates an organization service.
func NewService(stores *store.Stores, recorder *audit.Recorder) *Service {
	return &Service{stores: stores, audit: recorder, now: time.Now}
}

// CreateOrganization creates an organization owned by the caller along with its empty
// instruction set.
func (s *Service) CreateOrganization(ctx context.Context, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.InvalidTarget, "organization name is required")
	}

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}

	orgID, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Storage(err)
	}

	now := s.now().UTC()
	org := &models.Organization{
		OrgID:     orgID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := range slugAttempts {
		org.Slug = Slugify(name, now.Add(time.Duration(attempt)*time.Millisecond))
		err = s.stores.Organizations.Create(ctx, org)
		if !errors.Is(err, store.ErrOrganizationAlreadyExists) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			return nil, apperr.New(apperr.InvalidTarget, "an organization with a similar name was just created, try again")
		}
		return nil, apperr.Storage(err)
	}

	err = s.stores.Memberships.Create(ctx, &models.Membership{
		OrgID:     orgID,
		AccountID: caller.AccountID,
		Role:      models.OrgRoleOwner,
		JoinedAt:  now,
	})
	if err != nil {
		// an organization without an owner can never be deleted by its creator
		if delErr := s.stores.Organizations.Delete(ctx, orgID); delErr != nil {
			log.Error().Err(delErr).Str("org_id", orgID.String()).Msg("Failed to remove organization without owner")
		}
		return nil, apperr.Storage(err)
	}

	err = s.stores.Instructions.UpsertForOrg(ctx, &models.InstructionSet{
		OrgID:     &orgID,
		Overrides: map[string]string{},
		UpdatedAt: now,
		UpdatedBy: &caller.AccountID,
	})
	if err != nil {
		// the overrides layer treats a missing set as empty
		log.Warn().Err(err).Str("org_id", orgID.String()).Msg("Failed to create organization instruction set")
	}

	log.Info().Str("org_id", orgID.String()).Str("slug", org.Slug).Msg("Created organization")

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionOrganizationCreate,
		TargetID: audit.Target(orgID),
		Details:  map[string]any{"name": org.Name, "slug": org.Slug},
	})

	return org, nil
}

// UpdateOrganization renames an organization or changes its logo.
// Owners and admins of the organization, and superadmins, may update it.
func (s *Service) UpdateOrganization(ctx context.Context, orgID uuid.UUID, req UpdateOrganizationRequest) (*models.Organization, error) {
	caller, org, authority, _, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !authority.CanManage() {
		return nil, apperr.New(apperr.NotAuthorized, "only organization owners and admins can update it")
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.New(apperr.InvalidTarget, "organization name is required")
		}
		if name != org.Name {
			changes["name"] = map[string]string{"from": org.Name, "to": name}
			org.Name = name
		}
	}
	if req.LogoURL != nil && *req.LogoURL != org.LogoURL {
		changes["logo_url"] = map[string]string{"from": org.LogoURL, "to": *req.LogoURL}
		org.LogoURL = *req.LogoURL
	}
	if len(changes) == 0 {
		return org, nil
	}

	org.UpdatedAt = s.now().UTC()
	if err := s.stores.Organizations.Update(ctx, org); err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.New(apperr.NotFound, "organization not found")
		}
		return nil, apperr.Storage(err)
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionOrganizationUpdate,
		TargetID: audit.Target(orgID),
		Details:  changes,
	})

	return org, nil
}

// GetOrganization returns an organization the caller belongs to. Superadmins may read any.
func (s *Service) GetOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	caller, org, _, role, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if role == "" && !auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "you are not a member of this organization")
	}
	return org, nil
}

// ListOrganizations returns the organizations the caller belongs to, sorted by name.
func (s *Service) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}

	memberships, err := s.stores.Memberships.ListByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if len(memberships) == 0 {
		return []*models.Organization{}, nil
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.OrgID)
	}

	orgs, err := s.stores.Organizations.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	sort.Slice(orgs, func(i, j int) bool {
		return strings.ToLower(orgs[i].Name) < strings.ToLower(orgs[j].Name)
	})
	return orgs, nil
}

// AddMember adds the account registered under email to an organization.
// Only owners and superadmins may add admins; nobody may add a second owner.
func (s *Service) AddMember(ctx context.Context, orgID uuid.UUID, email string, role models.OrgRole) (*models.Membership, error) {
	if !role.Valid() || role == models.OrgRoleOwner {
		return nil, apperr.New(apperr.InvalidTarget, "members can only be added as member or admin")
	}

	caller, _, authority, _, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !authority.CanManage() {
		return nil, apperr.New(apperr.NotAuthorized, "only organization owners and admins can add members")
	}
	if role == models.OrgRoleAdmin && authority == auth.AuthorityOrgAdmin {
		return nil, apperr.New(apperr.NotAuthorized, "only the organization owner can add admins")
	}

	account, err := s.stores.Accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.NotFound, "no account is registered with %s", email)
		}
		return nil, apperr.Storage(err)
	}

	membership := &models.Membership{
		OrgID:     orgID,
		AccountID: account.AccountID,
		Role:      role,
		JoinedAt:  s.now().UTC(),
	}
	if err := s.stores.Memberships.Create(ctx, membership); err != nil {
		if errors.Is(err, store.ErrMembershipAlreadyExists) {
			return nil, apperr.New(apperr.InvalidTarget, "%s is already a member of this organization", account.Email)
		}
		return nil, apperr.Storage(err)
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionMembershipAdd,
		TargetID: audit.Target(account.AccountID),
		Details:  map[string]any{"org_id": orgID.String(), "role": string(role)},
	})

	return membership, nil
}

// UpdateMemberRole changes a member's role within an organization. The owner's role cannot be
// changed and nobody can be promoted to owner. Org admins may only manage plain members.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, accountID uuid.UUID, role models.OrgRole) error {
	if !role.Valid() || role == models.OrgRoleOwner {
		return apperr.New(apperr.InvalidTarget, "members can only be given the member or admin role")
	}

	caller, _, authority, _, err := s.load(ctx, orgID)
	if err != nil {
		return err
	}
	if !authority.CanManage() {
		return apperr.New(apperr.NotAuthorized, "only organization owners and admins can change roles")
	}
	if accountID == caller.AccountID {
		return apperr.New(apperr.InvalidTarget, "you cannot change your own role")
	}

	membership, err := s.stores.Memberships.Get(ctx, orgID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return apperr.New(apperr.NotFound, "account is not a member of this organization")
		}
		return apperr.Storage(err)
	}
	if membership.Role == models.OrgRoleOwner {
		return apperr.New(apperr.InvalidTarget, "the owner's role cannot be changed")
	}
	if authority == auth.AuthorityOrgAdmin && (role == models.OrgRoleAdmin || membership.Role == models.OrgRoleAdmin) {
		return apperr.New(apperr.NotAuthorized, "only the organization owner can grant or revoke admin")
	}
	if membership.Role == role {
		return nil
	}

	if err := s.stores.Memberships.UpdateRole(ctx, orgID, accountID, role); err != nil {
		return apperr.Storage(err)
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionMembershipRoleUpdate,
		TargetID: audit.Target(accountID),
		Details: map[string]any{
			"org_id": orgID.String(),
			"from":   string(membership.Role),
			"to":     string(role),
		},
	})

	return nil
}

// LeaveOrganization removes the caller's own membership. The owner cannot leave; the
// organization has to be deleted instead. Projects the caller kept in the organization are removed.
func (s *Service) LeaveOrganization(ctx context.Context, orgID uuid.UUID) error {
	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return err
	}

	membership, err := s.stores.Memberships.Get(ctx, orgID, caller.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return apperr.New(apperr.NotFound, "you are not a member of this organization")
		}
		return apperr.Storage(err)
	}
	if membership.Role == models.OrgRoleOwner {
		return apperr.New(apperr.InvalidTarget, "the owner cannot leave the organization, delete it instead")
	}

	projects, err := s.stores.Projects.ListByOwnerInOrg(ctx, caller.AccountID, orgID)
	if err != nil {
		return apperr.Storage(err)
	}
	var projectsDeleted int64
	if len(projects) > 0 {
		ids := make([]uuid.UUID, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ProjectID)
		}
		if _, err := s.stores.Projects.DeleteContents(ctx, ids); err != nil {
			return apperr.Storage(err)
		}
		if projectsDeleted, err = s.stores.Projects.Delete(ctx, ids); err != nil {
			return apperr.Storage(err)
		}
	}

	if err := s.stores.Memberships.Delete(ctx, orgID, caller.AccountID); err != nil {
		return apperr.Storage(err)
	}
	cleared, err := s.stores.Accounts.ClearActiveOrg(ctx, caller.AccountID, orgID)
	if err != nil {
		return apperr.Storage(err)
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionMembershipLeave,
		TargetID: audit.Target(orgID),
		Details: map[string]any{
			"role":               string(membership.Role),
			"projects_deleted":   projectsDeleted,
			"active_org_cleared": cleared,
		},
	})

	return nil
}

// GetOrgMembers lists the members of an organization with whatever profile fields are readable.
//
// Memberships and profiles are read separately: a profile the caller cannot read is simply
// missing from the second lookup, and the member is still listed with role and join date.
func (s *Service) GetOrgMembers(ctx context.Context, orgID uuid.UUID) ([]*models.Member, error) {
	caller, _, _, role, err := s.load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if role == "" && !auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "you are not a member of this organization")
	}

	memberships, err := s.stores.Memberships.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.AccountID)
	}

	profiles := map[uuid.UUID]*models.Account{}
	if len(ids) > 0 {
		accounts, err := s.stores.Accounts.ListByIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		for _, a := range accounts {
			profiles[a.AccountID] = a
		}
	}

	members := make([]*models.Member, 0, len(memberships))
	for _, m := range memberships {
		member := &models.Member{Membership: *m}
		if p, ok := profiles[m.AccountID]; ok {
			email, name := p.Email, p.DisplayName
			member.Email = &email
			member.DisplayName = &name
		}
		members = append(members, member)
	}
	return members, nil
}

// load resolves the caller, the organization and the caller's authority over it.
func (s *Service) load(ctx context.Context, orgID uuid.UUID) (*models.Account, *models.Organization, auth.OrgAuthority, models.OrgRole, error) {
	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, nil, auth.AuthorityForbidden, "", err
	}

	org, err := s.stores.Organizations.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, nil, auth.AuthorityForbidden, "", apperr.New(apperr.NotFound, "organization not found")
		}
		return nil, nil, auth.AuthorityForbidden, "", apperr.Storage(err)
	}

	authority, role, err := auth.AuthorityOver(ctx, s.stores.Memberships, caller, orgID)
	if err != nil {
		return nil, nil, auth.AuthorityForbidden, "", err
	}
	return caller, org, authority, role, nil
}
