package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// OrganizationDeletion describes the tenant data removed with an organization.
type OrganizationDeletion struct {
	OrgID                 uuid.UUID
	Name                  string
	ContentsDeleted       int64
	ProjectsDeleted       int64
	InstructionSetDeleted bool
	MembershipsDeleted    int64
	AffectedAccountIDs    []uuid.UUID
	ActiveOrgCleared      int
}

// Details renders the deletion for an audit record.
func (d *OrganizationDeletion) Details() map[string]any {
	return map[string]any{
		"org_id":                  d.OrgID.String(),
		"name":                    d.Name,
		"contents_deleted":        d.ContentsDeleted,
		"projects_deleted":        d.ProjectsDeleted,
		"instruction_set_deleted": d.InstructionSetDeleted,
		"memberships_deleted":     d.MembershipsDeleted,
		"affected_account_ids":    idStrings(d.AffectedAccountIDs),
		"active_org_cleared":      d.ActiveOrgCleared,
	}
}

// DeleteOrganization removes an organization and all of its tenant data.
// The caller must be the organization's owner or a superadmin. Accounts are never purged,
// only their projects in the organization and their membership links.
func (s *Service) DeleteOrganization(ctx context.Context, orgID uuid.UUID) (deletion *OrganizationDeletion, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.DeleteOrganization")
	defer span.End()
	defer func() { s.finish(ctx, procDeleteOrganization, err) }()

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}

	org, err := s.stores.Organizations.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.New(apperr.NotFound, "organization not found")
		}
		return nil, apperr.Storage(err)
	}

	authority, _, err := auth.AuthorityOver(ctx, s.stores.Memberships, caller, orgID)
	if err != nil {
		return nil, err
	}
	if authority != auth.AuthorityOrgOwner && authority != auth.AuthoritySuperadminOverride {
		// An interrupted delete may already have removed the owner membership.
		resumable, err := s.resumableOrgDelete(ctx, orgID, caller.AccountID)
		if err != nil {
			return nil, err
		}
		if !resumable {
			return nil, apperr.New(apperr.NotAuthorized, "only the organization owner can delete it")
		}
	}

	deletion, err = s.deleteOrganizationData(ctx, org)
	if err != nil {
		return deletion, err
	}

	s.invalidate(orgID)

	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionOrganizationDelete,
		TargetID: audit.Target(orgID),
		Details:  deletion.Details(),
	})

	return deletion, nil
}

// deleteOrganizationData removes, in order: project contents and projects scoped to the
// organization, its instruction set, every active organization reference to it, its memberships
// (recording the affected accounts first), and finally the organization row.
//
// Active organization references are cleared by organization rather than by member so that a
// re-run after the memberships are gone still clears them.
func (s *Service) deleteOrganizationData(ctx context.Context, org *models.Organization) (*OrganizationDeletion, error) {
	d := &OrganizationDeletion{OrgID: org.OrgID, Name: org.Name}

	projects, err := s.stores.Projects.ListByOrg(ctx, org.OrgID)
	if err != nil {
		return d, apperr.Storage(err)
	}
	if len(projects) > 0 {
		ids := make([]uuid.UUID, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ProjectID)
		}
		if d.ContentsDeleted, err = s.stores.Projects.DeleteContents(ctx, ids); err != nil {
			return d, apperr.Storage(err)
		}
		if d.ProjectsDeleted, err = s.stores.Projects.Delete(ctx, ids); err != nil {
			return d, apperr.Storage(err)
		}
	}

	if d.InstructionSetDeleted, err = s.stores.Instructions.DeleteForOrg(ctx, org.OrgID); err != nil {
		return d, apperr.Storage(err)
	}

	cleared, err := s.stores.Accounts.ClearActiveOrgForOrg(ctx, org.OrgID)
	if err != nil {
		return d, apperr.Storage(err)
	}
	d.ActiveOrgCleared = int(cleared)

	memberships, err := s.stores.Memberships.ListByOrg(ctx, org.OrgID)
	if err != nil {
		return d, apperr.Storage(err)
	}
	for _, m := range memberships {
		d.AffectedAccountIDs = append(d.AffectedAccountIDs, m.AccountID)
	}

	if d.MembershipsDeleted, err = s.stores.Memberships.DeleteByOrg(ctx, org.OrgID); err != nil {
		return d, apperr.Storage(err)
	}

	if err := s.stores.Organizations.Delete(ctx, org.OrgID); err != nil {
		return d, apperr.Storage(err)
	}

	telemetry.GetMetrics().PurgedRowsTotal.Add(ctx, d.ContentsDeleted+d.ProjectsDeleted+d.MembershipsDeleted+1)

	log.Info().
		Str("org_id", org.OrgID.String()).
		Int64("projects", d.ProjectsDeleted).
		Int64("memberships", d.MembershipsDeleted).
		Int("active_org_cleared", d.ActiveOrgCleared).
		Msg("Deleted organization")

	return d, nil
}

// resumableOrgDelete reports whether accountID may finish deleting an organization it created
// whose memberships, including the owner's, are already gone.
func (s *Service) resumableOrgDelete(ctx context.Context, orgID, accountID uuid.UUID) (bool, error) {
	empty, err := s.memberless(ctx, orgID)
	if err != nil || !empty {
		return false, err
	}
	return s.createdBy(ctx, orgID, accountID)
}
