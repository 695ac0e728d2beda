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

// RemoveOptions controls org-scoped user removal.
type RemoveOptions struct {
	// AlsoDeleteAccount purges the account even if it still belongs to other organizations.
	AlsoDeleteAccount bool
}

// RemovalReport describes what an org-scoped removal did.
type RemovalReport struct {
	OrgID                uuid.UUID
	AccountID            uuid.UUID
	ContentsDeleted      int64
	ProjectsDeleted      int64
	ActiveOrgCleared     bool
	RemainingMemberships int

	// Purge is set when the account was fully purged.
	Purge *PurgeReport

	// PurgeSkipped is true when a purge was due but the target is a superadmin.
	PurgeSkipped bool
}

// RemoveFromOrganization removes an account from one organization.
//
// The caller must be an owner or admin of the organization, or a superadmin. Only a superadmin may
// remove the owner. The target's projects in the organization and its membership are removed and
// its active organization is cleared if it pointed here. The account is then fully purged when
// opts.AlsoDeleteAccount is set or when it holds no other memberships.
func (s *Service) RemoveFromOrganization(ctx context.Context, orgID, targetID uuid.UUID, opts RemoveOptions) (report *RemovalReport, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.RemoveFromOrganization")
	defer span.End()
	defer func() { s.finish(ctx, procRemoveFromOrg, err) }()

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}

	if _, err := s.stores.Organizations.Get(ctx, orgID); err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperr.New(apperr.NotFound, "organization not found")
		}
		return nil, apperr.Storage(err)
	}

	authority, _, err := auth.AuthorityOver(ctx, s.stores.Memberships, caller, orgID)
	if err != nil {
		return nil, err
	}
	if !authority.CanManage() {
		return nil, apperr.New(apperr.NotAuthorized, "only organization owners and admins can remove members")
	}
	if targetID == caller.AccountID {
		return nil, apperr.New(apperr.InvalidTarget, "you cannot remove yourself from the organization")
	}

	var removedRole models.OrgRole
	membership, err := s.stores.Memberships.Get(ctx, orgID, targetID)
	switch {
	case errors.Is(err, store.ErrMembershipNotFound):
		// A previous attempt may have stopped after the membership went.
		role, resumable, err := s.removalLeftovers(ctx, orgID, targetID)
		if err != nil {
			return nil, err
		}
		if !resumable {
			return nil, apperr.New(apperr.NotFound, "account is not a member of this organization")
		}
		removedRole = role
	case err != nil:
		return nil, apperr.Storage(err)
	default:
		removedRole = membership.Role
	}
	if removedRole == models.OrgRoleOwner && authority != auth.AuthoritySuperadminOverride {
		return nil, apperr.New(apperr.InvalidTarget, "the organization owner can only be removed by a superadmin")
	}

	// The account row may already be gone after a partial purge; the membership is still removed.
	var targetIsSuperadmin bool
	target, err := s.getAccount(ctx, targetID)
	switch {
	case apperr.IsKind(err, apperr.NotFound):
	case err != nil:
		return nil, err
	default:
		targetIsSuperadmin = auth.IsSuperadmin(target.Role)
	}
	if targetIsSuperadmin && opts.AlsoDeleteAccount {
		return nil, apperr.New(apperr.InvalidTarget, "superadmin accounts cannot be deleted")
	}

	report = &RemovalReport{OrgID: orgID, AccountID: targetID}

	projects, err := s.stores.Projects.ListByOwnerInOrg(ctx, targetID, orgID)
	if err != nil {
		return report, apperr.Storage(err)
	}
	if len(projects) > 0 {
		ids := make([]uuid.UUID, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ProjectID)
		}
		if report.ContentsDeleted, err = s.stores.Projects.DeleteContents(ctx, ids); err != nil {
			return report, apperr.Storage(err)
		}
		if report.ProjectsDeleted, err = s.stores.Projects.Delete(ctx, ids); err != nil {
			return report, apperr.Storage(err)
		}
	}

	if report.ActiveOrgCleared, err = s.stores.Accounts.ClearActiveOrg(ctx, targetID, orgID); err != nil {
		return report, apperr.Storage(err)
	}

	held, err := s.stores.Memberships.ListByAccount(ctx, targetID)
	if err != nil {
		return report, apperr.Storage(err)
	}
	for _, m := range held {
		if m.OrgID != orgID {
			report.RemainingMemberships++
		}
	}

	// The membership goes last: a purge removes it along with the account's other memberships,
	// otherwise it is deleted on its own.
	purge := opts.AlsoDeleteAccount || report.RemainingMemberships == 0
	if purge && targetIsSuperadmin {
		purge = false
		report.PurgeSkipped = true
		log.Warn().
			Str("account_id", targetID.String()).
			Str("org_id", orgID.String()).
			Msg("Skipping purge of superadmin left without memberships")
	}

	if purge {
		report.Purge, err = s.purger.PurgeAccount(ctx, targetID)
		if err != nil {
			return report, err
		}
	} else if err := s.stores.Memberships.Delete(ctx, orgID, targetID); err != nil {
		return report, apperr.Storage(err)
	}

	details := map[string]any{
		"org_id":                orgID.String(),
		"removed_role":          string(removedRole),
		"contents_deleted":      report.ContentsDeleted,
		"projects_deleted":      report.ProjectsDeleted,
		"active_org_cleared":    report.ActiveOrgCleared,
		"remaining_memberships": report.RemainingMemberships,
		"also_delete_requested": opts.AlsoDeleteAccount,
		"account_purged":        report.Purge != nil,
		"purge_skipped":         report.PurgeSkipped,
	}
	if report.Purge != nil {
		details["purge"] = report.Purge.Details()
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionAccountRemoveFromOrg,
		TargetID: audit.Target(targetID),
		Details:  details,
	})

	return report, nil
}

// removalLeftovers inspects a target whose membership in orgID is already gone. The removal is
// resumable when the target still has projects in the organization, still points its active
// organization at it, or is recorded as a former member and still has an account row without
// memberships. The returned role is owner when the target created the organization or the
// organization no longer has an owner membership.
func (s *Service) removalLeftovers(ctx context.Context, orgID, targetID uuid.UUID) (models.OrgRole, bool, error) {
	projects, err := s.stores.Projects.ListByOwnerInOrg(ctx, targetID, orgID)
	if err != nil {
		return "", false, apperr.Storage(err)
	}

	target, err := s.getAccount(ctx, targetID)
	if err != nil && !apperr.IsKind(err, apperr.NotFound) {
		return "", false, err
	}

	created, err := s.createdBy(ctx, orgID, targetID)
	if err != nil {
		return "", false, err
	}

	resumable := len(projects) > 0 || (target != nil && target.ActiveOrgID != nil && *target.ActiveOrgID == orgID)
	if !resumable && target != nil {
		held, err := s.stores.Memberships.ListByAccount(ctx, targetID)
		if err != nil {
			return "", false, apperr.Storage(err)
		}
		if len(held) == 0 {
			added := created
			if !added {
				if added, err = s.addedTo(ctx, orgID, targetID); err != nil {
					return "", false, err
				}
			}
			resumable = added
		}
	}
	if !resumable {
		return "", false, nil
	}

	if created {
		return models.OrgRoleOwner, true, nil
	}
	members, err := s.stores.Memberships.ListByOrg(ctx, orgID)
	if err != nil {
		return "", false, apperr.Storage(err)
	}
	for _, m := range members {
		if m.Role == models.OrgRoleOwner {
			return models.OrgRoleMember, true, nil
		}
	}
	return models.OrgRoleOwner, true, nil
}
