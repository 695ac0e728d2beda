package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// SelfDeletion describes what a self-delete removed.
type SelfDeletion struct {
	Organizations []*OrganizationDeletion
	Purge         *PurgeReport
}

// DeleteSelf deletes the caller's own account.
//
// Superadmins cannot delete themselves. Every organization the caller owns must have no other
// members; otherwise nothing is deleted and the blocking organization is named in the error.
// Owned organizations are removed entirely before the account is purged.
func (s *Service) DeleteSelf(ctx context.Context) (result *SelfDeletion, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.DeleteSelf")
	defer span.End()
	defer func() { s.finish(ctx, procDeleteSelf, err) }()

	caller, err := auth.LoadCaller(ctx, s.stores.Accounts)
	if err != nil {
		return nil, err
	}
	if auth.IsSuperadmin(caller.Role) {
		return nil, apperr.New(apperr.NotAuthorized, "superadmin accounts cannot delete themselves")
	}

	memberships, err := s.stores.Memberships.ListByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	// Check every owned organization before deleting anything.
	var owned []*models.Organization
	for _, m := range memberships {
		if m.Role != models.OrgRoleOwner {
			continue
		}

		org, err := s.stores.Organizations.Get(ctx, m.OrgID)
		if err != nil {
			if errors.Is(err, store.ErrOrganizationNotFound) {
				// dangling membership, the purge removes it
				continue
			}
			return nil, apperr.Storage(err)
		}

		members, err := s.stores.Memberships.ListByOrg(ctx, m.OrgID)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		others := 0
		for _, member := range members {
			if member.AccountID != caller.AccountID {
				others++
			}
		}
		if others > 0 {
			return nil, apperr.New(apperr.DependentDataBlocks,
				"you own the organization %q which still has %s; remove them before deleting your account",
				org.Name, pluralMembers(others))
		}

		owned = append(owned, org)
	}

	// An earlier self-delete may have stopped inside an organization delete, after the owner
	// membership was removed but before the organization row was.
	created, err := s.createdOrganizations(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	for _, orgID := range created {
		org, err := s.stores.Organizations.Get(ctx, orgID)
		if err != nil {
			if errors.Is(err, store.ErrOrganizationNotFound) {
				continue
			}
			return nil, apperr.Storage(err)
		}
		empty, err := s.memberless(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if empty {
			owned = append(owned, org)
		}
	}

	result = &SelfDeletion{}
	for _, org := range owned {
		deletion, err := s.deleteOrganizationData(ctx, org)
		if deletion != nil {
			result.Organizations = append(result.Organizations, deletion)
		}
		if err != nil {
			return result, err
		}
		s.invalidate(org.OrgID)
	}

	result.Purge, err = s.purger.PurgeAccount(ctx, caller.AccountID)
	if err != nil {
		return result, err
	}

	orgDetails := make([]map[string]any, 0, len(result.Organizations))
	for _, d := range result.Organizations {
		orgDetails = append(orgDetails, d.Details())
	}
	details := result.Purge.Details()
	details["email"] = caller.Email
	details["organizations_deleted"] = orgDetails
	s.audit.Record(ctx, audit.Entry{
		ActorID:  caller.AccountID,
		Action:   audit.ActionAccountSelfDelete,
		TargetID: audit.Target(caller.AccountID),
		Details:  details,
	})

	return result, nil
}

func pluralMembers(n int) string {
	if n == 1 {
		return "1 other member"
	}
	return fmt.Sprintf("%d other members", n)
}
