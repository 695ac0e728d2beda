package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// LoadCaller resolves the authenticated caller's account from storage.
// The role is always read fresh so a demoted account loses its authority immediately.
func LoadCaller(ctx context.Context, accounts store.AccountStore) (*models.Account, error) {
	id, ok := CallerFromContext(ctx)
	if !ok {
		return nil, apperr.New(apperr.AuthenticationRequired, "you must be signed in")
	}

	account, err := accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.AuthenticationRequired, "your account no longer exists")
		}
		return nil, apperr.Storage(err)
	}

	return account, nil
}

// OrgRoleOf returns the caller's role in an organization, or "" when the caller is not a member.
func OrgRoleOf(ctx context.Context, memberships store.MembershipStore, account *models.Account, orgID uuid.UUID) (models.OrgRole, error) {
	m, err := memberships.Get(ctx, orgID, account.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return "", nil
		}
		return "", apperr.Storage(err)
	}
	return m.Role, nil
}

// AuthorityOver combines LoadCaller's account with its membership into an OrgAuthority.
func AuthorityOver(ctx context.Context, memberships store.MembershipStore, account *models.Account, orgID uuid.UUID) (OrgAuthority, models.OrgRole, error) {
	role, err := OrgRoleOf(ctx, memberships, account, orgID)
	if err != nil {
		return AuthorityForbidden, "", err
	}
	return CanActOnOrg(IsSuperadmin(account.Role), role), role, nil
}
