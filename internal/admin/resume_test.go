package admin

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

func TestDeleteOrganizationRetry(t *testing.T) {
	type world struct {
		f      *fixture
		owner  uuid.UUID
		member uuid.UUID
		org    uuid.UUID
	}
	setup := func(t *testing.T) *world {
		f := newFixture(t)
		w := &world{
			f:      f,
			owner:  f.account("owner@example.com", models.GlobalRoleUser),
			member: f.account("member@example.com", models.GlobalRoleUser),
			org:    f.org("acme"),
		}
		f.created(w.org, w.owner)
		f.join(w.org, w.owner, models.OrgRoleOwner)
		f.join(w.org, w.member, models.OrgRoleMember)
		f.activate(w.owner, w.org)
		f.activate(w.member, w.org)
		f.project(w.member, &w.org)
		return w
	}
	requireGone := func(t *testing.T, w *world) {
		_, err := w.f.stores.Organizations.Get(w.f.ctx, w.org)
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
		for _, id := range []uuid.UUID{w.owner, w.member} {
			account, err := w.f.stores.Accounts.Get(w.f.ctx, id)
			require.NoError(t, err)
			require.Nil(t, account.ActiveOrgID)
		}
	}

	t.Run("failed active organization clear keeps memberships", func(t *testing.T) {
		w := setup(t)
		f := w.f
		accounts := &failingAccounts{AccountStore: f.stores.Accounts, failClear: true}
		f.stores.Accounts = accounts

		_, err := f.svc.DeleteOrganization(f.as(w.owner), w.org)
		require.Equal(t, apperr.StorageFailure, apperr.KindOf(err))

		members, err := f.stores.Memberships.ListByOrg(f.ctx, w.org)
		require.NoError(t, err)
		require.Len(t, members, 2)

		accounts.failClear = false
		deletion, err := f.svc.DeleteOrganization(f.as(w.owner), w.org)
		require.NoError(t, err)
		require.Equal(t, 2, deletion.ActiveOrgCleared)
		requireGone(t, w)
	})

	t.Run("owner finishes after memberships are gone", func(t *testing.T) {
		w := setup(t)
		f := w.f
		orgs := &failingOrganizations{OrganizationStore: f.stores.Organizations, failAt: 1}
		f.stores.Organizations = orgs

		_, err := f.svc.DeleteOrganization(f.as(w.owner), w.org)
		require.Equal(t, apperr.StorageFailure, apperr.KindOf(err))

		members, err := f.stores.Memberships.ListByOrg(f.ctx, w.org)
		require.NoError(t, err)
		require.Empty(t, members)
		_, err = f.stores.Organizations.Get(f.ctx, w.org)
		require.NoError(t, err)

		// neither a former member nor a stranger can take over the half deleted organization
		stranger := f.account("stranger@example.com", models.GlobalRoleUser)
		for _, caller := range []uuid.UUID{w.member, stranger} {
			_, err = f.svc.DeleteOrganization(f.as(caller), w.org)
			require.Equal(t, apperr.NotAuthorized, apperr.KindOf(err))
		}

		deletion, err := f.svc.DeleteOrganization(f.as(w.owner), w.org)
		require.NoError(t, err)
		require.Zero(t, deletion.MembershipsDeleted)
		requireGone(t, w)
	})
}

func TestRemoveFromOrganizationRetry(t *testing.T) {
	type world struct {
		f     *fixture
		root  uuid.UUID
		owner uuid.UUID
		admin uuid.UUID
		user  uuid.UUID
		org   uuid.UUID
	}
	setup := func(t *testing.T) *world {
		f := newFixture(t)
		w := &world{
			f:     f,
			root:  f.account("root@example.com", models.GlobalRoleSuperadmin),
			owner: f.account("owner@example.com", models.GlobalRoleUser),
			admin: f.account("admin@example.com", models.GlobalRoleUser),
			user:  f.account("user@example.com", models.GlobalRoleUser),
			org:   f.org("acme"),
		}
		f.created(w.org, w.owner)
		f.join(w.org, w.owner, models.OrgRoleOwner)
		f.join(w.org, w.admin, models.OrgRoleAdmin)
		f.added(w.org, w.owner, w.user)
		f.join(w.org, w.user, models.OrgRoleMember)
		return w
	}

	t.Run("failed active organization clear keeps the membership", func(t *testing.T) {
		w := setup(t)
		f := w.f
		f.activate(w.user, w.org)
		f.project(w.user, &w.org)
		accounts := &failingAccounts{AccountStore: f.stores.Accounts, failClear: true}
		f.stores.Accounts = accounts

		_, err := f.svc.RemoveFromOrganization(f.as(w.admin), w.org, w.user, RemoveOptions{})
		require.Equal(t, apperr.StorageFailure, apperr.KindOf(err))

		_, err = f.stores.Memberships.Get(f.ctx, w.org, w.user)
		require.NoError(t, err)
		projects, err := f.stores.Projects.ListByOwnerInOrg(f.ctx, w.user, w.org)
		require.NoError(t, err)
		require.Empty(t, projects)

		accounts.failClear = false
		report, err := f.svc.RemoveFromOrganization(f.as(w.admin), w.org, w.user, RemoveOptions{})
		require.NoError(t, err)
		require.True(t, report.ActiveOrgCleared)
		require.NotNil(t, report.Purge)
		f.requirePurged(w.user)
	})

	t.Run("purge stopped at the account row resumes", func(t *testing.T) {
		w := setup(t)
		f := w.f
		f.project(w.user, nil)
		accounts := &failingAccounts{AccountStore: f.stores.Accounts, fail: true}
		f.stores.Accounts = accounts

		_, err := f.svc.RemoveFromOrganization(f.as(w.admin), w.org, w.user, RemoveOptions{})
		require.Equal(t, apperr.StorageFailure, apperr.KindOf(err))

		held, err := f.stores.Memberships.ListByAccount(f.ctx, w.user)
		require.NoError(t, err)
		require.Empty(t, held)
		_, err = f.stores.Accounts.Get(f.ctx, w.user)
		require.NoError(t, err)

		accounts.fail = false
		report, err := f.svc.RemoveFromOrganization(f.as(w.admin), w.org, w.user, RemoveOptions{})
		require.NoError(t, err)
		require.NotNil(t, report.Purge)
		require.True(t, report.Purge.AccountDeleted)
		f.requirePurged(w.user)
	})

	t.Run("memberless account without history is not a member", func(t *testing.T) {
		w := setup(t)
		f := w.f
		loner := f.account("loner@example.com", models.GlobalRoleUser)

		_, err := f.svc.RemoveFromOrganization(f.as(w.admin), w.org, loner, RemoveOptions{})
		require.Equal(t, apperr.NotFound, apperr.KindOf(err))

		_, err = f.stores.Accounts.Get(f.ctx, loner)
		require.NoError(t, err)
	})

	t.Run("interrupted owner removal still needs a superadmin", func(t *testing.T) {
		w := setup(t)
		f := w.f
		accounts := &failingAccounts{AccountStore: f.stores.Accounts, fail: true}
		f.stores.Accounts = accounts

		_, err := f.svc.RemoveFromOrganization(f.as(w.root), w.org, w.owner, RemoveOptions{})
		require.Equal(t, apperr.StorageFailure, apperr.KindOf(err))
		_, err = f.stores.Memberships.Get(f.ctx, w.org, w.owner)
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		accounts.fail = false
		_, err = f.svc.RemoveFromOrganization(f.as(w.admin), w.org, w.owner, RemoveOptions{})
		require.Equal(t, apperr.InvalidTarget, apperr.KindOf(err))

		report, err := f.svc.RemoveFromOrganization(f.as(w.root), w.org, w.owner, RemoveOptions{})
		require.NoError(t, err)
		require.NotNil(t, report.Purge)
		f.requirePurged(w.owner)
	})
}

func TestDeleteSelfRetry(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice@example.com", models.GlobalRoleUser)
	first, second := f.org("first"), f.org("second")
	for _, org := range []uuid.UUID{first, second} {
		f.created(org, alice)
		f.join(org, alice, models.OrgRoleOwner)
		f.project(alice, &org)
	}
	f.activate(alice, second)

	// the second organization delete stops after its memberships are removed
	orgs := &failingOrganizations{OrganizationStore: f.stores.Organizations, failAt: 2}
	f.stores.Organizations = orgs

	result, err := f.svc.DeleteSelf(f.as(alice))
	require.Equal(t, apperr.StorageFailure, apperr.KindOf(err))
	require.Len(t, result.Organizations, 2)
	require.Nil(t, result.Purge)

	held, err := f.stores.Memberships.ListByAccount(f.ctx, alice)
	require.NoError(t, err)
	require.Empty(t, held)
	_, err = f.stores.Accounts.Get(f.ctx, alice)
	require.NoError(t, err)

	remaining := 0
	for _, org := range []uuid.UUID{first, second} {
		if _, err := f.stores.Organizations.Get(f.ctx, org); err == nil {
			remaining++
		}
	}
	require.Equal(t, 1, remaining)

	result, err = f.svc.DeleteSelf(f.as(alice))
	require.NoError(t, err)
	require.Len(t, result.Organizations, 1)
	require.True(t, result.Purge.AccountDeleted)

	for _, org := range []uuid.UUID{first, second} {
		_, err := f.stores.Organizations.Get(f.ctx, org)
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	}
	f.requirePurged(alice)
}
