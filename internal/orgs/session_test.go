package orgs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/admin"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/overrides"
)

func TestSessionSwitchOrganization(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice@example.com", models.GlobalRoleUser)
	ctx := f.as(alice)

	orgCache := overrides.NewOrgCache(f.stores.Instructions)
	resolver := overrides.NewResolver(overrides.NewGlobalCache(f.stores.Instructions), orgCache)
	session := NewSession(f.svc, orgCache)

	active, err := session.ActiveOrganization(ctx)
	require.NoError(t, err)
	require.Nil(t, active)

	o1, err := session.CreateOrganization(ctx, "One")
	require.NoError(t, err)
	require.Equal(t, models.OrgRoleOwner, session.ActiveRole())

	o2, err := f.svc.CreateOrganization(ctx, "Two")
	require.NoError(t, err)
	require.NoError(t, f.stores.Instructions.UpsertForOrg(f.ctx, &models.InstructionSet{OrgID: &o1.OrgID, Overrides: map[string]string{"x": "O1"}}))
	require.NoError(t, f.stores.Instructions.UpsertForOrg(f.ctx, &models.InstructionSet{OrgID: &o2.OrgID, Overrides: map[string]string{"x": "O2"}}))

	res, err := resolver.ResolveContext(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "O1", res.Value)
	require.Equal(t, "O1", resolver.Resolve("x").Value)

	switched, err := session.SwitchOrganization(ctx, o2.OrgID)
	require.NoError(t, err)
	require.Equal(t, o2.OrgID, switched.OrgID)

	res = resolver.Resolve("x")
	require.Equal(t, overrides.SourceNotLoaded, res.Source, "no stale value from the previous organization")
	require.Empty(t, res.Value)

	res, err = resolver.ResolveContext(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "O2", res.Value)

	account, err := f.stores.Accounts.Get(f.ctx, alice)
	require.NoError(t, err)
	require.Equal(t, o2.OrgID, *account.ActiveOrgID)

	orgs, err := session.Organizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 2)

	t.Run("requires membership", func(t *testing.T) {
		other := f.account("other@example.com", models.GlobalRoleUser)
		_, err := NewSession(f.svc, nil).SwitchOrganization(f.as(other), o1.OrgID)
		require.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})
}

func TestSessionClearsDanglingActiveOrganization(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice@example.com", models.GlobalRoleUser)
	missing := uuid.New()
	require.NoError(t, f.stores.Accounts.SetActiveOrg(f.ctx, alice, &missing))

	active, err := NewSession(f.svc, nil).ActiveOrganization(f.as(alice))
	require.NoError(t, err)
	require.Nil(t, active)

	account, err := f.stores.Accounts.Get(f.ctx, alice)
	require.NoError(t, err)
	require.Nil(t, account.ActiveOrgID)
}

func TestSessionInvalidatedByOrganizationDelete(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice@example.com", models.GlobalRoleUser)
	ctx := f.as(alice)

	orgCache := overrides.NewOrgCache(f.stores.Instructions)
	session := NewSession(f.svc, orgCache)
	adminSvc := admin.NewService(f.stores, audit.NewRecorder(f.stores.Audit), session, orgCache)

	org, err := session.CreateOrganization(ctx, "Doomed")
	require.NoError(t, err)
	bound, ok := orgCache.Organization()
	require.True(t, ok)
	require.Equal(t, org.OrgID, bound)

	_, err = adminSvc.DeleteOrganization(ctx, org.OrgID)
	require.NoError(t, err)

	_, ok = orgCache.Organization()
	require.False(t, ok)

	active, err := session.ActiveOrganization(ctx)
	require.NoError(t, err)
	require.Nil(t, active)

	orgs, err := session.Organizations(ctx)
	require.NoError(t, err)
	require.Empty(t, orgs)
}
