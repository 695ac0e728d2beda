package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/audit"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/store/memory"
)

var errInjected = errors.New("connection reset by peer")

type fixture struct {
	t      *testing.T
	ctx    context.Context
	stores *store.Stores
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := memory.NewStores()
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		stores: stores,
		svc:    NewService(stores, audit.NewRecorder(stores.Audit)),
	}
}

func (f *fixture) as(accountID uuid.UUID) context.Context {
	return auth.WithCaller(f.ctx, accountID)
}

func (f *fixture) account(email string, role models.GlobalRole) uuid.UUID {
	f.t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	require.NoError(f.t, f.stores.Accounts.Create(f.ctx, &models.Account{
		AccountID: id,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(f.t, f.stores.Settings.Upsert(f.ctx, &models.AccountSettings{
		AccountID:   id,
		Preferences: map[string]string{"theme": "dark"},
		UpdatedAt:   now,
	}))
	return id
}

func (f *fixture) org(name string) uuid.UUID {
	f.t.Helper()
	id := uuid.New()
	require.NoError(f.t, f.stores.Organizations.Create(f.ctx, &models.Organization{
		OrgID: id,
		Name:  name,
		Slug:  name + "-" + id.String()[:8],
	}))
	require.NoError(f.t, f.stores.Instructions.UpsertForOrg(f.ctx, &models.InstructionSet{
		OrgID:     &id,
		Overrides: map[string]string{"tone": "formal"},
	}))
	return id
}

// created records accountID creating orgID, as the organization service does.
func (f *fixture) created(orgID, accountID uuid.UUID) {
	f.svc.audit.Record(f.ctx, audit.Entry{
		ActorID:  accountID,
		Action:   audit.ActionOrganizationCreate,
		TargetID: audit.Target(orgID),
		Details:  map[string]any{"name": "acme"},
	})
}

// added records actorID adding accountID to orgID, as the organization service does.
func (f *fixture) added(orgID, actorID, accountID uuid.UUID) {
	f.svc.audit.Record(f.ctx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionMembershipAdd,
		TargetID: audit.Target(accountID),
		Details:  map[string]any{"org_id": orgID.String(), "role": string(models.OrgRoleMember)},
	})
}

func (f *fixture) join(orgID, accountID uuid.UUID, role models.OrgRole) {
	f.t.Helper()
	require.NoError(f.t, f.stores.Memberships.Create(f.ctx, &models.Membership{
		OrgID:     orgID,
		AccountID: accountID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}))
}

func (f *fixture) activate(accountID, orgID uuid.UUID) {
	f.t.Helper()
	require.NoError(f.t, f.stores.Accounts.SetActiveOrg(f.ctx, accountID, &orgID))
}

// project creates a project with one content item. orgID may be nil for a personal project.
func (f *fixture) project(ownerID uuid.UUID, orgID *uuid.UUID) uuid.UUID {
	f.t.Helper()
	id := uuid.New()
	require.NoError(f.t, f.stores.Projects.Create(f.ctx, &models.Project{
		ProjectID: id,
		OwnerID:   ownerID,
		OrgID:     orgID,
		Name:      "project",
	}))
	require.NoError(f.t, f.stores.Projects.AddContent(f.ctx, &models.ProjectContent{
		ContentID: uuid.New(),
		ProjectID: id,
		Name:      "notes.md",
		Body:      "hello",
	}))
	return id
}

func (f *fixture) auditActions() []string {
	f.t.Helper()
	records, err := f.stores.Audit.List(f.ctx, store.ListAuditOptions{})
	require.NoError(f.t, err)
	actions := make([]string, 0, len(records))
	for _, r := range records {
		actions = append(actions, r.Action)
	}
	return actions
}

// requirePurged asserts that nothing owned by accountID remains.
func (f *fixture) requirePurged(accountID uuid.UUID) {
	f.t.Helper()

	_, err := f.stores.Accounts.Get(f.ctx, accountID)
	require.ErrorIs(f.t, err, store.ErrAccountNotFound)

	projects, err := f.stores.Projects.ListByOwner(f.ctx, accountID)
	require.NoError(f.t, err)
	require.Empty(f.t, projects)

	_, err = f.stores.Settings.Get(f.ctx, accountID)
	require.ErrorIs(f.t, err, store.ErrSettingsNotFound)

	memberships, err := f.stores.Memberships.ListByAccount(f.ctx, accountID)
	require.NoError(f.t, err)
	require.Empty(f.t, memberships)
}

// failingProjects fails DeleteContents while armed.
type failingProjects struct {
	store.ProjectStore
	fail bool
}

func (p *failingProjects) DeleteContents(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if p.fail {
		return 0, errInjected
	}
	return p.ProjectStore.DeleteContents(ctx, ids)
}

// failingAccounts fails Delete while fail is armed and both active organization clears while
// failClear is armed.
type failingAccounts struct {
	store.AccountStore
	fail      bool
	failClear bool
}

func (a *failingAccounts) Delete(ctx context.Context, id uuid.UUID) error {
	if a.fail {
		return errInjected
	}
	return a.AccountStore.Delete(ctx, id)
}

func (a *failingAccounts) ClearActiveOrg(ctx context.Context, accountID, orgID uuid.UUID) (bool, error) {
	if a.failClear {
		return false, errInjected
	}
	return a.AccountStore.ClearActiveOrg(ctx, accountID, orgID)
}

func (a *failingAccounts) ClearActiveOrgForOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	if a.failClear {
		return 0, errInjected
	}
	return a.AccountStore.ClearActiveOrgForOrg(ctx, orgID)
}

// failingOrganizations fails the failAt'th call to Delete, counting from one.
type failingOrganizations struct {
	store.OrganizationStore
	failAt int
	calls  int
}

func (o *failingOrganizations) Delete(ctx context.Context, orgID uuid.UUID) error {
	o.calls++
	if o.calls == o.failAt {
		return errInjected
	}
	return o.OrganizationStore.Delete(ctx, orgID)
}

type recordingInvalidator struct {
	orgIDs []uuid.UUID
}

func (r *recordingInvalidator) InvalidateOrganization(orgID uuid.UUID) {
	r.orgIDs = append(r.orgIDs, orgID)
}
