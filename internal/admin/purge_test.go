package admin

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

func TestPurgeAccount(t *testing.T) {
	f := newFixture(t)

	alice := f.account("alice@example.com", models.GlobalRoleUser)
	bob := f.account("bob@example.com", models.GlobalRoleUser)
	orgA, orgB := f.org("acme"), f.org("globex")
	f.join(orgA, alice, models.OrgRoleMember)
	f.join(orgB, alice, models.OrgRoleAdmin)
	f.join(orgA, bob, models.OrgRoleOwner)
	f.project(alice, nil)
	f.project(alice, &orgA)
	bobs := f.project(bob, &orgA)

	report, err := NewPurger(f.stores).PurgeAccount(f.ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(2), report.ProjectsDeleted)
	require.Equal(t, int64(2), report.ContentsDeleted)
	require.True(t, report.SettingsDeleted)
	require.Equal(t, int64(2), report.MembershipsDeleted)
	require.True(t, report.AccountDeleted)
	require.ElementsMatch(t, []uuid.UUID{orgA, orgB}, report.OrgIDs)

	f.requirePurged(alice)

	// other accounts are untouched
	contents, err := f.stores.Projects.ListContents(f.ctx, bobs)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	_, err = f.stores.Memberships.Get(f.ctx, orgA, bob)
	require.NoError(t, err)
}

func TestPurgeAccountIsIdempotent(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice@example.com", models.GlobalRoleUser)

	purger := NewPurger(f.stores)
	_, err := purger.PurgeAccount(f.ctx, alice)
	require.NoError(t, err)

	report, err := purger.PurgeAccount(f.ctx, alice)
	require.NoError(t, err)
	require.Zero(t, report.ProjectsDeleted)
	require.False(t, report.SettingsDeleted)
	require.Zero(t, report.MembershipsDeleted)
}

func TestPurgeAccountPartialFailure(t *testing.T) {
	tests := []struct {
		name          string
		failContents  bool
		failAccount   bool
		expectedStep  PurgeStep
		projectsLeft  int
		membershipsOK bool
	}{
		{
			name:         "contents delete fails first",
			failContents: true,
			expectedStep: StepProjectContents,
			projectsLeft: 1,
		},
		{
			name:          "account delete fails last",
			failAccount:   true,
			expectedStep:  StepAccount,
			projectsLeft:  0,
			membershipsOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			projects := &failingProjects{ProjectStore: f.stores.Projects, fail: tt.failContents}
			accounts := &failingAccounts{AccountStore: f.stores.Accounts, fail: tt.failAccount}
			f.stores.Projects = projects
			f.stores.Accounts = accounts

			alice := f.account("alice@example.com", models.GlobalRoleUser)
			orgA := f.org("acme")
			f.join(orgA, alice, models.OrgRoleMember)
			f.project(alice, nil)

			purger := NewPurger(f.stores)
			_, err := purger.PurgeAccount(f.ctx, alice)
			require.Error(t, err)
			require.True(t, apperr.IsKind(err, apperr.StorageFailure))
			require.Contains(t, err.Error(), errInjected.Error())

			var pe *PurgeError
			require.True(t, errors.As(err, &pe))
			require.Equal(t, tt.expectedStep, pe.Step)
			require.ErrorIs(t, err, errInjected)

			left, err := f.stores.Projects.ListByOwner(f.ctx, alice)
			require.NoError(t, err)
			require.Len(t, left, tt.projectsLeft)

			held, err := f.stores.Memberships.ListByAccount(f.ctx, alice)
			require.NoError(t, err)
			if tt.membershipsOK {
				require.Empty(t, held)
			} else {
				require.Len(t, held, 1)
			}

			// re-running the whole purge finishes the job
			projects.fail = false
			accounts.fail = false
			_, err = purger.PurgeAccount(f.ctx, alice)
			require.NoError(t, err)
			f.requirePurged(alice)
		})
	}
}

func TestPurgeAccountMissingAccount(t *testing.T) {
	f := newFixture(t)
	ghost := f.account("ghost@example.com", models.GlobalRoleUser)
	require.NoError(t, f.stores.Accounts.Delete(f.ctx, ghost))

	_, err := NewPurger(f.stores).PurgeAccount(f.ctx, ghost)
	require.NoError(t, err)

	_, err = f.stores.Settings.Get(f.ctx, ghost)
	require.ErrorIs(t, err, store.ErrSettingsNotFound)
}
