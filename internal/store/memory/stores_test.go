package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

func newTestOrganization(name, slug string) *models.Organization {
	now := time.Now()
	return &models.Organization{
		OrgID:     uuid.Must(uuid.NewV7()),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryOrganizationStore(t *testing.T) {
	ctx := context.Background()

	t.Run("slug is unique", func(t *testing.T) {
		st := NewOrganizationStore()
		require.NoError(t, st.Create(ctx, newTestOrganization("Acme", "acme-1")))

		err := st.Create(ctx, newTestOrganization("Acme", "acme-1"))
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)
	})

	t.Run("get by slug and list by ids", func(t *testing.T) {
		st := NewOrganizationStore()
		a := newTestOrganization("Acme", "acme-1")
		b := newTestOrganization("Globex", "globex-1")
		require.NoError(t, st.Create(ctx, a))
		require.NoError(t, st.Create(ctx, b))

		got, err := st.GetBySlug(ctx, "globex-1")
		require.NoError(t, err)
		require.Equal(t, b.OrgID, got.OrgID)

		list, err := st.ListByIDs(ctx, []uuid.UUID{a.OrgID, uuid.Must(uuid.NewV7())})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, a.OrgID, list[0].OrgID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		st := NewOrganizationStore()
		org := newTestOrganization("Acme", "acme-1")
		require.NoError(t, st.Create(ctx, org))

		require.NoError(t, st.Delete(ctx, org.OrgID))
		require.NoError(t, st.Delete(ctx, org.OrgID))

		_, err := st.Get(ctx, org.OrgID)
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})
}

func TestMemoryInstructionStore(t *testing.T) {
	ctx := context.Background()
	st := NewInstructionStore()

	_, err := st.GetGlobal(ctx)
	require.ErrorIs(t, err, store.ErrInstructionSetNotFound)

	global := &models.InstructionSet{Overrides: map[string]string{"tone": "formal"}, UpdatedAt: time.Now()}
	require.NoError(t, st.UpsertGlobal(ctx, global))

	// stored sets are copies
	global.Overrides["tone"] = "casual"
	got, err := st.GetGlobal(ctx)
	require.NoError(t, err)
	require.Equal(t, "formal", got.Overrides["tone"])
	require.True(t, got.IsGlobal())

	orgID := uuid.Must(uuid.NewV7())
	require.NoError(t, st.UpsertForOrg(ctx, &models.InstructionSet{OrgID: &orgID, Overrides: map[string]string{"tone": "terse"}}))

	got, err = st.GetForOrg(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, "terse", got.Overrides["tone"])

	deleted, err := st.DeleteForOrg(ctx, orgID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = st.DeleteForOrg(ctx, orgID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestMemorySettingsStore(t *testing.T) {
	ctx := context.Background()
	st := NewSettingsStore()
	accountID := uuid.Must(uuid.NewV7())

	_, err := st.Get(ctx, accountID)
	require.ErrorIs(t, err, store.ErrSettingsNotFound)

	require.NoError(t, st.Upsert(ctx, &models.AccountSettings{AccountID: accountID, Preferences: map[string]string{"theme": "dark"}}))

	got, err := st.Get(ctx, accountID)
	require.NoError(t, err)
	require.Equal(t, "dark", got.Preferences["theme"])

	deleted, err := st.Delete(ctx, accountID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = st.Delete(ctx, accountID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestMemoryAuditStore_List(t *testing.T) {
	ctx := context.Background()
	st := NewAuditStore()

	actor := uuid.Must(uuid.NewV7())
	other := uuid.Must(uuid.NewV7())
	target := uuid.Must(uuid.NewV7())
	base := time.Now().Add(-time.Hour)

	records := []*models.AuditRecord{
		{RecordID: uuid.Must(uuid.NewV7()), ActorID: actor, Action: "organization.create", CreatedAt: base},
		{RecordID: uuid.Must(uuid.NewV7()), ActorID: other, Action: "account.delete", TargetID: &target, CreatedAt: base.Add(time.Minute)},
		{RecordID: uuid.Must(uuid.NewV7()), ActorID: actor, Action: "account.delete", TargetID: &target, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		require.NoError(t, st.Append(ctx, r))
	}

	tests := []struct {
		name string
		opts store.ListAuditOptions
		want []uuid.UUID
	}{
		{"all newest first", store.ListAuditOptions{}, []uuid.UUID{records[2].RecordID, records[1].RecordID, records[0].RecordID}},
		{"by actor", store.ListAuditOptions{ActorID: &actor}, []uuid.UUID{records[2].RecordID, records[0].RecordID}},
		{"by target", store.ListAuditOptions{TargetID: &target}, []uuid.UUID{records[2].RecordID, records[1].RecordID}},
		{"by action", store.ListAuditOptions{Action: "organization.create"}, []uuid.UUID{records[0].RecordID}},
		{"since", store.ListAuditOptions{Since: base.Add(time.Minute)}, []uuid.UUID{records[2].RecordID, records[1].RecordID}},
		{"limit", store.ListAuditOptions{Limit: 1}, []uuid.UUID{records[2].RecordID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.List(ctx, tt.opts)
			require.NoError(t, err)

			ids := make([]uuid.UUID, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.RecordID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}
