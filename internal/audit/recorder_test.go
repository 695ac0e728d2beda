package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/store/memory"
)

type failingAuditStore struct {
	store.AuditStore
}

func (failingAuditStore) Append(ctx context.Context, record *models.AuditRecord) error {
	return errors.New("audit table unavailable")
}

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	st := memory.NewAuditStore()
	rec := NewRecorder(st)

	actor := uuid.New()
	target := uuid.New()

	rec.Record(ctx, Entry{
		ActorID:  actor,
		Action:   ActionAccountDelete,
		TargetID: Target(target),
		Details:  map[string]any{"projects_deleted": int64(2)},
	})
	rec.Record(ctx, Entry{ActorID: actor, Action: ActionOrganizationCreate})

	records, err := rec.List(ctx, store.ListAuditOptions{TargetID: &target})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, ActionAccountDelete, records[0].Action)
	require.Equal(t, actor, records[0].ActorID)
	require.Equal(t, int64(2), records[0].Details["projects_deleted"])
	require.False(t, records[0].CreatedAt.IsZero())

	all, err := rec.List(ctx, store.ListAuditOptions{ActorID: &actor})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, ActionOrganizationCreate, all[0].Action, "newest first")
	require.NotNil(t, all[0].Details)
}

func TestRecorder_FailureIsNotFatal(t *testing.T) {
	rec := NewRecorder(failingAuditStore{})
	require.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{ActorID: uuid.New(), Action: ActionAccountDelete})
	})
}
