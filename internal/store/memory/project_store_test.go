package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

func TestMemoryProjectStore(t *testing.T) {
	ctx := context.Background()
	st := NewProjectStore()

	owner := uuid.New()
	org := uuid.New()

	personal := &models.Project{ProjectID: uuid.New(), OwnerID: owner, Name: "personal", CreatedAt: time.Now()}
	scoped := &models.Project{ProjectID: uuid.New(), OwnerID: owner, OrgID: &org, Name: "scoped", CreatedAt: time.Now().Add(time.Second)}
	require.NoError(t, st.Create(ctx, personal))
	require.NoError(t, st.Create(ctx, scoped))

	for _, p := range []*models.Project{personal, scoped} {
		require.NoError(t, st.AddContent(ctx, &models.ProjectContent{ContentID: uuid.New(), ProjectID: p.ProjectID, Name: "readme"}))
	}

	owned, err := st.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, owned, 2)

	inOrg, err := st.ListByOwnerInOrg(ctx, owner, org)
	require.NoError(t, err)
	require.Len(t, inOrg, 1)
	require.Equal(t, scoped.ProjectID, inOrg[0].ProjectID)

	n, err := st.DeleteContents(ctx, []uuid.UUID{scoped.ProjectID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = st.Delete(ctx, []uuid.UUID{scoped.ProjectID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	contents, err := st.ListContents(ctx, personal.ProjectID)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	byOrg, err := st.ListByOrg(ctx, org)
	require.NoError(t, err)
	require.Empty(t, byOrg)
}
