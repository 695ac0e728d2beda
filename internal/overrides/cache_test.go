package overrides

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/store/memory"
)

// countingStore counts loads and can hold GetForOrg until released.
type countingStore struct {
	store.InstructionStore
	globalLoads atomic.Int32
	orgLoads    atomic.Int32

	mu      sync.Mutex
	hold    chan struct{}
	entered chan struct{}

	// heldCtxErr is the load context's error observed after a held load is released.
	heldCtxErr error
}

func (s *countingStore) GetGlobal(ctx context.Context) (*models.InstructionSet, error) {
	s.globalLoads.Add(1)
	return s.InstructionStore.GetGlobal(ctx)
}

func (s *countingStore) GetForOrg(ctx context.Context, orgID uuid.UUID) (*models.InstructionSet, error) {
	s.orgLoads.Add(1)

	s.mu.Lock()
	hold, entered := s.hold, s.entered
	s.hold, s.entered = nil, nil
	s.mu.Unlock()

	if hold != nil {
		close(entered)
		<-hold

		s.mu.Lock()
		s.heldCtxErr = ctx.Err()
		s.mu.Unlock()
	}
	return s.InstructionStore.GetForOrg(ctx, orgID)
}

func (s *countingStore) holdNextOrgLoad() (entered, release chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
	s.entered = make(chan struct{})
	return s.entered, s.hold
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seed(t *testing.T, global map[string]string, orgs map[uuid.UUID]map[string]string) *countingStore {
	t.Helper()
	ctx := context.Background()
	st := &countingStore{InstructionStore: memory.NewInstructionStore()}
	if global != nil {
		require.NoError(t, st.UpsertGlobal(ctx, &models.InstructionSet{Overrides: global}))
	}
	for id, values := range orgs {
		orgID := id
		require.NoError(t, st.UpsertForOrg(ctx, &models.InstructionSet{OrgID: &orgID, Overrides: values}))
	}
	return st
}

func TestGlobalCacheTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	st := seed(t, map[string]string{"x": "G"}, nil)
	cache := NewGlobalCache(st, WithClock(clock.Now))

	_, loaded, _ := cache.Peek()
	require.False(t, loaded)

	values, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "G", values["x"])
	require.Equal(t, int32(1), st.globalLoads.Load())

	clock.Advance(4 * time.Minute)
	_, err = cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), st.globalLoads.Load(), "fresh layer is served from cache")

	clock.Advance(2 * time.Minute)
	values, loaded, fresh := cache.Peek()
	require.True(t, loaded)
	require.False(t, fresh)
	require.Equal(t, "G", values["x"])

	_, err = cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), st.globalLoads.Load(), "expired layer is reloaded")

	cache.Invalidate()
	_, loaded, _ = cache.Peek()
	require.False(t, loaded)
}

func TestGlobalCacheMissingSet(t *testing.T) {
	cache := NewGlobalCache(seed(t, nil, nil))

	values, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, values)

	_, loaded, fresh := cache.Peek()
	require.True(t, loaded)
	require.True(t, fresh)
}

func TestOrgCacheBinding(t *testing.T) {
	ctx := context.Background()
	o1, o2 := uuid.New(), uuid.New()
	st := seed(t, nil, map[uuid.UUID]map[string]string{
		o1: {"x": "one"},
		o2: {"x": "two"},
	})
	cache := NewOrgCache(st)

	values, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, values, "unbound cache has no layer")

	cache.SetOrganization(&o1)
	values, err = cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", values["x"])

	cache.SetOrganization(&o2)
	_, bound, loaded := cache.Peek()
	require.True(t, bound)
	require.False(t, loaded)

	values, err = cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "two", values["x"])

	cache.InvalidateOrganization(o1)
	bound2, ok := cache.Organization()
	require.True(t, ok, "other organizations do not unbind")
	require.Equal(t, o2, bound2)

	cache.InvalidateOrganization(o2)
	_, ok = cache.Organization()
	require.False(t, ok)
}

func TestOrgCacheDiscardsLoadForPreviousOrganization(t *testing.T) {
	ctx := context.Background()
	o1, o2 := uuid.New(), uuid.New()
	st := seed(t, nil, map[uuid.UUID]map[string]string{
		o1: {"x": "one"},
		o2: {"x": "two"},
	})
	cache := NewOrgCache(st)
	cache.SetOrganization(&o1)

	entered, release := st.holdNextOrgLoad()

	type result struct {
		values map[string]string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		values, err := cache.Get(ctx)
		done <- result{values, err}
	}()

	<-entered
	cache.SetOrganization(&o2)
	close(release)

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, "two", res.values["x"], "the load for o1 must not be served after switching to o2")

	values, _, loaded := cache.Peek()
	require.True(t, loaded)
	require.Equal(t, "two", values["x"])
}

func TestOrgCacheLoadSurvivesCallerCancellation(t *testing.T) {
	orgID := uuid.New()
	st := seed(t, nil, map[uuid.UUID]map[string]string{orgID: {"x": "O"}})
	c := NewOrgCache(st)
	c.SetOrganization(&orgID)

	entered, release := st.holdNextOrgLoad()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx)
		done <- err
	}()

	<-entered
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)

	// the shared load finishes on its own and fills the cache for everyone else
	require.Eventually(t, func() bool {
		_, _, loaded := c.Peek()
		return loaded
	}, time.Second, 5*time.Millisecond)

	st.mu.Lock()
	require.NoError(t, st.heldCtxErr)
	st.mu.Unlock()

	values, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "O", values["x"])
	require.Equal(t, int32(1), st.orgLoads.Load())
}
