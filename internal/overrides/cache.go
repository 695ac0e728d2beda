// Package overrides caches instruction overrides and resolves the effective value for a key.
//
// There are two layers. The global layer is authored by superadmins and refreshed after a fixed
// TTL. The organization layer belongs to the caller's active organization; it has no TTL and is
// dropped on save, reset and whenever the active organization changes.
package overrides

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/store"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

// DefaultGlobalTTL is how long a loaded global layer is considered fresh.
const DefaultGlobalTTL = 5 * time.Minute

const (
	layerGlobal       = "global"
	layerOrganization = "organization"
)

// errBindingChanged is returned when the organization cache was retargeted during every load attempt.
var errBindingChanged = errors.New("active organization changed while loading overrides")

// GlobalCache holds the global override layer.
type GlobalCache struct {
	store store.InstructionStore
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.RWMutex
	values   map[string]string // nil when no global set exists
	loaded   bool
	loadedAt time.Time
	gen      uint64
}

// GlobalOption configures a GlobalCache.
type GlobalOption func(*GlobalCache)

// WithTTL overrides DefaultGlobalTTL.
func WithTTL(ttl time.Duration) GlobalOption {
	return func(c *GlobalCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source used for TTL checks.
func WithClock(now func() time.Time) GlobalOption {
	return func(c *GlobalCache) {
		c.now = now
	}
}

// NewGlobalCache creates an empty global cache over st.
func NewGlobalCache(st store.InstructionStore, opts ...GlobalOption) *GlobalCache {
	c := &GlobalCache{
		store: st,
		ttl:   DefaultGlobalTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns whatever is cached without loading. fresh is false once the TTL has elapsed.
func (c *GlobalCache) Peek() (values map[string]string, loaded, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded {
		return nil, false, false
	}
	return c.values, true, c.now().Sub(c.loadedAt) < c.ttl
}

// Get returns the global layer, loading it when missing or expired.
// Concurrent callers share a single load.
func (c *GlobalCache) Get(ctx context.Context) (map[string]string, error) {
	if values, loaded, fresh := c.Peek(); loaded && fresh {
		return values, nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	v, err := share(ctx, &c.group, fmt.Sprintf("global/%d", gen), func(ctx context.Context) (any, error) {
		values, err := loadGlobal(ctx, c.store)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.values = values
			c.loaded = true
			c.loadedAt = c.now()
		}
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// share runs load once for all concurrent callers of key. The load runs detached from the caller's
// cancellation, so a caller that gives up only stops waiting and returns its context error.
func share(ctx context.Context, group *singleflight.Group, key string, load func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return load(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached layer so the next Get reloads it.
func (c *GlobalCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = nil
	c.loaded = false
	c.gen++

	telemetry.RecordLayer(context.Background(), telemetry.GetMetrics().OverrideInvalidations, layerGlobal)
}

func loadGlobal(ctx context.Context, st store.InstructionStore) (map[string]string, error) {
	m := telemetry.GetMetrics()
	telemetry.RecordLayer(ctx, m.OverrideLoadsTotal, layerGlobal)

	set, err := st.GetGlobal(ctx)
	if err != nil {
		if errors.Is(err, store.ErrInstructionSetNotFound) {
			return nil, nil
		}
		telemetry.RecordLayer(ctx, m.OverrideLoadErrorsTotal, layerGlobal)
		return nil, fmt.Errorf("failed to load global overrides: %w", err)
	}

	log.Debug().Int("keys", len(set.Overrides)).Msg("Loaded global overrides")
	return set.Overrides, nil
}

// OrgCache holds the override layer of one organization, the one the caller has active.
type OrgCache struct {
	store store.InstructionStore
	group singleflight.Group

	mu     sync.RWMutex
	orgID  *uuid.UUID
	values map[string]string
	loaded bool
	gen    uint64
}

// NewOrgCache creates an org cache that is not bound to any organization.
func NewOrgCache(st store.InstructionStore) *OrgCache {
	return &OrgCache{store: st}
}

// SetOrganization binds the cache to orgID (nil for none) and drops any cached values.
// Loads started for the previous binding are discarded when they complete.
func (c *OrgCache) SetOrganization(orgID *uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if orgID != nil {
		id := *orgID
		orgID = &id
	}
	c.orgID = orgID
	c.values = nil
	c.loaded = false
	c.gen++
}

// Organization returns the organization the cache is bound to.
func (c *OrgCache) Organization() (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.orgID == nil {
		return uuid.Nil, false
	}
	return *c.orgID, true
}

// Peek returns the cached layer without loading. bound is false when there is no active organization.
func (c *OrgCache) Peek() (values map[string]string, bound, loaded bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.values, c.orgID != nil, c.loaded
}

// Get returns the layer of the bound organization, loading it if needed.
// It returns nil values when the cache is not bound.
func (c *OrgCache) Get(ctx context.Context) (map[string]string, error) {
	for range 3 {
		c.mu.RLock()
		orgID, values, loaded, gen := c.orgID, c.values, c.loaded, c.gen
		c.mu.RUnlock()

		if orgID == nil {
			return nil, nil
		}
		if loaded {
			return values, nil
		}

		id := *orgID
		v, err := share(ctx, &c.group, fmt.Sprintf("%s/%d", id, gen), func(ctx context.Context) (any, error) {
			values, err := loadOrganization(ctx, c.store, id)
			if err != nil {
				return nil, err
			}

			c.mu.Lock()
			defer c.mu.Unlock()
			if c.gen != gen {
				log.Debug().Str("org_id", id.String()).Msg("Discarding overrides loaded for a previous organization")
				return nil, errBindingChanged
			}
			c.values = values
			c.loaded = true
			return values, nil
		})
		if errors.Is(err, errBindingChanged) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return v.(map[string]string), nil
	}

	return nil, errBindingChanged
}

// Invalidate drops the cached values but keeps the binding.
func (c *OrgCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = nil
	c.loaded = false
	c.gen++

	telemetry.RecordLayer(context.Background(), telemetry.GetMetrics().OverrideInvalidations, layerOrganization)
}

// InvalidateOrganization unbinds the cache if it is bound to orgID. It is called once an
// organization has been deleted.
func (c *OrgCache) InvalidateOrganization(orgID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.orgID == nil || *c.orgID != orgID {
		return
	}
	c.orgID = nil
	c.values = nil
	c.loaded = false
	c.gen++
}

func loadOrganization(ctx context.Context, st store.InstructionStore, orgID uuid.UUID) (map[string]string, error) {
	m := telemetry.GetMetrics()
	telemetry.RecordLayer(ctx, m.OverrideLoadsTotal, layerOrganization)

	set, err := st.GetForOrg(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrInstructionSetNotFound) {
			return nil, nil
		}
		telemetry.RecordLayer(ctx, m.OverrideLoadErrorsTotal, layerOrganization)
		return nil, fmt.Errorf("failed to load overrides for organization %s: %w", orgID, err)
	}

	log.Debug().Str("org_id", orgID.String()).Int("keys", len(set.Overrides)).Msg("Loaded organization overrides")
	return set.Overrides, nil
}
