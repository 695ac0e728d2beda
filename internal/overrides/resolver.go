package overrides

import (
	"context"
	"sort"

	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// Source says which layer supplied a resolved value.
type Source int

const (
	// SourceNone means neither layer overrides the key; the caller uses its built-in default.
	SourceNone Source = iota
	SourceOrganization
	SourceGlobal
	// SourceNotLoaded is only returned by Resolve when a layer it needs has not been loaded yet.
	SourceNotLoaded
)

func (s Source) String() string {
	switch s {
	case SourceOrganization:
		return "organization"
	case SourceGlobal:
		return "global"
	case SourceNotLoaded:
		return "not_loaded"
	default:
		return "none"
	}
}

// Resolution is the outcome of resolving one key.
type Resolution struct {
	Key    string
	Value  string
	Source Source
}

// Overridden reports whether a layer supplied a value.
func (r Resolution) Overridden() bool {
	return r.Source == SourceOrganization || r.Source == SourceGlobal
}

// Resolver merges the organization and global layers.
type Resolver struct {
	global *GlobalCache
	org    *OrgCache
}

// NewResolver creates a resolver over the two caches. Both are shared by reference.
func NewResolver(global *GlobalCache, org *OrgCache) *Resolver {
	return &Resolver{global: global, org: org}
}

// Global returns the global layer cache.
func (r *Resolver) Global() *GlobalCache {
	return r.global
}

// Organization returns the organization layer cache.
func (r *Resolver) Organization() *OrgCache {
	return r.org
}

// Resolve returns the effective override for key from cached data only; it never loads.
// An expired global layer is still used. SourceNotLoaded is returned when the active
// organization's layer, or a global layer that would be consulted, has not been loaded.
func (r *Resolver) Resolve(key string) Resolution {
	orgValues, bound, orgLoaded := r.org.Peek()
	if bound && !orgLoaded {
		return r.count(Resolution{Key: key, Source: SourceNotLoaded})
	}
	if v := orgValues[key]; v != "" {
		return r.count(Resolution{Key: key, Value: v, Source: SourceOrganization})
	}

	globalValues, loaded, _ := r.global.Peek()
	if !loaded {
		return r.count(Resolution{Key: key, Source: SourceNotLoaded})
	}
	return r.count(Effective(nil, globalValues, key))
}

// ResolveContext loads whichever layers are missing or expired and then resolves key.
func (r *Resolver) ResolveContext(ctx context.Context, key string) (Resolution, error) {
	orgValues, globalValues, err := r.layers(ctx)
	if err != nil {
		return Resolution{Key: key}, err
	}
	return r.count(Effective(orgValues, globalValues, key)), nil
}

// Merge returns the effective value of every key in defaults or either layer. Keys without an
// override keep their default; keys only present in a layer are included as well.
func (r *Resolver) Merge(ctx context.Context, defaults map[string]string) (map[string]string, error) {
	orgValues, globalValues, err := r.layers(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for _, key := range Keys(globalValues, orgValues) {
		if res := Effective(orgValues, globalValues, key); res.Overridden() {
			out[key] = res.Value
		}
	}
	return out, nil
}

func (r *Resolver) layers(ctx context.Context) (org, global map[string]string, err error) {
	if org, err = r.org.Get(ctx); err != nil {
		return nil, nil, err
	}
	if global, err = r.global.Get(ctx); err != nil {
		return nil, nil, err
	}
	return org, global, nil
}

func (r *Resolver) count(res Resolution) Resolution {
	m := telemetry.GetMetrics()
	telemetry.RecordLayer(context.Background(), m.OverrideResolutionsTotal, res.Source.String())
	return res
}

// Effective applies the merge order to two layers: a non-empty organization value wins, then a
// non-empty global value, otherwise there is no override. Either layer may be nil.
func Effective(org, global map[string]string, key string) Resolution {
	if v := org[key]; v != "" {
		return Resolution{Key: key, Value: v, Source: SourceOrganization}
	}
	if v := global[key]; v != "" {
		return Resolution{Key: key, Value: v, Source: SourceGlobal}
	}
	return Resolution{Key: key, Source: SourceNone}
}

// Keys returns the sorted union of the keys of the given layers.
func Keys(layers ...map[string]string) []string {
	seen := map[string]struct{}{}
	for _, layer := range layers {
		for k := range layer {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
