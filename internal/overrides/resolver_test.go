package overrides

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEffective(t *testing.T) {
	tests := []struct {
		name   string
		org    map[string]string
		global map[string]string
		value  string
		source Source
	}{
		{name: "organization wins", org: map[string]string{"x": "O"}, global: map[string]string{"x": "G"}, value: "O", source: SourceOrganization},
		{name: "empty organization map falls through", org: map[string]string{}, global: map[string]string{"x": "G"}, value: "G", source: SourceGlobal},
		{name: "blank organization value falls through", org: map[string]string{"x": ""}, global: map[string]string{"x": "G"}, value: "G", source: SourceGlobal},
		{name: "both absent", source: SourceNone},
		{name: "blank global value", global: map[string]string{"x": ""}, source: SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Effective(tt.org, tt.global, "x")
			require.Equal(t, tt.value, res.Value)
			require.Equal(t, tt.source, res.Source)
		})
	}
}

func TestResolverSyncNeverLoads(t *testing.T) {
	ctx := context.Background()
	org := uuid.New()
	st := seed(t, map[string]string{"x": "G", "y": "GY"}, map[uuid.UUID]map[string]string{
		org: {"x": "O"},
	})
	r := NewResolver(NewGlobalCache(st), NewOrgCache(st))

	require.Equal(t, SourceNotLoaded, r.Resolve("x").Source)
	require.Zero(t, st.globalLoads.Load())

	res, err := r.ResolveContext(ctx, "y")
	require.NoError(t, err)
	require.Equal(t, "GY", res.Value)

	r.Organization().SetOrganization(&org)
	require.Equal(t, SourceNotLoaded, r.Resolve("y").Source, "active organization layer not loaded yet")

	res, err = r.ResolveContext(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, Resolution{Key: "x", Value: "O", Source: SourceOrganization}, res)

	require.Equal(t, "O", r.Resolve("x").Value)
	require.Equal(t, "GY", r.Resolve("y").Value)
	require.Equal(t, SourceNone, r.Resolve("z").Source)
}

func TestResolverSwitchingOrganizationHidesPreviousLayer(t *testing.T) {
	ctx := context.Background()
	o1, o2 := uuid.New(), uuid.New()
	st := seed(t, map[string]string{"x": "G"}, map[uuid.UUID]map[string]string{
		o1: {"x": "O1"},
		o2: {"x": "O2"},
	})
	r := NewResolver(NewGlobalCache(st), NewOrgCache(st))

	r.Organization().SetOrganization(&o1)
	_, err := r.ResolveContext(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "O1", r.Resolve("x").Value)

	r.Organization().SetOrganization(&o2)
	res := r.Resolve("x")
	require.Equal(t, SourceNotLoaded, res.Source)
	require.Empty(t, res.Value)

	res, err = r.ResolveContext(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "O2", res.Value)
}

func TestResolverMerge(t *testing.T) {
	org := uuid.New()
	st := seed(t, map[string]string{"greeting": "G-hello", "extra": "G-extra"}, map[uuid.UUID]map[string]string{
		org: {"greeting": "O-hello", "blank": ""},
	})
	r := NewResolver(NewGlobalCache(st), NewOrgCache(st))
	r.Organization().SetOrganization(&org)

	merged, err := r.Merge(context.Background(), map[string]string{
		"greeting": "default hello",
		"blank":    "default blank",
		"farewell": "default bye",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"greeting": "O-hello",
		"blank":    "default blank",
		"farewell": "default bye",
		"extra":    "G-extra",
	}, merged)
}
