package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/registry"
)

func cacheTestDef(kind, version string) *registry.Definition {
	return &registry.Definition{
		Kind:       kind,
		Version:    version,
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheByInputs,
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			return &registry.Result{}, nil
		},
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	def := cacheTestDef("kind", "1.0.0")
	config := map[string]cty.Value{"a": cty.StringVal("x"), "b": cty.NumberIntVal(2)}
	inputs := map[string]cty.Value{"in": cty.StringVal("v")}

	base, err := cacheKey(def, config, inputs)
	require.NoError(t, err)
	require.NotEmpty(t, base)

	t.Run("stable across map construction order", func(t *testing.T) {
		t.Parallel()
		again, err := cacheKey(def, map[string]cty.Value{"b": cty.NumberIntVal(2), "a": cty.StringVal("x")}, inputs)
		require.NoError(t, err)
		assert.Equal(t, base, again)
	})

	t.Run("sensitive to config", func(t *testing.T) {
		t.Parallel()
		other, err := cacheKey(def, map[string]cty.Value{"a": cty.StringVal("y"), "b": cty.NumberIntVal(2)}, inputs)
		require.NoError(t, err)
		assert.NotEqual(t, base, other)
	})

	t.Run("sensitive to inputs", func(t *testing.T) {
		t.Parallel()
		other, err := cacheKey(def, config, map[string]cty.Value{"in": cty.StringVal("w")})
		require.NoError(t, err)
		assert.NotEqual(t, base, other)
	})

	t.Run("sensitive to kind and version", func(t *testing.T) {
		t.Parallel()
		other, err := cacheKey(cacheTestDef("kind", "2.0.0"), config, inputs)
		require.NoError(t, err)
		assert.NotEqual(t, base, other)
	})
}
