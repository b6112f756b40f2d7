package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFromGo(t *testing.T) {
	t.Parallel()

	t.Run("primitives", func(t *testing.T) {
		t.Parallel()

		v, err := FromGo("hello")
		require.NoError(t, err)
		assert.Equal(t, cty.StringVal("hello"), v)

		v, err = FromGo(float64(2.5))
		require.NoError(t, err)
		assert.Equal(t, cty.NumberFloatVal(2.5), v)

		v, err = FromGo(true)
		require.NoError(t, err)
		assert.Equal(t, cty.True, v)

		v, err = FromGo(nil)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})

	t.Run("nested structures", func(t *testing.T) {
		t.Parallel()

		v, err := FromGo(map[string]any{
			"name":  "studio",
			"tags":  []any{"a", "b"},
			"count": float64(2),
		})
		require.NoError(t, err)
		require.True(t, v.Type().IsObjectType())
		assert.Equal(t, cty.StringVal("studio"), v.GetAttr("name"))
		assert.Equal(t, cty.StringVal("b"), v.GetAttr("tags").Index(cty.NumberIntVal(1)))
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()

		_, err := FromGo(struct{}{})
		require.Error(t, err)
	})
}

func TestToGoRoundTrip(t *testing.T) {
	t.Parallel()

	original := map[string]any{
		"text":   "value",
		"number": 1.5,
		"flag":   true,
		"list":   []any{"x", 2.0},
	}
	v, err := FromGo(original)
	require.NoError(t, err)

	back, err := ToGo(v)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestCanonicalMapJSON_IsDeterministic(t *testing.T) {
	t.Parallel()

	// Two maps built in different insertion orders must encode identically.
	a := map[string]cty.Value{
		"alpha": cty.StringVal("1"),
		"beta":  cty.NumberIntVal(2),
		"gamma": cty.ObjectVal(map[string]cty.Value{"k": cty.True}),
	}
	b := map[string]cty.Value{
		"gamma": cty.ObjectVal(map[string]cty.Value{"k": cty.True}),
		"beta":  cty.NumberIntVal(2),
		"alpha": cty.StringVal("1"),
	}

	aJSON, err := CanonicalMapJSON(a)
	require.NoError(t, err)
	bJSON, err := CanonicalMapJSON(b)
	require.NoError(t, err)

	assert.Equal(t, string(aJSON), string(bJSON))
	assert.Equal(t, `{"alpha":"1","beta":2,"gamma":{"k":true}}`, string(aJSON))
}
