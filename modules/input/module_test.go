package input

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/registry"
)

func TestExecute_EmitsConfiguredValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		value cty.Value
	}{
		{name: "text", value: cty.StringVal("hello")},
		{name: "number", value: cty.NumberIntVal(42)},
		{name: "structured", value: cty.ObjectVal(map[string]cty.Value{"k": cty.True})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result, err := execute(context.Background(), &registry.ExecContext{
				Config: map[string]cty.Value{"value": tc.value},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.value, result.Outputs["value"])
		})
	}
}

func TestExecute_MissingValueEmitsNull(t *testing.T) {
	t.Parallel()

	result, err := execute(context.Background(), &registry.ExecContext{})
	require.NoError(t, err)
	assert.True(t, result.Outputs["value"].IsNull())
}
