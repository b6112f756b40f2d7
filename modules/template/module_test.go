package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/registry"
)

func run(t *testing.T, config, inputs map[string]cty.Value) (*registry.Result, error) {
	t.Helper()
	return execute(context.Background(), &registry.ExecContext{
		Config: config,
		Inputs: inputs,
	})
}

func TestExecute_SubstitutesInput(t *testing.T) {
	t.Parallel()

	result, err := run(t,
		map[string]cty.Value{"template": cty.StringVal("hello {{input}}!")},
		map[string]cty.Value{"input": cty.StringVal("world")},
	)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("hello world!"), result.Outputs["text"])
}

func TestExecute_SubstitutesValuesObject(t *testing.T) {
	t.Parallel()

	result, err := run(t,
		map[string]cty.Value{"template": cty.StringVal("{{name}} is {{age}} and brave={{brave}}")},
		map[string]cty.Value{"values": cty.ObjectVal(map[string]cty.Value{
			"name":  cty.StringVal("Ada"),
			"age":   cty.NumberIntVal(36),
			"brave": cty.True,
		})},
	)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("Ada is 36 and brave=true"), result.Outputs["text"])
}

func TestExecute_StructuredValueRendersAsJSON(t *testing.T) {
	t.Parallel()

	result, err := run(t,
		map[string]cty.Value{"template": cty.StringVal("payload: {{data}}")},
		map[string]cty.Value{"values": cty.ObjectVal(map[string]cty.Value{
			"data": cty.ObjectVal(map[string]cty.Value{"k": cty.StringVal("v")}),
		})},
	)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal(`payload: {"k":"v"}`), result.Outputs["text"])
}

func TestExecute_EmptyStringInputStillSubstitutes(t *testing.T) {
	t.Parallel()

	result, err := run(t,
		map[string]cty.Value{"template": cty.StringVal("[{{input}}]")},
		map[string]cty.Value{"input": cty.StringVal("")},
	)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("[]"), result.Outputs["text"])
}

func TestExecute_UnwiredInputLeavesMarker(t *testing.T) {
	t.Parallel()

	result, err := run(t,
		map[string]cty.Value{"template": cty.StringVal("hello {{input}}")},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("hello {{input}}"), result.Outputs["text"])
}

func TestExecute_UnmatchedPlaceholderSurvives(t *testing.T) {
	t.Parallel()

	result, err := run(t,
		map[string]cty.Value{"template": cty.StringVal("keep {{unknown}}")},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("keep {{unknown}}"), result.Outputs["text"])
}

func TestExecute_MissingTemplateFails(t *testing.T) {
	t.Parallel()

	_, err := run(t, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template")
}
