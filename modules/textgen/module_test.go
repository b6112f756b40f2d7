package textgen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/aiclient"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/testutil"
)

func TestExecute_GeneratesText(t *testing.T) {
	t.Parallel()

	boundary := testutil.NewBoundary(t.TempDir(), nil)
	fake := boundary.AI.(*testutil.FakeAI)
	fake.TextResponse = aiclient.TextResponse{Text: "a haiku"}

	result, err := execute(context.Background(), &registry.ExecContext{
		Config: map[string]cty.Value{
			"modelId": cty.StringVal("gpt-test"),
			"system":  cty.StringVal("be brief"),
		},
		Inputs:   map[string]cty.Value{"prompt": cty.StringVal("write a haiku")},
		Services: boundary,
	})
	require.NoError(t, err)

	assert.Equal(t, cty.StringVal("a haiku"), result.Outputs["text"])
	require.Len(t, fake.TextCalls, 1)
	assert.Equal(t, "gpt-test", fake.TextCalls[0].ModelID)
	assert.Equal(t, "be brief", fake.TextCalls[0].System)
	assert.Equal(t, "write a haiku", fake.TextCalls[0].Prompt)
}

func TestExecute_MissingModelFails(t *testing.T) {
	t.Parallel()

	boundary := testutil.NewBoundary(t.TempDir(), nil)
	_, err := execute(context.Background(), &registry.ExecContext{
		Inputs:   map[string]cty.Value{"prompt": cty.StringVal("p")},
		Services: boundary,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modelId")
}

func TestExecute_PropagatesAPIError(t *testing.T) {
	t.Parallel()

	boundary := testutil.NewBoundary(t.TempDir(), nil)
	apiErr := errors.New("rate limited")
	boundary.AI.(*testutil.FakeAI).TextErr = apiErr

	_, err := execute(context.Background(), &registry.ExecContext{
		Config:   map[string]cty.Value{"modelId": cty.StringVal("m")},
		Inputs:   map[string]cty.Value{"prompt": cty.StringVal("p")},
		Services: boundary,
	})
	require.ErrorIs(t, err, apiErr)
}
