// Package textgen provides the AI text generation node.
package textgen

import (
	"context"

	"github.com/gridnote/studio/internal/aiclient"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	modelID, err := ec.RequireString("modelId")
	if err != nil {
		return nil, err
	}
	prompt, err := ec.RequireString("prompt")
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Generating text.", "modelId", modelID)
	resp, err := ec.Services.AI.GenerateText(ctx, aiclient.TextRequest{
		ModelID: modelID,
		System:  ec.String("system", ""),
		Prompt:  prompt,
	})
	if err != nil {
		return nil, err
	}

	return &registry.Result{
		Outputs: map[string]cty.Value{"text": cty.StringVal(resp.Text)},
	}, nil
}

// Register registers the text generation node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "text-generation",
		Version:     "1.0.0",
		Description: "Generates text from a prompt with the configured model.",
		Capability:  registry.CapabilityAPI,
		Cache:       registry.CacheByInputs,
		Inputs: []ports.Port{
			{ID: "prompt", Type: ports.TypeText, Required: true},
		},
		Outputs: []ports.Port{
			{ID: "text", Type: ports.TypeText},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "modelId", Type: ports.TypeText, Required: true, Description: "Model identifier."},
			{Name: "system", Type: ports.TypeText, Description: "Optional system prompt."},
			{Name: "prompt", Type: ports.TypeText, Description: "Default prompt when the port is unwired."},
		},
		Execute: execute,
	})
}
