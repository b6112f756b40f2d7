// Package imagegen provides the AI image generation node. Generated images
// are stored as content-addressed assets; the asset reference is both the
// node's output and a run artifact.
package imagegen

import (
	"context"
	"path"

	"github.com/gridnote/studio/internal/aiclient"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx)
	modelID, err := ec.RequireString("modelId")
	if err != nil {
		return nil, err
	}
	prompt, err := ec.RequireString("prompt")
	if err != nil {
		return nil, err
	}

	resp, err := ec.Services.AI.GenerateImage(ctx, aiclient.ImageRequest{
		ModelID: modelID,
		Prompt:  prompt,
		Size:    ec.String("size", ""),
	})
	if err != nil {
		return nil, err
	}

	ref, err := ec.Services.Assets.Store(ctx, resp.Data, resp.MimeType)
	if err != nil {
		return nil, err
	}

	outputs := map[string]cty.Value{
		"image":       registry.AssetRefValue(ref),
		"previewPath": cty.StringVal(""),
	}

	// Preview staging is best-effort: a denial or write failure downgrades
	// to a warning and an empty previewPath instead of failing the node.
	if previewDir := ec.String("previewDir", ""); previewDir != "" {
		previewPath := path.Join(previewDir, ref.Hash[:12]+".png")
		if err := ec.Services.AssertFilesystemPath(ec.Services.ResolvePath(previewPath)); err != nil {
			logger.Warn("Could not stage image preview, continuing without it.", "path", previewPath, "error", err)
		} else if err := ec.Services.Vault.WriteFile(ctx, previewPath, resp.Data); err != nil {
			logger.Warn("Could not stage image preview, continuing without it.", "path", previewPath, "error", err)
		} else {
			outputs["previewPath"] = cty.StringVal(previewPath)
		}
	}

	return &registry.Result{
		Outputs:   outputs,
		Artifacts: []schema.AssetRef{ref},
	}, nil
}

// Register registers the image generation node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "image-generation",
		Version:     "1.0.0",
		Description: "Generates an image from a prompt and stores it as an asset.",
		Capability:  registry.CapabilityAPI,
		Cache:       registry.CacheByInputs,
		Inputs: []ports.Port{
			{ID: "prompt", Type: ports.TypeText, Required: true},
		},
		Outputs: []ports.Port{
			{ID: "image", Type: ports.TypeJSON},
			{ID: "previewPath", Type: ports.TypeText},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "modelId", Type: ports.TypeText, Required: true, Description: "Model identifier."},
			{Name: "size", Type: ports.TypeText, Description: "Requested image size, e.g. 1024x1024."},
			{Name: "prompt", Type: ports.TypeText, Description: "Default prompt when the port is unwired."},
			{Name: "previewDir", Type: ports.TypeText, Description: "Vault directory for best-effort preview copies."},
		},
		Execute: execute,
	})
}
