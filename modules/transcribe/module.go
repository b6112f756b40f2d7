// Package transcribe provides the audio transcription node. The audio comes
// either from an upstream asset reference or from a vault file named in
// config.
package transcribe

import (
	"context"
	"path"

	"github.com/gridnote/studio/internal/aiclient"
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

	var audio []byte
	var fileName string
	if v, ok := ec.Inputs["audio"]; ok && !v.IsNull() {
		ref, err := ec.AssetRef("audio")
		if err != nil {
			return nil, err
		}
		audio, err = ec.Services.Assets.Read(ctx, ref)
		if err != nil {
			return nil, err
		}
		fileName = "audio" + extensionOf(ref.Path)
	} else {
		rel, err := ec.RequireString("path")
		if err != nil {
			return nil, err
		}
		if err := ec.Services.AssertFilesystemPath(ec.Services.ResolvePath(rel)); err != nil {
			return nil, err
		}
		audio, err = ec.Services.Vault.ReadFile(ctx, rel)
		if err != nil {
			return nil, err
		}
		fileName = path.Base(rel)
	}

	resp, err := ec.Services.AI.TranscribeAudio(ctx, aiclient.TranscribeRequest{
		ModelID:  modelID,
		Audio:    audio,
		FileName: fileName,
		Language: ec.String("language", ""),
	})
	if err != nil {
		return nil, err
	}

	return &registry.Result{
		Outputs: map[string]cty.Value{"text": cty.StringVal(resp.Text)},
	}, nil
}

func extensionOf(p string) string {
	for i := len(p) - 1; i >= 0 && p[i] != '/'; i-- {
		if p[i] == '.' {
			return p[i:]
		}
	}
	return ".wav"
}

// Register registers the transcription node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "transcription",
		Version:     "1.0.0",
		Description: "Transcribes an audio asset or vault file with the configured model.",
		Capability:  registry.CapabilityAPI,
		Cache:       registry.CacheByInputs,
		Inputs: []ports.Port{
			{ID: "audio", Type: ports.TypeJSON},
		},
		Outputs: []ports.Port{
			{ID: "text", Type: ports.TypeText},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "modelId", Type: ports.TypeText, Required: true, Description: "Transcription model identifier."},
			{Name: "path", Type: ports.TypeText, Description: "Vault-relative audio file, used when the audio port is unwired."},
			{Name: "language", Type: ports.TypeText, Description: "Optional language hint."},
		},
		Execute: execute,
	})
}
