// Package notewrite provides the note output node: it writes incoming text
// to a vault path. The resolved path must be policy-granted.
package notewrite

import (
	"context"

	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	text, err := ec.RequireString("text")
	if err != nil {
		return nil, err
	}
	notePath, err := ec.RequireString("path")
	if err != nil {
		return nil, err
	}

	if err := ec.Services.AssertFilesystemPath(ec.Services.ResolvePath(notePath)); err != nil {
		return nil, err
	}
	if err := ec.Services.Vault.WriteFile(ctx, notePath, []byte(text)); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Wrote note.", "path", notePath, "bytes", len(text))

	return &registry.Result{
		Outputs: map[string]cty.Value{"path": cty.StringVal(notePath)},
	}, nil
}

// Register registers the note write node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "note-write",
		Version:     "1.0.0",
		Description: "Writes text into a vault note.",
		Capability:  registry.CapabilityLocalIO,
		Cache:       registry.CacheNever,
		Inputs: []ports.Port{
			{ID: "text", Type: ports.TypeText, Required: true},
		},
		Outputs: []ports.Port{
			{ID: "path", Type: ports.TypeText},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "path", Type: ports.TypeText, Required: true, Description: "Vault-relative note path."},
		},
		Execute: execute,
	})
}
