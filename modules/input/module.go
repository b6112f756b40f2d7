// Package input provides the literal value source node. It has no inputs;
// whatever is configured under "value" flows out unchanged.
package input

import (
	"context"

	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	value, ok := ec.Config["value"]
	if !ok {
		value = cty.NullVal(cty.DynamicPseudoType)
	}
	return &registry.Result{
		Outputs: map[string]cty.Value{"value": value},
	}, nil
}

// Register registers the input node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "input",
		Version:     "1.0.0",
		Description: "Emits a configured literal value.",
		Capability:  registry.CapabilityLocalCPU,
		Cache:       registry.CacheByInputs,
		Outputs: []ports.Port{
			{ID: "value", Type: ports.TypeAny},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "value", Type: ports.TypeAny, Required: true, Description: "The literal value to emit."},
		},
		Execute: execute,
	})
}
