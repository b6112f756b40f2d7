// Package template provides the text templating node: a configured template
// with {{placeholder}} markers filled from the node's inputs.
package template

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	tmpl, err := ec.RequireString("template")
	if err != nil {
		return nil, err
	}

	out := tmpl
	// Presence, not emptiness, decides substitution: a wired port carrying
	// "" still replaces the marker.
	if v, ok := ec.Inputs["input"]; ok && !v.IsNull() && v.Type() == cty.String {
		out = strings.ReplaceAll(out, "{{input}}", v.AsString())
	}
	if values, ok := ec.Inputs["values"]; ok && !values.IsNull() && values.Type().IsObjectType() {
		for it := values.ElementIterator(); it.Next(); {
			k, v := it.Element()
			out = strings.ReplaceAll(out, "{{"+k.AsString()+"}}", renderValue(v))
		}
	}

	return &registry.Result{
		Outputs: map[string]cty.Value{"text": cty.StringVal(out)},
	}, nil
}

func renderValue(v cty.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case cty.Bool:
		return fmt.Sprintf("%t", v.True())
	default:
		raw, err := ports.CanonicalJSON(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// Register registers the template node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "template",
		Version:     "1.0.0",
		Description: "Substitutes {{placeholders}} in a configured template.",
		Capability:  registry.CapabilityLocalCPU,
		Cache:       registry.CacheByInputs,
		Inputs: []ports.Port{
			{ID: "input", Type: ports.TypeText},
			{ID: "values", Type: ports.TypeJSON},
		},
		Outputs: []ports.Port{
			{ID: "text", Type: ports.TypeText},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "template", Type: ports.TypeText, Required: true, Description: "Template text with {{placeholder}} markers."},
		},
		Execute: execute,
	})
}
