package registry

import (
	"context"
	"fmt"

	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// CapabilityClass coarsely classifies what a node's execution may touch.
type CapabilityClass string

const (
	// CapabilityLocalCPU marks pure in-memory computation.
	CapabilityLocalCPU CapabilityClass = "local_cpu"
	// CapabilityLocalIO marks local file or subprocess access.
	CapabilityLocalIO CapabilityClass = "local_io"
	// CapabilityAPI marks remote network access.
	CapabilityAPI CapabilityClass = "api"
)

// CachePolicy governs whether a prior result may replace re-execution.
type CachePolicy string

const (
	// CacheNever forces execution on every run. Used by nodes whose
	// freshness cannot be inferred from inputs alone.
	CacheNever CachePolicy = "never"
	// CacheByInputs memoizes on (kind, version, config, inputs).
	CacheByInputs CachePolicy = "by_inputs"
)

// ConfigField declares one entry of a node's config schema. The declaration
// drives validation; any UI generated from it is out of scope here.
type ConfigField struct {
	Name        string
	Type        ports.Type
	Required    bool
	Description string
}

// Result is what a node execution produces: one value per output port plus
// any stored binary artifacts.
type Result struct {
	Outputs   map[string]cty.Value
	Artifacts []schema.AssetRef
}

// ExecuteFunc is a node's behavior.
type ExecuteFunc func(ctx context.Context, ec *ExecContext) (*Result, error)

// Definition is an immutable registry entry describing one node kind.
type Definition struct {
	Kind                   string
	Version                string
	Description            string
	Capability             CapabilityClass
	Cache                  CachePolicy
	Inputs                 []ports.Port
	Outputs                []ports.Port
	ConfigFields           []ConfigField
	AllowUnknownConfigKeys bool
	Execute                ExecuteFunc
}

func (d *Definition) validate() error {
	if d.Kind == "" {
		return fmt.Errorf("kind must not be empty")
	}
	if d.Version == "" {
		return fmt.Errorf("version must not be empty")
	}
	switch d.Capability {
	case CapabilityLocalCPU, CapabilityLocalIO, CapabilityAPI:
	default:
		return fmt.Errorf("unknown capability class %q", d.Capability)
	}
	switch d.Cache {
	case CacheNever, CacheByInputs:
	default:
		return fmt.Errorf("unknown cache policy %q", d.Cache)
	}
	if d.Execute == nil {
		return fmt.Errorf("execute function must not be nil")
	}
	if err := validatePorts("input", d.Inputs); err != nil {
		return err
	}
	if err := validatePorts("output", d.Outputs); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(d.ConfigFields))
	for _, f := range d.ConfigFields {
		if f.Name == "" {
			return fmt.Errorf("config field with empty name")
		}
		if !f.Type.Valid() {
			return fmt.Errorf("config field %q has unknown type %q", f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate config field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func validatePorts(role string, list []ports.Port) error {
	seen := make(map[string]struct{}, len(list))
	for _, p := range list {
		if p.ID == "" {
			return fmt.Errorf("%s port with empty id", role)
		}
		if !p.Type.Valid() {
			return fmt.Errorf("%s port %q has unknown type %q", role, p.ID, p.Type)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate %s port %q", role, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// CheckConfig validates a node instance's config map against the declared
// fields. Unknown keys are tolerated when the definition opts in, to keep
// old engines readable by newer documents.
func (d *Definition) CheckConfig(config map[string]any) error {
	for _, field := range d.ConfigFields {
		raw, present := config[field.Name]
		if !present || raw == nil {
			if field.Required {
				return fmt.Errorf("missing required config key %q", field.Name)
			}
			continue
		}
		val, err := ports.FromGo(raw)
		if err != nil {
			return fmt.Errorf("config key %q: %w", field.Name, err)
		}
		if err := ports.CheckValue(field.Type, val); err != nil {
			return fmt.Errorf("config key %q: %w", field.Name, err)
		}
	}
	if !d.AllowUnknownConfigKeys {
		declared := make(map[string]struct{}, len(d.ConfigFields))
		for _, f := range d.ConfigFields {
			declared[f.Name] = struct{}{}
		}
		for key := range config {
			if _, ok := declared[key]; !ok {
				return fmt.Errorf("unknown config key %q", key)
			}
		}
	}
	return nil
}
