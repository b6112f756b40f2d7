// Package ports defines the small set of data types that flow between
// workflow nodes and the compatibility rule the compiler enforces on edges.
package ports

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Type identifies the wire type of a port.
type Type string

const (
	// TypeText is a plain UTF-8 string.
	TypeText Type = "text"
	// TypeJSON is an arbitrary structured value (object or array).
	TypeJSON Type = "json"
	// TypeNumber is a numeric value.
	TypeNumber Type = "number"
	// TypeBool is a boolean value.
	TypeBool Type = "boolean"
	// TypeAny is compatible with every other type in both directions.
	TypeAny Type = "any"
)

// Valid reports whether t is one of the known port types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeJSON, TypeNumber, TypeBool, TypeAny:
		return true
	}
	return false
}

// Compatible reports whether a value produced on an output port of type
// `from` may flow into an input port of type `to`. Types must match exactly
// unless either side is `any`.
func Compatible(from, to Type) bool {
	if from == TypeAny || to == TypeAny {
		return true
	}
	return from == to
}

// Port is a named, typed input or output slot on a node definition.
type Port struct {
	ID       string
	Type     Type
	Required bool
}

// Find returns the port with the given id, or false if no such port exists.
func Find(ports []Port, id string) (Port, bool) {
	for _, p := range ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// TypeOf classifies a runtime value into a port type. Null and unknown
// values classify as `any` since they carry no observable shape.
func TypeOf(v cty.Value) Type {
	if v.IsNull() || !v.IsKnown() {
		return TypeAny
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return TypeText
	case ty == cty.Number:
		return TypeNumber
	case ty == cty.Bool:
		return TypeBool
	default:
		return TypeJSON
	}
}

// CtyType maps a port type to the cty type used to carry its values at
// runtime. `json` and `any` have no fixed shape and map to the dynamic
// pseudo-type.
func (t Type) CtyType() cty.Type {
	switch t {
	case TypeText:
		return cty.String
	case TypeNumber:
		return cty.Number
	case TypeBool:
		return cty.Bool
	default:
		return cty.DynamicPseudoType
	}
}

// CheckValue verifies that a runtime value is acceptable on a port of type t.
func CheckValue(t Type, v cty.Value) error {
	got := TypeOf(v)
	if !Compatible(got, t) {
		return fmt.Errorf("value of type %q is not acceptable on a %q port", got, t)
	}
	return nil
}
