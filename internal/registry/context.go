package registry

import (
	"fmt"

	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/services"
	"github.com/zclconf/go-cty/cty"
)

// ExecContext is the per-node, per-run execution context. It is constructed
// by the runtime immediately before a node executes and discarded after the
// node completes; nothing in it is persisted.
type ExecContext struct {
	RunID       string
	ProjectPath string
	Node        schema.Node
	Config      map[string]cty.Value
	Inputs      map[string]cty.Value
	Services    *services.Boundary
}

// lookup reads a value from config, falling back to inputs. Ports and config
// keys never share names in the built-in set, but fallback keeps simple
// nodes usable from either side.
func (ec *ExecContext) lookup(key string) (cty.Value, bool) {
	if v, ok := ec.Config[key]; ok && !v.IsNull() {
		return v, true
	}
	if v, ok := ec.Inputs[key]; ok && !v.IsNull() {
		return v, true
	}
	return cty.NilVal, false
}

// String returns the text value under key from config or inputs, or the
// fallback when absent.
func (ec *ExecContext) String(key, fallback string) string {
	v, ok := ec.lookup(key)
	if !ok || v.Type() != cty.String {
		return fallback
	}
	return v.AsString()
}

// RequireString returns the text value under key or an error naming the key.
func (ec *ExecContext) RequireString(key string) (string, error) {
	v, ok := ec.lookup(key)
	if !ok {
		return "", fmt.Errorf("missing required value %q", key)
	}
	if v.Type() != cty.String {
		return "", fmt.Errorf("value %q must be text", key)
	}
	return v.AsString(), nil
}

// Number returns the numeric value under key, or the fallback when absent.
func (ec *ExecContext) Number(key string, fallback float64) float64 {
	v, ok := ec.lookup(key)
	if !ok || v.Type() != cty.Number {
		return fallback
	}
	f, _ := v.AsBigFloat().Float64()
	return f
}

// Bool returns the boolean value under key, or the fallback when absent.
func (ec *ExecContext) Bool(key string, fallback bool) bool {
	v, ok := ec.lookup(key)
	if !ok || v.Type() != cty.Bool {
		return fallback
	}
	return v.True()
}

// StringSlice returns the list of strings under key; absent yields nil.
func (ec *ExecContext) StringSlice(key string) ([]string, error) {
	v, ok := ec.lookup(key)
	if !ok {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("value %q must be a list", key)
	}
	out := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("value %q must be a list of text", key)
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// AssetRef decodes the asset reference object stored under an input key.
func (ec *ExecContext) AssetRef(key string) (schema.AssetRef, error) {
	v, ok := ec.lookup(key)
	if !ok {
		return schema.AssetRef{}, fmt.Errorf("missing required value %q", key)
	}
	return AssetRefFromValue(v)
}

// AssetRefFromValue converts an object value into an AssetRef.
func AssetRefFromValue(v cty.Value) (schema.AssetRef, error) {
	if !v.Type().IsObjectType() {
		return schema.AssetRef{}, fmt.Errorf("value is not an asset reference object")
	}
	var ref schema.AssetRef
	attrs := v.Type().AttributeTypes()
	getString := func(name string) string {
		if _, ok := attrs[name]; !ok {
			return ""
		}
		av := v.GetAttr(name)
		if av.IsNull() || av.Type() != cty.String {
			return ""
		}
		return av.AsString()
	}
	ref.Hash = getString("hash")
	ref.MimeType = getString("mimeType")
	ref.Path = getString("path")
	if _, ok := attrs["sizeBytes"]; ok {
		sv := v.GetAttr("sizeBytes")
		if !sv.IsNull() && sv.Type() == cty.Number {
			size, _ := sv.AsBigFloat().Int64()
			ref.SizeBytes = size
		}
	}
	if ref.Hash == "" || ref.Path == "" {
		return schema.AssetRef{}, fmt.Errorf("asset reference is missing hash or path")
	}
	return ref, nil
}

// AssetRefValue converts an AssetRef into the object value that flows along
// edges and into persisted outputs.
func AssetRefValue(ref schema.AssetRef) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"hash":      cty.StringVal(ref.Hash),
		"mimeType":  cty.StringVal(ref.MimeType),
		"sizeBytes": cty.NumberIntVal(ref.SizeBytes),
		"path":      cty.StringVal(ref.Path),
	})
}
