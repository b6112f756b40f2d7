// Package registry maps (kind, version) keys to node definitions. The
// registry is populated once at startup from the built-in module set and is
// static for the life of the process; there is no removal operation.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
)

// Key identifies one node definition.
type Key struct {
	Kind    string
	Version string
}

func (k Key) String() string {
	return k.Kind + "@" + k.Version
}

// Module is the interface every built-in node package implements to be
// registered with the engine.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered node definitions for one engine instance.
type Registry struct {
	defs map[Key]*Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[Key]*Definition)}
}

// Register stores a definition under its (kind, version) key. Registering a
// duplicate key or a malformed definition is a programming error and panics.
func (r *Registry) Register(def *Definition) {
	if err := def.validate(); err != nil {
		panic(fmt.Sprintf("invalid node definition %q: %v", def.Kind, err))
	}
	key := Key{Kind: def.Kind, Version: def.Version}
	if _, exists := r.defs[key]; exists {
		panic(fmt.Sprintf("node definition %s already registered", key))
	}
	slog.Debug("Registering node definition.", "kind", def.Kind, "version", def.Version)
	r.defs[key] = def
}

// Get returns the definition for a key, or false if none is registered.
func (r *Registry) Get(kind, version string) (*Definition, bool) {
	def, ok := r.defs[Key{Kind: kind, Version: version}]
	return def, ok
}

// Keys returns all registered keys in stable sorted order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.defs))
	for k := range r.defs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Version < keys[j].Version
	})
	return keys
}
