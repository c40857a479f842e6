package capability

import (
	"errors"
	"fmt"
	"slices"

	"github.com/papercomputeco/loom/pkg/llm"
)

// Registry maps capability names to capabilities. It is read-only once built
// and safe for concurrent use.
type Registry struct {
	byName map[string]Capability
	names  []string
}

// NewRegistry builds a registry from caps. Names must be non-empty and unique.
func NewRegistry(caps ...Capability) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Capability, len(caps)),
		names:  make([]string, 0, len(caps)),
	}

	for _, c := range caps {
		if c == nil {
			return nil, errors.New("nil capability")
		}
		name := c.Name()
		if name == "" {
			return nil, errors.New("capability with empty name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate capability name: %q", name)
		}
		r.byName[name] = c
		r.names = append(r.names, name)
	}

	return r, nil
}

// MustRegistry is NewRegistry that panics on error. Intended for static
// wiring in main packages and tests.
func MustRegistry(caps ...Capability) *Registry {
	r, err := NewRegistry(caps...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byName[name]
	return c, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.names)
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Specs returns the action specs of every capability in registration order.
func (r *Registry) Specs() []llm.ActionSpec {
	if r == nil {
		return nil
	}
	specs := make([]llm.ActionSpec, 0, len(r.names))
	for _, name := range r.names {
		specs = append(specs, Spec(r.byName[name]))
	}
	return specs
}
