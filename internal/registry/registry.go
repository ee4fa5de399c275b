// Package registry holds the process-local mapping from generator name
// to generator instance. Each worker constructs and owns its own
// instance at startup; there is no cross-process shared registry.
package registry

import (
	"sort"
	"sync"

	"genforge/internal/domain"
	"genforge/internal/generator"
)

// Registry maps generator names to instances. Safe for concurrent use;
// in steady state it is read-mostly, with registration happening once
// during startup.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]generator.Generator
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{generators: make(map[string]generator.Generator)}
}

// Register inserts g. A duplicate name fails with a RegistrationError
// and leaves the existing registration untouched.
func (r *Registry) Register(g generator.Generator) error {
	name := g.Name()
	if name == "" {
		return &domain.RegistrationError{Name: name, Reason: "empty generator name"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.generators[name]; exists {
		return &domain.RegistrationError{Name: name, Reason: "duplicate name", Err: domain.ErrAlreadyRegistered}
	}
	r.generators[name] = g
	return nil
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (generator.Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// ListAll returns every registered generator, sorted by name.
func (r *Registry) ListAll() []generator.Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]generator.Generator, 0, len(r.generators))
	for _, g := range r.generators {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListByArtifactType returns the generators producing t, sorted by name.
func (r *Registry) ListByArtifactType(t domain.ArtifactType) []generator.Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]generator.Generator, 0)
	for _, g := range r.generators {
		if g.ArtifactType() == t {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Unregister removes name and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.generators[name]; !ok {
		return false
	}
	delete(r.generators, name)
	return true
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators = make(map[string]generator.Generator)
}

// Len returns the number of registered generators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.generators)
}
