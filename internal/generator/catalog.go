package generator

import (
	"sort"
	"sync"
)

// Factory constructs a generator from validated options. Factories are
// the statically checked replacement for string-based plugin loading: a
// compiled set of them is handed to the loader at startup.
type Factory func(opts Options) (Generator, error)

// Catalog is a process-wide set of named factories. Generator packages
// register into DefaultCatalog so manifest entrypoint entries can
// discover them without the worker naming every package.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Add registers a factory under name, replacing any previous entry.
func (c *Catalog) Add(name string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
}

// Lookup returns the factory registered under name.
func (c *Catalog) Lookup(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok
}

// Names returns the registered factory names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultCatalog is the process-wide catalog consulted by manifest
// entrypoint entries.
var DefaultCatalog = NewCatalog()

// RegisterFactory adds a factory to the DefaultCatalog.
func RegisterFactory(name string, f Factory) {
	DefaultCatalog.Add(name, f)
}
