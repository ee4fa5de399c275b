// Package loader populates a generator registry from a declarative
// manifest. Discovery is statically checked: manifests reference
// compiled factories, self-registering modules, or the process catalog,
// never dotted import paths resolved at runtime.
package loader

import (
	"fmt"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
	"genforge/internal/generator"
	"genforge/internal/registry"
)

// Module is a unit that self-registers one or more generators, the
// compiled counterpart of import-side-effect plugin loading.
type Module interface {
	RegisterGenerators(r *registry.Registry) error
}

// Loader resolves manifest entries against its compiled factory and
// module sets plus a catalog for entrypoint discovery.
type Loader struct {
	factories map[string]generator.Factory
	modules   map[string]Module
	catalog   *generator.Catalog
	logger    zerolog.Logger
}

// Config carries the compiled sets handed to a Loader at startup.
type Config struct {
	Factories map[string]generator.Factory
	Modules   map[string]Module
	// Catalog defaults to generator.DefaultCatalog when nil.
	Catalog *generator.Catalog
	Logger  zerolog.Logger
}

// New creates a Loader.
func New(cfg Config) *Loader {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = generator.DefaultCatalog
	}
	return &Loader{
		factories: cfg.Factories,
		modules:   cfg.Modules,
		catalog:   catalog,
		logger:    cfg.Logger,
	}
}

// LoadReport summarizes a lenient load: what registered, what was
// skipped and why.
type LoadReport struct {
	Loaded  []string
	Skipped []SkippedEntry
}

// SkippedEntry records one manifest entry that failed in lenient mode.
type SkippedEntry struct {
	Ref    string
	Reason string
}

// Load resolves every manifest entry and registers the results into reg.
// In strict mode any entry failure aborts with no partial registration.
// In lenient mode failures are logged and skipped; the report lists both
// outcomes. Duplicate detection runs against final names, after any
// name override.
func (l *Loader) Load(m *Manifest, reg *registry.Registry) (*LoadReport, error) {
	staging := registry.New()
	report := &LoadReport{}

	for _, entry := range m.Generators {
		if !entry.IsEnabled() {
			continue
		}
		if err := l.loadEntry(entry, m, staging); err != nil {
			if m.StrictMode {
				return nil, fmt.Errorf("load %s: %w", entry.Ref(), err)
			}
			l.logger.Warn().Err(err).Str("entry", entry.Ref()).Msg("loader: skipping entry")
			report.Skipped = append(report.Skipped, SkippedEntry{Ref: entry.Ref(), Reason: err.Error()})
		}
	}

	if m.AllowUnlisted {
		if err := l.loadUnlisted(m, staging, report); err != nil {
			if m.StrictMode {
				return nil, err
			}
		}
	}

	// Staging holds the complete, conflict-free set; move it into the
	// target registry only now so strict failures leave reg untouched.
	// In strict mode conflicts with reg are checked up front, so a clash
	// on the last staged name cannot leave earlier ones registered.
	if m.StrictMode {
		for _, g := range staging.ListAll() {
			if reg.Has(g.Name()) {
				return nil, fmt.Errorf("register %s: %w", g.Name(), domain.ErrAlreadyRegistered)
			}
		}
	}
	for _, g := range staging.ListAll() {
		if err := reg.Register(g); err != nil {
			if m.StrictMode {
				return nil, fmt.Errorf("register %s: %w", g.Name(), err)
			}
			l.logger.Warn().Err(err).Str("generator", g.Name()).Msg("loader: skipping conflicting generator")
			report.Skipped = append(report.Skipped, SkippedEntry{Ref: g.Name(), Reason: err.Error()})
			continue
		}
		report.Loaded = append(report.Loaded, g.Name())
	}

	l.logger.Info().
		Int("loaded", len(report.Loaded)).
		Int("skipped", len(report.Skipped)).
		Bool("strict", m.StrictMode).
		Msg("loader: manifest processed")
	return report, nil
}

func (l *Loader) loadEntry(entry Entry, m *Manifest, staging *registry.Registry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	switch {
	case entry.Factory != "":
		f, ok := l.factories[entry.Factory]
		if !ok {
			return fmt.Errorf("factory %q not in compiled set", entry.Factory)
		}
		return l.construct(f, entry, staging)
	case entry.Module != "":
		mod, ok := l.modules[entry.Module]
		if !ok {
			return fmt.Errorf("module %q not in compiled set", entry.Module)
		}
		return mod.RegisterGenerators(staging)
	default:
		f, ok := l.catalog.Lookup(entry.Entrypoint)
		if !ok {
			return fmt.Errorf("entrypoint %q not in catalog", entry.Entrypoint)
		}
		return l.construct(f, entry, staging)
	}
}

// construct builds the generator, applies the name override after
// construction, and registers the final name.
func (l *Loader) construct(f generator.Factory, entry Entry, staging *registry.Registry) error {
	g, err := f(entry.Options)
	if err != nil {
		return fmt.Errorf("construct: %w", err)
	}
	if entry.Name != "" && entry.Name != g.Name() {
		g = &renamed{Generator: g, name: entry.Name}
	}
	return staging.Register(g)
}

// loadUnlisted registers every catalog factory whose name is not already
// staged, using default options.
func (l *Loader) loadUnlisted(m *Manifest, staging *registry.Registry, report *LoadReport) error {
	listed := make(map[string]bool)
	for _, entry := range m.Generators {
		if entry.Entrypoint != "" {
			listed[entry.Entrypoint] = true
		}
	}
	for _, name := range l.catalog.Names() {
		if listed[name] || staging.Has(name) {
			continue
		}
		f, _ := l.catalog.Lookup(name)
		if err := l.construct(f, Entry{Entrypoint: name}, staging); err != nil {
			if m.StrictMode {
				return fmt.Errorf("load unlisted %s: %w", name, err)
			}
			l.logger.Warn().Err(err).Str("entrypoint", name).Msg("loader: skipping unlisted entrypoint")
			report.Skipped = append(report.Skipped, SkippedEntry{Ref: "entrypoint:" + name, Reason: err.Error()})
		}
	}
	return nil
}

// renamed overrides a generator's registered name without touching the
// wrapped implementation.
type renamed struct {
	generator.Generator
	name string
}

func (r *renamed) Name() string { return r.name }

var _ generator.Generator = (*renamed)(nil)
