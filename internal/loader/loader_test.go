package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
	"genforge/internal/generator"
	"genforge/internal/registry"
)

type stubGenerator struct {
	name         string
	artifactType domain.ArtifactType
	opts         generator.Options
}

func (s *stubGenerator) Name() string { return s.name }
func (s *stubGenerator) ArtifactType() domain.ArtifactType { return s.artifactType }
func (s *stubGenerator) InputSchema() generator.Schema { return generator.Schema{} }
func (s *stubGenerator) OutputSchema() generator.Schema { return generator.Schema{} }
func (s *stubGenerator) EstimateCost(map[string]any) float64 { return 0 }
func (s *stubGenerator) Generate(context.Context, generator.Request) (*generator.Result, error) {
	return &generator.Result{}, nil
}

func stubFactory(name string, t domain.ArtifactType) generator.Factory {
	return func(opts generator.Options) (generator.Generator, error) {
		return &stubGenerator{name: name, artifactType: t, opts: opts}, nil
	}
}

func failingFactory(opts generator.Options) (generator.Generator, error) {
	return nil, errors.New("backend unavailable")
}

type stubModule struct {
	names []string
}

func (m *stubModule) RegisterGenerators(r *registry.Registry) error {
	for _, name := range m.names {
		if err := r.Register(&stubGenerator{name: name, artifactType: domain.ArtifactTypeText}); err != nil {
			return err
		}
	}
	return nil
}

func newTestLoader(catalog *generator.Catalog) *Loader {
	return New(Config{
		Factories: map[string]generator.Factory{
			"img":    stubFactory("img", domain.ArtifactTypeImage),
			"vid":    stubFactory("vid", domain.ArtifactTypeVideo),
			"broken": failingFactory,
		},
		Modules: map[string]Module{
			"pack": &stubModule{names: []string{"pack-a", "pack-b"}},
		},
		Catalog: catalog,
		Logger:  zerolog.Nop(),
	})
}

func TestStrictModeUnresolvableEntryRegistersNothing(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{
			{Factory: "img"},
			{Factory: "missing"},
			{Factory: "vid"},
		},
	}
	if _, err := l.Load(m, reg); err == nil {
		t.Fatal("strict load with unresolvable entry should fail")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry size = %d, want 0 after strict failure", reg.Len())
	}
}

func TestLenientModeSkipsFailuresAndRegistersRest(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	m := &Manifest{
		Generators: []Entry{
			{Factory: "img"},
			{Factory: "missing"},
			{Factory: "broken"},
			{Factory: "vid"},
		},
	}
	report, err := l.Load(m, reg)
	if err != nil {
		t.Fatalf("lenient load returned error: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry size = %d, want 2", reg.Len())
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %d, want 2", len(report.Skipped))
	}
	if !reg.Has("img") || !reg.Has("vid") {
		t.Fatal("valid entries should still register in lenient mode")
	}
}

func TestDuplicateNameStrictAborts(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{
			{Factory: "img"},
			{Factory: "vid", Name: "img"},
		},
	}
	if _, err := l.Load(m, reg); err == nil {
		t.Fatal("duplicate final name should abort strict load")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry size = %d, want 0", reg.Len())
	}
}

func TestStrictModeConflictWithExistingRegistration(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	if err := reg.Register(&stubGenerator{name: "vid", artifactType: domain.ArtifactTypeVideo}); err != nil {
		t.Fatalf("pre-register: %v", err)
	}
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{
			{Factory: "img"},
			{Factory: "vid"},
		},
	}
	_, err := l.Load(m, reg)
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry size = %d, want only the pre-existing generator", reg.Len())
	}
	if reg.Has("img") {
		t.Fatal("no staged generator should commit when any staged name conflicts")
	}
}

func TestNameOverrideAppliedBeforeRegistration(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{
			{Factory: "img", Name: "img-primary"},
		},
	}
	if _, err := l.Load(m, reg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reg.Has("img-primary") {
		t.Fatal("override name should be registered")
	}
	if reg.Has("img") {
		t.Fatal("original name should not be registered")
	}
	g, _ := reg.Get("img-primary")
	if g.ArtifactType() != domain.ArtifactTypeImage {
		t.Fatalf("wrapped generator lost behavior: artifact type = %s", g.ArtifactType())
	}
}

func TestModuleEntrySelfRegisters(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{{Module: "pack"}},
	}
	if _, err := l.Load(m, reg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reg.Has("pack-a") || !reg.Has("pack-b") {
		t.Fatal("module should register both generators")
	}
}

func TestEntrypointAllowlist(t *testing.T) {
	catalog := generator.NewCatalog()
	catalog.Add("cat-a", stubFactory("cat-a", domain.ArtifactTypeAudio))
	catalog.Add("cat-b", stubFactory("cat-b", domain.ArtifactTypeAudio))
	l := newTestLoader(catalog)

	reg := registry.New()
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{{Entrypoint: "cat-a"}},
	}
	if _, err := l.Load(m, reg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reg.Has("cat-a") {
		t.Fatal("listed entrypoint should register")
	}
	if reg.Has("cat-b") {
		t.Fatal("unlisted entrypoint should not register without allow_unlisted")
	}
}

func TestEntrypointAllowUnlisted(t *testing.T) {
	catalog := generator.NewCatalog()
	catalog.Add("cat-a", stubFactory("cat-a", domain.ArtifactTypeAudio))
	catalog.Add("cat-b", stubFactory("cat-b", domain.ArtifactTypeAudio))
	l := newTestLoader(catalog)

	reg := registry.New()
	m := &Manifest{
		StrictMode:    true,
		AllowUnlisted: true,
		Generators:    []Entry{{Entrypoint: "cat-a"}},
	}
	if _, err := l.Load(m, reg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reg.Has("cat-a") || !reg.Has("cat-b") {
		t.Fatal("allow_unlisted should register the whole catalog")
	}
}

func TestDisabledEntrySkipped(t *testing.T) {
	l := newTestLoader(generator.NewCatalog())
	reg := registry.New()
	disabled := false
	m := &Manifest{
		StrictMode: true,
		Generators: []Entry{{Factory: "img", Enabled: &disabled}},
	}
	if _, err := l.Load(m, reg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry size = %d, want 0 for disabled entry", reg.Len())
	}
}

func TestParseManifest(t *testing.T) {
	data := []byte(`
strict_mode: true
allow_unlisted: false
generators:
  - factory: img
    name: img-main
    options:
      timeout_seconds: 120
      model: latest
  - entrypoint: cat-a
    enabled: false
`)
	m, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if !m.StrictMode {
		t.Fatal("strict_mode should parse true")
	}
	if len(m.Generators) != 2 {
		t.Fatalf("entries = %d, want 2", len(m.Generators))
	}
	if m.Generators[0].Options.TimeoutSeconds != 120 {
		t.Fatalf("timeout_seconds = %d, want 120", m.Generators[0].Options.TimeoutSeconds)
	}
	if m.Generators[1].IsEnabled() {
		t.Fatal("second entry should be disabled")
	}
}

func TestEntryValidateExactlyOneKind(t *testing.T) {
	cases := []Entry{
		{},
		{Factory: "a", Module: "b"},
		{Factory: "a", Entrypoint: "c"},
	}
	for _, entry := range cases {
		if err := entry.validate(); err == nil {
			t.Fatalf("entry %+v should fail validation", entry)
		}
	}
}
