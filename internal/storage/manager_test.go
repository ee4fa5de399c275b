package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

func localConfig(t *testing.T, names ...string) *Config {
	t.Helper()
	providers := make(map[string]ProviderConfig, len(names))
	for _, name := range names {
		providers[name] = ProviderConfig{Type: TypeLocal, BasePath: t.TempDir(), BaseURL: "http://cdn/" + name}
	}
	return &Config{Providers: providers}
}

func TestRoutingFirstMatchWins(t *testing.T) {
	cfg := localConfig(t, "A", "B")
	cfg.DefaultProvider = "A"
	cfg.RoutingRules = []RoutingRule{
		{ArtifactType: "video", Provider: "B"},
	}
	m, err := NewManager(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if got := m.Resolve(ObjectMeta{ArtifactType: domain.ArtifactTypeVideo}).Name(); got != "B" {
		t.Fatalf("video routed to %q, want B", got)
	}
	if got := m.Resolve(ObjectMeta{ArtifactType: domain.ArtifactTypeImage}).Name(); got != "A" {
		t.Fatalf("image routed to %q, want default A", got)
	}
}

func TestRoutingCompoundPredicate(t *testing.T) {
	cfg := localConfig(t, "A", "B", "C")
	cfg.DefaultProvider = "A"
	cfg.RoutingRules = []RoutingRule{
		{ArtifactType: "image", TenantID: "tenant-1", Provider: "C"},
		{ArtifactType: "image", Provider: "B"},
	}
	m, err := NewManager(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	meta := ObjectMeta{ArtifactType: domain.ArtifactTypeImage, TenantID: "tenant-1"}
	if got := m.Resolve(meta).Name(); got != "C" {
		t.Fatalf("tenant-1 image routed to %q, want C", got)
	}
	meta.TenantID = "tenant-2"
	if got := m.Resolve(meta).Name(); got != "B" {
		t.Fatalf("tenant-2 image routed to %q, want B", got)
	}
}

func TestMissingDefaultFallsBackToConfigured(t *testing.T) {
	cfg := localConfig(t, "B", "A")
	cfg.DefaultProvider = "missing"
	m, err := NewManager(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager should fall back, got error: %v", err)
	}
	if m.DefaultProvider() != "A" {
		t.Fatalf("fallback default = %q, want A (first by name)", m.DefaultProvider())
	}
}

func TestUnavailableBackendFailsAtConstruction(t *testing.T) {
	cfg := &Config{
		DefaultProvider: "cloud",
		Providers: map[string]ProviderConfig{
			"cloud": {Type: TypeGCS, Bucket: "b"},
		},
	}
	_, err := NewManager(cfg, zerolog.Nop())
	if err == nil {
		t.Fatal("gcs backend should fail construction")
	}
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *domain.ConfigurationError", err)
	}
}

func TestRoutingRuleUnknownProviderFailsFast(t *testing.T) {
	cfg := localConfig(t, "A")
	cfg.RoutingRules = []RoutingRule{{ArtifactType: "video", Provider: "nope"}}
	if _, err := NewManager(cfg, zerolog.Nop()); err == nil {
		t.Fatal("rule targeting unknown provider should fail construction")
	}
}

func TestEmptyConfigRejected(t *testing.T) {
	if _, err := NewManager(&Config{}, zerolog.Nop()); err == nil {
		t.Fatal("empty provider map should fail construction")
	}
}

func TestStoreDerivesStableKey(t *testing.T) {
	cfg := localConfig(t, "A")
	m, err := NewManager(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	meta := ObjectMeta{
		JobID:        "job-1",
		ArtifactType: domain.ArtifactTypeImage,
		Format:       "png",
		Index:        0,
	}

	url1, err := m.Store(context.Background(), []byte("first"), meta)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	url2, err := m.Store(context.Background(), []byte("second"), meta)
	if err != nil {
		t.Fatalf("repeat Store: %v", err)
	}
	if url1 != url2 {
		t.Fatalf("retried upload produced a new URL: %q vs %q", url1, url2)
	}

	want := "http://cdn/A/generated/images/job-1/image-01.png"
	if url1 != want {
		t.Fatalf("url = %q, want %q", url1, want)
	}
}

func TestDefaultKeyShape(t *testing.T) {
	got := DefaultKey(ObjectMeta{JobID: "j", ArtifactType: domain.ArtifactTypeVideo, Format: "mp4", Index: 2})
	want := "generated/videos/j/video-03.mp4"
	if got != want {
		t.Fatalf("DefaultKey = %q, want %q", got, want)
	}
}

func TestParseConfigYAML(t *testing.T) {
	data := []byte(`
default_provider: main
providers:
  main:
    type: local
    base_path: /tmp/store
  bulk:
    type: s3
    bucket: artifacts
    access_key: k
    secret_key: s
routing_rules:
  - artifact_type: video
    provider: bulk
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.DefaultProvider != "main" {
		t.Fatalf("default_provider = %q", cfg.DefaultProvider)
	}
	if len(cfg.Providers) != 2 || len(cfg.RoutingRules) != 1 {
		t.Fatalf("providers = %d rules = %d", len(cfg.Providers), len(cfg.RoutingRules))
	}
	if cfg.Providers["bulk"].Type != TypeS3 {
		t.Fatalf("bulk type = %q", cfg.Providers["bulk"].Type)
	}
}
