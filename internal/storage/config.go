package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"genforge/internal/domain"
)

// Backend type names accepted in provider configs.
const (
	TypeLocal    = "local"
	TypeS3       = "s3"
	TypeSupabase = "supabase"
	TypeGCS      = "gcs"
)

// Config describes every backend plus the routing between them.
type Config struct {
	DefaultProvider string                    `yaml:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	RoutingRules    []RoutingRule             `yaml:"routing_rules"`
}

// ProviderConfig is one backend's settings. Type selects the backend;
// the remaining fields apply per type.
type ProviderConfig struct {
	Type string `yaml:"type"`

	// local
	BasePath string `yaml:"base_path,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`

	// s3
	Endpoint       string `yaml:"endpoint,omitempty"`
	Region         string `yaml:"region,omitempty"`
	Bucket         string `yaml:"bucket,omitempty"`
	AccessKey      string `yaml:"access_key,omitempty"`
	SecretKey      string `yaml:"secret_key,omitempty"`
	DisableTLS     bool   `yaml:"disable_tls,omitempty"`
	ForcePathStyle *bool  `yaml:"force_path_style,omitempty"`

	// supabase
	ProjectURL string `yaml:"project_url,omitempty"`
	ServiceKey string `yaml:"service_key,omitempty"`
}

// RoutingRule selects a provider for objects whose metadata matches
// every set predicate field. Rules evaluate in order, first match wins.
type RoutingRule struct {
	ArtifactType string `yaml:"artifact_type,omitempty"`
	TenantID     string `yaml:"tenant_id,omitempty"`
	Generator    string `yaml:"generator,omitempty"`
	Provider     string `yaml:"provider"`
}

// Matches reports whether meta satisfies every set predicate.
func (r RoutingRule) Matches(meta ObjectMeta) bool {
	if r.ArtifactType != "" && r.ArtifactType != string(meta.ArtifactType) {
		return false
	}
	if r.TenantID != "" && r.TenantID != meta.TenantID {
		return false
	}
	if r.Generator != "" && r.Generator != meta.Generator {
		return false
	}
	return true
}

// ObjectMeta describes the artifact being stored, for routing and key
// derivation.
type ObjectMeta struct {
	JobID        string
	TenantID     string
	Generator    string
	ArtifactType domain.ArtifactType
	Format       string
	Index        int
	// Key overrides the derived storage key when set.
	Key string
}

// ParseConfig decodes storage config YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse storage config: %w", err)
	}
	return &cfg, nil
}

// ReadConfig loads and decodes a storage config file.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storage config: %w", err)
	}
	return ParseConfig(data)
}
