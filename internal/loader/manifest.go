package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"genforge/internal/generator"
)

// Manifest is the declarative generator-loading config.
type Manifest struct {
	// StrictMode aborts the whole load on any single entry failure,
	// registering nothing. Lenient mode logs and skips.
	StrictMode bool `yaml:"strict_mode"`
	// AllowUnlisted lets catalog factories not named by any entrypoint
	// entry register with default options.
	AllowUnlisted bool    `yaml:"allow_unlisted"`
	Generators    []Entry `yaml:"generators"`
}

// Entry names one generator to load through exactly one discovery kind:
// a compiled factory, a self-registering module, or a catalog entrypoint.
type Entry struct {
	Factory    string `yaml:"factory,omitempty"`
	Module     string `yaml:"module,omitempty"`
	Entrypoint string `yaml:"entrypoint,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool             `yaml:"enabled,omitempty"`
	Name    string            `yaml:"name,omitempty"`
	Options generator.Options `yaml:"options,omitempty"`
}

// IsEnabled reports whether the entry should be processed.
func (e Entry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Ref returns a human-readable identifier for log and error messages.
func (e Entry) Ref() string {
	switch {
	case e.Factory != "":
		return "factory:" + e.Factory
	case e.Module != "":
		return "module:" + e.Module
	case e.Entrypoint != "":
		return "entrypoint:" + e.Entrypoint
	default:
		return "(empty entry)"
	}
}

func (e Entry) validate() error {
	set := 0
	for _, v := range []string{e.Factory, e.Module, e.Entrypoint} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("entry %s: exactly one of factory, module, entrypoint must be set", e.Ref())
	}
	return e.Options.Validate()
}

// ParseManifest decodes manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// ReadManifest loads and decodes a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}
