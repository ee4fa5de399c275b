package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

// Manager routes artifact bytes to one of its configured providers.
// Construction builds every provider eagerly so a bad config fails at
// startup; after that the manager is read-only and safe for concurrent
// use.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	rules           []RoutingRule
	logger          zerolog.Logger
}

// NewManager builds one provider per configured backend. A provider
// whose type has no linked backend fails construction with a
// ConfigurationError. A default_provider key absent from providers falls
// back to the first configured provider by name.
func NewManager(cfg *Config, logger zerolog.Logger) (*Manager, error) {
	if cfg == nil || len(cfg.Providers) == 0 {
		return nil, &domain.ConfigurationError{Component: "storage manager", Reason: "at least one provider is required"}
	}

	providers := make(map[string]Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		p, err := buildProvider(name, pc)
		if err != nil {
			return nil, err
		}
		providers[name] = p
	}

	for _, rule := range cfg.RoutingRules {
		if _, ok := providers[rule.Provider]; !ok {
			return nil, &domain.ConfigurationError{
				Component: "storage manager",
				Reason:    fmt.Sprintf("routing rule targets unknown provider %q", rule.Provider),
			}
		}
	}

	defaultName := cfg.DefaultProvider
	if _, ok := providers[defaultName]; !ok {
		names := make([]string, 0, len(providers))
		for name := range providers {
			names = append(names, name)
		}
		sort.Strings(names)
		fallback := names[0]
		if defaultName != "" {
			logger.Warn().
				Str("configured", defaultName).
				Str("fallback", fallback).
				Msg("storage: default provider not configured, falling back")
		}
		defaultName = fallback
	}

	return &Manager{
		providers:       providers,
		defaultProvider: defaultName,
		rules:           cfg.RoutingRules,
		logger:          logger,
	}, nil
}

func buildProvider(name string, pc ProviderConfig) (Provider, error) {
	switch pc.Type {
	case TypeLocal:
		return NewLocalProvider(name, pc)
	case TypeS3:
		return NewS3Provider(name, pc)
	case TypeSupabase:
		return NewSupabaseProvider(name, pc)
	case TypeGCS:
		return nil, &domain.ConfigurationError{
			Component: "storage provider " + name,
			Reason:    "gcs backend is not linked into this build",
		}
	default:
		return nil, &domain.ConfigurationError{
			Component: "storage provider " + name,
			Reason:    fmt.Sprintf("unknown backend type %q", pc.Type),
		}
	}
}

// Resolve returns the provider the routing rules select for meta:
// first matching rule wins, otherwise the default provider.
func (m *Manager) Resolve(meta ObjectMeta) Provider {
	for _, rule := range m.rules {
		if rule.Matches(meta) {
			return m.providers[rule.Provider]
		}
	}
	return m.providers[m.defaultProvider]
}

// Provider returns a configured provider by name.
func (m *Manager) Provider(name string) (Provider, bool) {
	p, ok := m.providers[name]
	return p, ok
}

// DefaultProvider returns the effective default provider name.
func (m *Manager) DefaultProvider() string { return m.defaultProvider }

// Store uploads data through the routed provider and returns the
// storage URL. The derived key is stable per (job, index), so a retried
// upload overwrites instead of duplicating.
func (m *Manager) Store(ctx context.Context, data []byte, meta ObjectMeta) (string, error) {
	provider := m.Resolve(meta)
	key := meta.Key
	if key == "" {
		key = DefaultKey(meta)
	}
	url, err := provider.Upload(ctx, key, data, contentTypeFor(meta.Format))
	if err != nil {
		return "", err
	}
	m.logger.Debug().
		Str("provider", provider.Name()).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("storage: stored artifact")
	return url, nil
}

// DefaultKey derives the canonical storage key for an artifact:
// generated/<type>/<job>/<type>-<nn>.<ext>.
func DefaultKey(meta ObjectMeta) string {
	t := string(meta.ArtifactType)
	if t == "" {
		t = "artifact"
	}
	index := meta.Index
	if index < 0 {
		index = 0
	}
	return fmt.Sprintf("generated/%ss/%s/%s-%02d%s", t, meta.JobID, t, index+1, extensionForFormat(meta.Format))
}

func contentTypeFor(format string) string {
	if strings.Contains(format, "/") {
		return format
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "mp4":
		return "video/mp4"
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "txt", "md":
		return "text/plain"
	case "safetensors":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}

func extensionForFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if idx := strings.Index(format, "/"); idx >= 0 {
		format = format[idx+1:]
	}
	switch format {
	case "png", "jpg", "mp4", "wav", "mp3", "txt", "md", "safetensors":
		return "." + format
	case "jpeg":
		return ".jpg"
	case "plain":
		return ".txt"
	case "mpeg":
		return ".mp3"
	case "":
		return ".bin"
	default:
		return "." + format
	}
}
