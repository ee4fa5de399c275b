package generator

import (
	"time"

	"genforge/internal/domain"
)

const defaultTimeout = 5 * time.Minute

// Options is the typed per-generator configuration applied at load time.
// Factories validate what they use and reject what they cannot honor, so
// a bad manifest fails during startup rather than on first dispatch.
type Options struct {
	// TimeoutSeconds bounds a single Generate call. Zero means the
	// default provider timeout.
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Model          string            `yaml:"model"`
	Endpoint       string            `yaml:"endpoint"`
	APIKey         string            `yaml:"api_key"`
	CostPerUnit    float64           `yaml:"cost_per_unit"`
	Extra          map[string]string `yaml:"extra"`
}

// Timeout returns the configured invocation timeout or the default.
func (o Options) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Validate rejects values no factory could honor.
func (o Options) Validate() error {
	if o.TimeoutSeconds < 0 {
		return &domain.ConfigurationError{Component: "generator options", Reason: "timeout_seconds must not be negative"}
	}
	if o.CostPerUnit < 0 {
		return &domain.ConfigurationError{Component: "generator options", Reason: "cost_per_unit must not be negative"}
	}
	return nil
}
