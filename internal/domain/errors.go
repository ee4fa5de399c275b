package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyFinalized   = errors.New("generation already finalized")
	ErrLineageCycle       = errors.New("lineage cycle detected")
	ErrDuplicateOperation = errors.New("duplicate operation")
)

// Error classes recorded on terminally failed job rows for user-visible
// surfacing. "storage_failed" marks the case where generation succeeded
// but persistence did not, so operators can recover the produced content.
const (
	ErrClassGeneratorNotFound = "generator_not_found"
	ErrClassValidationFailed  = "validation_failed"
	ErrClassProviderFailed    = "provider_failed"
	ErrClassStorageFailed     = "storage_failed"
	ErrClassCanceled          = "canceled"
)

// ConfigurationError reports bad or missing provider configuration or an
// unavailable backend dependency. Fatal at construction time.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Component, e.Reason)
}

// RegistrationError reports a generator that could not be registered,
// typically a duplicate name.
type RegistrationError struct {
	Name   string
	Reason string
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register generator %q: %s", e.Name, e.Reason)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ValidationError reports input params that failed a generator's input
// schema. Non-retryable: the same inputs will fail the same way.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Reason)
}

// ProviderError reports a failure from the external generation API.
// Retryable covers transient conditions (network, rate limits); the
// dispatcher retries those with backoff up to the configured maximum.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError reports an upload failure after generation succeeded.
type StorageError struct {
	Provider string
	Key      string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: key %q: %v", e.Provider, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Retryable reports whether err represents a transient condition worth
// another attempt. Only provider errors flagged retryable qualify;
// validation, registration and configuration errors never do.
func Retryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
