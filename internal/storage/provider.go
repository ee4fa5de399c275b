// Package storage routes artifact bytes to one of several configured
// backends. Providers are constructed once at startup; a config that
// references an unavailable backend fails then, never on first use.
package storage

import "context"

// Provider is one storage backend. Upload must overwrite on key reuse
// so a crashed-and-retried job never duplicates or errors.
type Provider interface {
	Name() string
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
