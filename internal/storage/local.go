package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"genforge/internal/domain"
)

// LocalProvider persists artifacts onto the local filesystem. It is
// intended for development and test environments where an object
// storage service is not available.
type LocalProvider struct {
	name     string
	basePath string
	baseURL  string
}

// NewLocalProvider initializes a LocalProvider rooted at cfg.BasePath.
func NewLocalProvider(name string, cfg ProviderConfig) (*LocalProvider, error) {
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath == "" {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: "base_path is required"}
	}
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: fmt.Sprintf("ensure base path: %v", err)}
	}
	return &LocalProvider{
		name:     name,
		basePath: basePath,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (p *LocalProvider) Name() string { return p.name }

// Upload writes data at the given relative key, overwriting any previous
// content, and returns the externally usable URL. Keys are cleaned to
// prevent directory traversal.
func (p *LocalProvider) Upload(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(p.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", &domain.StorageError{Provider: p.name, Key: cleanKey, Err: fmt.Errorf("ensure directory: %w", err)}
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", &domain.StorageError{Provider: p.name, Key: cleanKey, Err: fmt.Errorf("write file: %w", err)}
	}
	return p.url(cleanKey), nil
}

// Exists reports whether a file was stored under key.
func (p *LocalProvider) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(filepath.Join(p.basePath, filepath.FromSlash(cleanKey)))
	if statErr == nil {
		return true, nil
	}
	if errors.Is(statErr, os.ErrNotExist) {
		return false, nil
	}
	return false, &domain.StorageError{Provider: p.name, Key: cleanKey, Err: statErr}
}

// Delete removes the file stored under key. Deleting an absent key is
// not an error.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(p.basePath, filepath.FromSlash(cleanKey))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &domain.StorageError{Provider: p.name, Key: cleanKey, Err: err}
	}
	return nil
}

func (p *LocalProvider) url(key string) string {
	if p.baseURL != "" {
		return p.baseURL + "/" + key
	}
	return "file://" + filepath.ToSlash(filepath.Join(p.basePath, filepath.FromSlash(key)))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
