package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genforge/internal/domain"
)

// SupabaseProvider stores artifacts in a Supabase Storage bucket through
// its REST API. Uploads set x-upsert so key reuse overwrites.
type SupabaseProvider struct {
	name       string
	projectURL string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewSupabaseProvider validates connection settings up front.
func NewSupabaseProvider(name string, cfg ProviderConfig) (*SupabaseProvider, error) {
	projectURL := strings.TrimRight(strings.TrimSpace(cfg.ProjectURL), "/")
	if projectURL == "" {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: "project_url is required"}
	}
	if _, err := url.Parse(projectURL); err != nil {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: fmt.Sprintf("invalid project_url: %v", err)}
	}
	if cfg.ServiceKey == "" {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: "service_key is required"}
	}
	if cfg.Bucket == "" {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: "bucket is required"}
	}
	return &SupabaseProvider{
		name:       name,
		projectURL: projectURL,
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (p *SupabaseProvider) Name() string { return p.name }

// Upload posts the object with upsert semantics and returns its public URL.
func (p *SupabaseProvider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", p.projectURL, p.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("x-upsert", "true")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &domain.StorageError{
			Provider: p.name,
			Key:      key,
			Err:      fmt.Errorf("upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", p.projectURL, p.bucket, key), nil
}

// Exists queries object info and maps 404 to (false, nil).
func (p *SupabaseProvider) Exists(ctx context.Context, key string) (bool, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/info/%s/%s", p.projectURL, p.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &domain.StorageError{Provider: p.name, Key: key, Err: fmt.Errorf("info status %d", resp.StatusCode)}
	}
}

// Delete removes the object; a 404 response is treated as success.
func (p *SupabaseProvider) Delete(ctx context.Context, key string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", p.projectURL, p.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &domain.StorageError{Provider: p.name, Key: key, Err: fmt.Errorf("delete status %d", resp.StatusCode)}
	}
	return nil
}
