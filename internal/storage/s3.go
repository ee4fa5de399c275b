package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"genforge/internal/domain"
)

// S3Provider stores artifacts in an S3-compatible bucket. A thin wrapper
// around the AWS SDK v2 client, tuned for path-style self-hosted
// endpoints as well as AWS itself.
type S3Provider struct {
	name   string
	api    *s3.Client
	bucket string
	// publicBase prefixes returned URLs; defaults to endpoint/bucket.
	publicBase string
}

// NewS3Provider builds the S3 client from static config. Missing
// credentials or bucket fail construction.
func NewS3Provider(name string, cfg ProviderConfig) (*S3Provider, error) {
	if cfg.Bucket == "" {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: "bucket is required"}
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: "access_key and secret_key are required"}
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	scheme := "https"
	if cfg.DisableTLS {
		scheme = "http"
	}
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	forcePathStyle := true
	if cfg.ForcePathStyle != nil {
		forcePathStyle = *cfg.ForcePathStyle
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, &domain.ConfigurationError{Component: "storage provider " + name, Reason: err.Error()}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = forcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	publicBase := cfg.BaseURL
	if publicBase == "" {
		if endpoint != "" {
			publicBase = fmt.Sprintf("%s/%s", strings.TrimRight(endpoint, "/"), cfg.Bucket)
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}

	return &S3Provider{
		name:       name,
		api:        client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

func (p *S3Provider) Name() string { return p.name }

// Upload puts the object; S3 put semantics overwrite an existing key.
func (p *S3Provider) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := p.api.PutObject(ctx, input); err != nil {
		return "", &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	return p.publicBase + "/" + key, nil
}

// Exists heads the object and maps not-found to (false, nil).
func (p *S3Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &p.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, &domain.StorageError{Provider: p.name, Key: key, Err: err}
}

// Delete removes the object; deleting an absent key succeeds.
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	if _, err := p.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &p.bucket, Key: &key}); err != nil {
		return &domain.StorageError{Provider: p.name, Key: key, Err: err}
	}
	return nil
}
