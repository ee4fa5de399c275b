// Package generator defines the contract implemented by all generation
// plugins plus the supporting pieces the loader needs: input/output
// schema descriptors, typed per-generator options, and the process-wide
// factory catalog.
package generator

import (
	"context"

	"genforge/internal/domain"
)

// Input is a resolved input artifact, ready for a generator to consume.
// Either Data or URL is populated depending on the storage backend.
type Input struct {
	Ref    domain.InputArtifactRef
	URL    string
	Data   []byte
	Format string
}

// Resolver turns input artifact references into fetchable bytes or URLs.
// It is a capability supplied by the dispatcher; generators never
// implement it themselves.
type Resolver interface {
	Resolve(ctx context.Context, ref domain.InputArtifactRef) (Input, error)
}

// Request is the normalized invocation passed to any generator.
type Request struct {
	JobID          string
	TenantID       string
	Params         map[string]any
	InputArtifacts []domain.InputArtifactRef
	Resolver       Resolver
}

// Result holds the outputs of a successful generation.
type Result struct {
	Outputs []domain.GeneratedArtifact
}

// Generator is the contract implemented by all generation plugins.
//
// EstimateCost must be pure: no I/O, identical inputs yield identical
// values. Generate may perform external network I/O and is expected to
// honor ctx cancellation and deadlines.
type Generator interface {
	Name() string
	ArtifactType() domain.ArtifactType
	InputSchema() Schema
	OutputSchema() Schema
	EstimateCost(params map[string]any) float64
	Generate(ctx context.Context, req Request) (*Result, error)
}
