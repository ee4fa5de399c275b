package domain

import (
	"context"
	"time"
)

// GenerationStore is the persistence collaborator consumed by the
// dispatcher. Implementations live outside the core (see adapter/repo).
// Status-changing methods must enforce the monotonic lifecycle: a call
// that would leave a terminal state returns ErrInvalidTransition.
type GenerationStore interface {
	CreateGeneration(ctx context.Context, job *Job) error
	GetGeneration(ctx context.Context, id string) (*Job, error)
	MarkRunning(ctx context.Context, id string) error
	// Requeue moves a running job back to queued with an incremented
	// retry count, ahead of a delayed re-dispatch.
	Requeue(ctx context.Context, id string, retryCount int) error
	FinalizeSuccess(ctx context.Context, id string, outputs []Artifact) error
	FinalizeFailure(ctx context.Context, id, errClass, errMessage string) error
}

// LineageStore persists input/output artifact edges per generation.
type LineageStore interface {
	// InputRefs returns the ordered input artifact references recorded
	// for a generation, or ErrNotFound if the generation is unknown.
	InputRefs(ctx context.Context, generationID string) ([]InputArtifactRef, error)
	// PutOutputs associates outputs with a generation. Must be
	// idempotent per generation id: a repeat call is a no-op.
	PutOutputs(ctx context.Context, generationID string, outputs []Artifact) error
	// Outputs returns the artifacts recorded for a generation, empty
	// when none were recorded yet.
	Outputs(ctx context.Context, generationID string) ([]Artifact, error)
	// Finalized reports whether outputs were already recorded.
	Finalized(ctx context.Context, generationID string) (bool, error)
	// CreatedAt returns the creation timestamp of a generation.
	CreatedAt(ctx context.Context, generationID string) (time.Time, error)
}

// ProgressSink writes the latest stage/percent/message onto the
// externally visible job record. Failures are the caller's to swallow.
type ProgressSink interface {
	UpdateProgress(ctx context.Context, ev ProgressEvent) error
}
