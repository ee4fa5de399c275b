package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status ends the lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Transitions are monotonic: queued -> running -> {succeeded, failed},
// with the one backward edge running -> queued reserved for retry
// re-enqueues. Terminal states accept nothing.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusSucceeded || next == JobStatusFailed || next == JobStatusQueued
	default:
		return false
	}
}

// InputArtifactRef points at an artifact consumed by a job, identified by
// the generation that produced it.
type InputArtifactRef struct {
	GenerationID string       `json:"generation_id"`
	Role         string       `json:"role"`
	ArtifactType ArtifactType `json:"artifact_type"`
}

// Job encapsulates the lifecycle of a single generation request.
type Job struct {
	ID              string
	TenantID        string
	BoardID         string
	GeneratorName   string
	ProviderName    string
	ArtifactType    ArtifactType
	InputParams     map[string]any
	InputArtifacts  []InputArtifactRef
	Status          JobStatus
	RetryCount      int
	CancelRequested bool
	ErrorClass      string
	ErrorMessage    string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}
