package domain

import "time"

// Progress stages emitted by the dispatcher as a job moves through its
// lifecycle. Stages are informational; the job row remains authoritative.
const (
	StageQueued     = "queued"
	StageStarting   = "starting"
	StageGenerating = "generating"
	StageStoring    = "storing"
	StageSucceeded  = "succeeded"
	StageFailed     = "failed"
	StageRetrying   = "retrying"
)

// ProgressEvent is an ephemeral progress notification for a job. It is
// never authoritative job state.
type ProgressEvent struct {
	JobID     string    `json:"job_id"`
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
