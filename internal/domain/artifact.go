package domain

import "time"

// ArtifactType enumerates the media categories a generator can produce.
type ArtifactType string

const (
	ArtifactTypeImage ArtifactType = "image"
	ArtifactTypeVideo ArtifactType = "video"
	ArtifactTypeAudio ArtifactType = "audio"
	ArtifactTypeText  ArtifactType = "text"
	ArtifactTypeModel ArtifactType = "model"
)

// ArtifactMeta carries the type-specific fields of an artifact. Unused
// fields stay at their zero values for the other variants.
type ArtifactMeta struct {
	Width           int      `json:"width,omitempty"`
	Height          int      `json:"height,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	SampleRate      int      `json:"sample_rate,omitempty"`
	WordCount       int      `json:"word_count,omitempty"`
	TriggerWords    []string `json:"trigger_words,omitempty"`
	BaseModel       string   `json:"base_model,omitempty"`
}

// Artifact is a stored generation output. Created only by a successful
// dispatcher run and immutable afterwards.
type Artifact struct {
	ID           string
	GenerationID string
	Type         ArtifactType
	StorageURL   string
	Format       string
	SizeBytes    int64
	Meta         ArtifactMeta
	CreatedAt    time.Time
}

// GeneratedArtifact is returned by generators prior to persistence: raw
// bytes plus enough metadata for the storage layer to place and describe
// them.
type GeneratedArtifact struct {
	Type      ArtifactType
	Format    string
	Data      []byte
	SourceURL string
	Meta      ArtifactMeta
}
