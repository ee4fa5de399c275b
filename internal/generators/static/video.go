package static

import (
	"context"
	"fmt"
	"time"

	"genforge/internal/domain"
	"genforge/internal/generator"
)

const (
	defaultVideoCostPerSecond = 0.05
	defaultVideoDuration      = 6
	maxVideoDuration          = 60
)

// VideoGenerator produces synthetic MP4 payloads. Pricing is linear in
// duration: cost = cost_per_unit * duration_seconds.
type VideoGenerator struct {
	opts generator.Options
}

// NewVideo constructs the static video generator.
func NewVideo(opts generator.Options) (generator.Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.CostPerUnit == 0 {
		opts.CostPerUnit = defaultVideoCostPerSecond
	}
	return &VideoGenerator{opts: opts}, nil
}

func (g *VideoGenerator) Name() string { return VideoName }
func (g *VideoGenerator) ArtifactType() domain.ArtifactType { return domain.ArtifactTypeVideo }

func (g *VideoGenerator) InputSchema() generator.Schema {
	return generator.Schema{Fields: []generator.Field{
		{Name: "duration_seconds", Type: generator.FieldNumber, Min: generator.Float64Ptr(1), Max: generator.Float64Ptr(maxVideoDuration)},
		{Name: "fps", Type: generator.FieldNumber, Min: generator.Float64Ptr(1), Max: generator.Float64Ptr(120)},
		{Name: "resolution", Type: generator.FieldString, Enum: []string{"720p", "1080p"}},
	}}
}

func (g *VideoGenerator) OutputSchema() generator.Schema {
	return generator.Schema{Fields: []generator.Field{
		{Name: "format", Type: generator.FieldString, Enum: []string{"mp4"}},
	}}
}

func (g *VideoGenerator) EstimateCost(params map[string]any) float64 {
	duration := generator.Number(params, "duration_seconds", defaultVideoDuration)
	if duration < 1 {
		duration = 1
	}
	return g.opts.CostPerUnit * duration
}

func (g *VideoGenerator) GenerateTimeout() time.Duration { return g.opts.Timeout() }

func (g *VideoGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	duration := generator.Number(req.Params, "duration_seconds", defaultVideoDuration)
	fps := int(generator.Number(req.Params, "fps", 24))
	resolution := generator.String(req.Params, "resolution", "720p")

	width, height := 1280, 720
	if resolution == "1080p" {
		width, height = 1920, 1080
	}
	payload := []byte(fmt.Sprintf("static-video duration=%.0f fps=%d res=%s job=%s", duration, fps, resolution, req.JobID))
	return &generator.Result{Outputs: []domain.GeneratedArtifact{{
		Type:   domain.ArtifactTypeVideo,
		Format: "mp4",
		Data:   payload,
		Meta: domain.ArtifactMeta{
			Width:           width,
			Height:          height,
			DurationSeconds: duration,
		},
	}}}, nil
}

// Factories returns the compiled factory set for the built-in
// generators, keyed by generator name.
func Factories() map[string]generator.Factory {
	return map[string]generator.Factory{
		ImageName: NewImage,
		VideoName: NewVideo,
	}
}

func init() {
	generator.RegisterFactory(ImageName, NewImage)
	generator.RegisterFactory(VideoName, NewVideo)
}
