// Package static provides deterministic built-in generators. They
// exercise the full plugin contract, schema validation, cost estimation
// and artifact production, without calling any vendor API, which makes
// them the default choice for local development and integration tests.
package static

import (
	"context"
	"fmt"
	"time"

	"genforge/internal/domain"
	"genforge/internal/generator"
)

const (
	ImageName = "static-image"
	VideoName = "static-video"

	defaultImageCost = 0.01
	defaultImageSide = 512
	maxImageSide     = 4096
	maxImageCount    = 8
)

// ImageGenerator produces solid synthetic PNG payloads. Pricing is
// per image: cost = cost_per_unit * count.
type ImageGenerator struct {
	opts generator.Options
}

// NewImage constructs the static image generator.
func NewImage(opts generator.Options) (generator.Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.CostPerUnit == 0 {
		opts.CostPerUnit = defaultImageCost
	}
	return &ImageGenerator{opts: opts}, nil
}

func (g *ImageGenerator) Name() string { return ImageName }
func (g *ImageGenerator) ArtifactType() domain.ArtifactType { return domain.ArtifactTypeImage }

func (g *ImageGenerator) InputSchema() generator.Schema {
	return generator.Schema{Fields: []generator.Field{
		{Name: "width", Type: generator.FieldNumber, Min: generator.Float64Ptr(16), Max: generator.Float64Ptr(maxImageSide)},
		{Name: "height", Type: generator.FieldNumber, Min: generator.Float64Ptr(16), Max: generator.Float64Ptr(maxImageSide)},
		{Name: "count", Type: generator.FieldNumber, Min: generator.Float64Ptr(1), Max: generator.Float64Ptr(maxImageCount)},
		{Name: "color", Type: generator.FieldString},
	}}
}

func (g *ImageGenerator) OutputSchema() generator.Schema {
	return generator.Schema{Fields: []generator.Field{
		{Name: "format", Type: generator.FieldString, Enum: []string{"png"}},
	}}
}

func (g *ImageGenerator) EstimateCost(params map[string]any) float64 {
	count := generator.Number(params, "count", 1)
	if count < 1 {
		count = 1
	}
	return g.opts.CostPerUnit * count
}

func (g *ImageGenerator) GenerateTimeout() time.Duration { return g.opts.Timeout() }

func (g *ImageGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Result, error) {
	width := int(generator.Number(req.Params, "width", defaultImageSide))
	height := int(generator.Number(req.Params, "height", defaultImageSide))
	count := int(generator.Number(req.Params, "count", 1))
	color := generator.String(req.Params, "color", "7f7f7f")

	res := &generator.Result{}
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res.Outputs = append(res.Outputs, domain.GeneratedArtifact{
			Type:   domain.ArtifactTypeImage,
			Format: "png",
			Data:   imagePayload(width, height, color, i),
			Meta: domain.ArtifactMeta{
				Width:  width,
				Height: height,
			},
		})
	}
	return res, nil
}

// imagePayload builds a deterministic byte payload for the given
// dimensions. It carries the PNG signature so content sniffing picks
// the right type, followed by a synthetic body.
func imagePayload(width, height int, color string, index int) []byte {
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	body := fmt.Sprintf("static-image %dx%d color=%s index=%d", width, height, color, index)
	return append(sig, []byte(body)...)
}
