package static

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"genforge/internal/domain"
	"genforge/internal/generator"
)

func mustImage(t *testing.T, opts generator.Options) generator.Generator {
	t.Helper()
	g, err := NewImage(opts)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	return g
}

func mustVideo(t *testing.T, opts generator.Options) generator.Generator {
	t.Helper()
	g, err := NewVideo(opts)
	if err != nil {
		t.Fatalf("NewVideo: %v", err)
	}
	return g
}

func TestImageCostIsPerImage(t *testing.T) {
	g := mustImage(t, generator.Options{CostPerUnit: 0.02})

	one := g.EstimateCost(map[string]any{"count": 1})
	three := g.EstimateCost(map[string]any{"count": 3})
	if math.Abs(three-3*one) > 1e-9 {
		t.Fatalf("expected 3x per-image cost, got one=%v three=%v", one, three)
	}
}

func TestEstimateCostIsPure(t *testing.T) {
	g := mustImage(t, generator.Options{})
	params := map[string]any{"count": 2, "width": 1024}

	first := g.EstimateCost(params)
	second := g.EstimateCost(params)
	if first != second {
		t.Fatalf("identical inputs gave different costs: %v vs %v", first, second)
	}
}

func TestVideoCostIsLinearInDuration(t *testing.T) {
	g := mustVideo(t, generator.Options{CostPerUnit: 0.05})

	c6 := g.EstimateCost(map[string]any{"duration_seconds": 6})
	c10 := g.EstimateCost(map[string]any{"duration_seconds": 10})
	want := c6 * (10.0 / 6.0)
	if math.Abs(c10-want) > 1e-9 {
		t.Fatalf("duration pricing not linear: cost(6)=%v cost(10)=%v want %v", c6, c10, want)
	}
}

func TestImageGenerateProducesRequestedCount(t *testing.T) {
	g := mustImage(t, generator.Options{})
	res, err := g.Generate(context.Background(), generator.Request{
		JobID:  "job-1",
		Params: map[string]any{"count": 3, "width": 64, "height": 32},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Outputs) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(res.Outputs))
	}
	pngSig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	for i, out := range res.Outputs {
		if out.Type != domain.ArtifactTypeImage || out.Format != "png" {
			t.Fatalf("output %d: unexpected type/format %s/%s", i, out.Type, out.Format)
		}
		if !bytes.HasPrefix(out.Data, pngSig) {
			t.Fatalf("output %d: payload missing png signature", i)
		}
		if out.Meta.Width != 64 || out.Meta.Height != 32 {
			t.Fatalf("output %d: meta dimensions %dx%d", i, out.Meta.Width, out.Meta.Height)
		}
	}
}

func TestImageSchemaRejectsOversizedDimensions(t *testing.T) {
	g := mustImage(t, generator.Options{})
	err := g.InputSchema().Validate(map[string]any{"width": 9000})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "width" {
		t.Fatalf("expected width violation, got %q", verr.Field)
	}
}

func TestVideoGenerateCarriesDurationMeta(t *testing.T) {
	g := mustVideo(t, generator.Options{})
	res, err := g.Generate(context.Background(), generator.Request{
		JobID:  "job-2",
		Params: map[string]any{"duration_seconds": 12, "resolution": "1080p"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(res.Outputs))
	}
	out := res.Outputs[0]
	if out.Format != "mp4" || out.Type != domain.ArtifactTypeVideo {
		t.Fatalf("unexpected type/format %s/%s", out.Type, out.Format)
	}
	if out.Meta.DurationSeconds != 12 {
		t.Fatalf("expected duration 12, got %v", out.Meta.DurationSeconds)
	}
	if out.Meta.Width != 1920 || out.Meta.Height != 1080 {
		t.Fatalf("expected 1080p dimensions, got %dx%d", out.Meta.Width, out.Meta.Height)
	}
}

func TestGenerateHonorsCanceledContext(t *testing.T) {
	g := mustImage(t, generator.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, generator.Request{JobID: "job-3", Params: map[string]any{"count": 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFactoriesInDefaultCatalog(t *testing.T) {
	for _, name := range []string{ImageName, VideoName} {
		if _, ok := generator.DefaultCatalog.Lookup(name); !ok {
			t.Fatalf("catalog missing %s", name)
		}
		if _, ok := Factories()[name]; !ok {
			t.Fatalf("compiled set missing %s", name)
		}
	}
}

func TestNegativeCostRejected(t *testing.T) {
	_, err := NewVideo(generator.Options{CostPerUnit: -1})
	var cerr *domain.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
