package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

type recordingSink struct {
	events []domain.ProgressEvent
	err    error
}

func (s *recordingSink) UpdateProgress(_ context.Context, ev domain.ProgressEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestPublishOrderPreservedPerJob(t *testing.T) {
	sink := &recordingSink{}
	p := New(sink, nil, zerolog.Nop())
	ctx := context.Background()

	stages := []string{domain.StageStarting, domain.StageGenerating, domain.StageStoring, domain.StageSucceeded}
	for i, stage := range stages {
		p.Publish(ctx, "job-1", stage, i*25, "")
	}

	hist := p.History("job-1")
	if len(hist) != len(stages) {
		t.Fatalf("history length = %d, want %d", len(hist), len(stages))
	}
	for i, stage := range stages {
		if hist[i].Stage != stage {
			t.Fatalf("history[%d].Stage = %q, want %q", i, hist[i].Stage, stage)
		}
	}
	if len(sink.events) != len(stages) {
		t.Fatalf("sink events = %d, want %d", len(sink.events), len(stages))
	}
}

func TestSinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	p := New(sink, nil, zerolog.Nop())

	p.Publish(context.Background(), "job-1", domain.StageGenerating, 50, "halfway")

	hist := p.History("job-1")
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1 despite sink failure", len(hist))
	}
}

func TestPercentClamped(t *testing.T) {
	p := New(nil, nil, zerolog.Nop())
	p.Publish(context.Background(), "j", domain.StageGenerating, -5, "")
	p.Publish(context.Background(), "j", domain.StageGenerating, 150, "")

	hist := p.History("j")
	if hist[0].Percent != 0 || hist[1].Percent != 100 {
		t.Fatalf("percents = %d, %d; want 0, 100", hist[0].Percent, hist[1].Percent)
	}
}

func TestHistoryBounded(t *testing.T) {
	p := New(nil, nil, zerolog.Nop())
	for i := 0; i < defaultMaxHistory+10; i++ {
		p.Publish(context.Background(), "j", domain.StageGenerating, 1, "")
	}
	if got := len(p.History("j")); got != defaultMaxHistory {
		t.Fatalf("history length = %d, want %d", got, defaultMaxHistory)
	}
}

func TestForget(t *testing.T) {
	p := New(nil, nil, zerolog.Nop())
	p.Publish(context.Background(), "j", domain.StageSucceeded, 100, "")
	p.Forget("j")
	if len(p.History("j")) != 0 {
		t.Fatal("Forget should drop history")
	}
}
