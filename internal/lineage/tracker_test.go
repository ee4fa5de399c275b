package lineage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

func ref(id string) domain.InputArtifactRef {
	return domain.InputArtifactRef{GenerationID: id, Role: "source", ArtifactType: domain.ArtifactTypeImage}
}

func TestAncestorsTransitiveClosure(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	store.AddGeneration("root", base, nil)
	store.AddGeneration("mid-a", base.Add(time.Minute), []domain.InputArtifactRef{ref("root")})
	store.AddGeneration("mid-b", base.Add(2*time.Minute), []domain.InputArtifactRef{ref("root")})
	store.AddGeneration("leaf", base.Add(3*time.Minute), []domain.InputArtifactRef{ref("mid-a"), ref("mid-b")})

	tr := New(store, zerolog.Nop())
	got, err := tr.Ancestors(context.Background(), "leaf")
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	want := []string{"mid-a", "mid-b", "root"}
	if len(got) != len(want) {
		t.Fatalf("ancestors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ancestors = %v, want %v", got, want)
		}
	}
	for _, a := range got {
		if a == "leaf" {
			t.Fatal("walk revisited the starting generation")
		}
	}
}

func TestAncestorsRejectsCycle(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	store.AddGeneration("a", base, []domain.InputArtifactRef{ref("b")})
	store.AddGeneration("b", base, []domain.InputArtifactRef{ref("c")})
	store.AddGeneration("c", base, []domain.InputArtifactRef{ref("a")})

	tr := New(store, zerolog.Nop())
	_, err := tr.Ancestors(context.Background(), "a")
	if !errors.Is(err, domain.ErrLineageCycle) {
		t.Fatalf("err = %v, want ErrLineageCycle", err)
	}
}

func TestAncestorsDiamondIsNotACycle(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	store.AddGeneration("root", base, nil)
	store.AddGeneration("l", base, []domain.InputArtifactRef{ref("root")})
	store.AddGeneration("r", base, []domain.InputArtifactRef{ref("root")})
	store.AddGeneration("top", base, []domain.InputArtifactRef{ref("l"), ref("r")})

	tr := New(store, zerolog.Nop())
	if _, err := tr.Ancestors(context.Background(), "top"); err != nil {
		t.Fatalf("diamond should not be rejected: %v", err)
	}
}

func TestRecordOutputsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	store.AddGeneration("g", time.Now(), nil)
	tr := New(store, zerolog.Nop())

	outputs := []domain.Artifact{{ID: "art-1", GenerationID: "g", Type: domain.ArtifactTypeImage}}
	if err := tr.RecordOutputs(context.Background(), "g", outputs); err != nil {
		t.Fatalf("first RecordOutputs: %v", err)
	}
	if err := tr.RecordOutputs(context.Background(), "g", outputs); err != nil {
		t.Fatalf("second RecordOutputs should be a no-op: %v", err)
	}
	recorded, err := store.Outputs(context.Background(), "g")
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("outputs recorded = %d, want 1", len(recorded))
	}
}

func TestRecordOutputsRejectsSelfReference(t *testing.T) {
	store := NewMemoryStore()
	store.AddGeneration("self", time.Now(), []domain.InputArtifactRef{ref("self")})
	tr := New(store, zerolog.Nop())

	outputs := []domain.Artifact{{ID: "art-1", GenerationID: "self", Type: domain.ArtifactTypeImage}}
	err := tr.RecordOutputs(context.Background(), "self", outputs)
	if !errors.Is(err, domain.ErrLineageCycle) {
		t.Fatalf("err = %v, want ErrLineageCycle", err)
	}
	recorded, err := store.Outputs(context.Background(), "self")
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	if len(recorded) != 0 {
		t.Fatalf("outputs recorded for a self-referencing generation: %v", recorded)
	}
}

func TestRecordOutputsRejectsNonChronologicalInput(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	store.AddGeneration("later", base.Add(time.Minute), nil)
	store.AddGeneration("g", base, []domain.InputArtifactRef{ref("later")})
	tr := New(store, zerolog.Nop())

	err := tr.RecordOutputs(context.Background(), "g", nil)
	if err == nil {
		t.Fatal("input created after its consumer should be rejected")
	}
	if done, _ := store.Finalized(context.Background(), "g"); done {
		t.Fatal("outputs recorded despite invalid inputs")
	}
}

func TestValidateInputs(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now().Add(-time.Hour)
	store.AddGeneration("older", base, nil)
	tr := New(store, zerolog.Nop())

	job := &domain.Job{
		ID:             "new",
		CreatedAt:      base.Add(time.Minute),
		InputArtifacts: []domain.InputArtifactRef{ref("older")},
	}
	if err := tr.ValidateInputs(context.Background(), job); err != nil {
		t.Fatalf("valid inputs rejected: %v", err)
	}

	selfJob := &domain.Job{
		ID:             "self",
		CreatedAt:      base,
		InputArtifacts: []domain.InputArtifactRef{ref("self")},
	}
	if err := tr.ValidateInputs(context.Background(), selfJob); !errors.Is(err, domain.ErrLineageCycle) {
		t.Fatalf("self reference err = %v, want ErrLineageCycle", err)
	}

	futureJob := &domain.Job{
		ID:             "early",
		CreatedAt:      base.Add(-time.Minute),
		InputArtifacts: []domain.InputArtifactRef{ref("older")},
	}
	if err := tr.ValidateInputs(context.Background(), futureJob); err == nil {
		t.Fatal("input created after consumer should be rejected")
	}

	missingJob := &domain.Job{
		ID:             "orphan",
		CreatedAt:      time.Now(),
		InputArtifacts: []domain.InputArtifactRef{ref("nope")},
	}
	if err := tr.ValidateInputs(context.Background(), missingJob); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing input err = %v, want ErrNotFound", err)
	}
}
