// Package lineage maintains the directed reference graph between
// generations: which artifacts a job consumed and which it produced.
package lineage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"genforge/internal/domain"
)

// Tracker records input/output artifact relationships per generation
// and answers ancestry queries over them.
type Tracker struct {
	store  domain.LineageStore
	logger zerolog.Logger
}

// New creates a Tracker over the given store.
func New(store domain.LineageStore, logger zerolog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// RecordOutputs associates outputs with a generation id. Idempotent: a
// second call for an already-finalized generation is a no-op, so a
// crash-and-retry between generator success and finalize never writes
// duplicate edges. The generation's recorded input refs are re-checked
// against the lineage invariants before anything is written, so a bad
// edge never enters the graph even if submission skipped validation.
func (t *Tracker) RecordOutputs(ctx context.Context, generationID string, outputs []domain.Artifact) error {
	done, err := t.store.Finalized(ctx, generationID)
	if err != nil {
		return fmt.Errorf("lineage: check finalized: %w", err)
	}
	if done {
		t.logger.Debug().Str("generation_id", generationID).Msg("lineage: outputs already recorded")
		return nil
	}
	refs, err := t.store.InputRefs(ctx, generationID)
	if err != nil {
		return fmt.Errorf("lineage: inputs of %s: %w", generationID, err)
	}
	if len(refs) > 0 {
		createdAt, err := t.store.CreatedAt(ctx, generationID)
		if err != nil {
			return fmt.Errorf("lineage: created at of %s: %w", generationID, err)
		}
		if err := t.validateRefs(ctx, generationID, createdAt, refs); err != nil {
			return err
		}
	}
	if err := t.store.PutOutputs(ctx, generationID, outputs); err != nil {
		return fmt.Errorf("lineage: put outputs: %w", err)
	}
	return nil
}

// ValidateInputs checks the lineage invariants for a generation about to
// consume refs: every referenced generation exists, none is the
// generation itself or has it among its ancestors, and every referenced
// generation was created before the consumer.
func (t *Tracker) ValidateInputs(ctx context.Context, job *domain.Job) error {
	return t.validateRefs(ctx, job.ID, job.CreatedAt, job.InputArtifacts)
}

func (t *Tracker) validateRefs(ctx context.Context, consumerID string, consumerCreatedAt time.Time, refs []domain.InputArtifactRef) error {
	for _, ref := range refs {
		if ref.GenerationID == consumerID {
			return fmt.Errorf("lineage: generation %s references itself: %w", consumerID, domain.ErrLineageCycle)
		}
		createdAt, err := t.store.CreatedAt(ctx, ref.GenerationID)
		if err != nil {
			return fmt.Errorf("lineage: input %s: %w", ref.GenerationID, err)
		}
		if !createdAt.Before(consumerCreatedAt) {
			return fmt.Errorf("lineage: input %s was not created before %s", ref.GenerationID, consumerID)
		}
		ancestors, err := t.Ancestors(ctx, ref.GenerationID)
		if err != nil {
			return err
		}
		for _, a := range ancestors {
			if a == consumerID {
				return fmt.Errorf("lineage: generation %s is an ancestor of its input %s: %w", consumerID, ref.GenerationID, domain.ErrLineageCycle)
			}
		}
	}
	return nil
}

// Ancestors returns the transitive closure of generations reachable
// through input edges from generationID, sorted. A cycle anywhere on the
// walk is rejected with ErrLineageCycle rather than looped on.
func (t *Tracker) Ancestors(ctx context.Context, generationID string) ([]string, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	ancestors := make(map[string]bool)

	var walk func(id string) error
	walk = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("lineage: generation %s: %w", id, domain.ErrLineageCycle)
		case done:
			return nil
		}
		state[id] = visiting
		refs, err := t.store.InputRefs(ctx, id)
		if err != nil {
			return fmt.Errorf("lineage: inputs of %s: %w", id, err)
		}
		for _, ref := range refs {
			ancestors[ref.GenerationID] = true
			if err := walk(ref.GenerationID); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	if err := walk(generationID); err != nil {
		return nil, err
	}

	delete(ancestors, generationID)
	out := make([]string, 0, len(ancestors))
	for id := range ancestors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
