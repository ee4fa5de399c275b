package dispatch

import (
	"context"
	"fmt"

	"genforge/internal/domain"
	"genforge/internal/generator"
)

// StoreResolver resolves input artifact references against recorded
// lineage outputs, handing generators a fetchable URL. It is the
// capability the dispatcher supplies on every Generate call.
type StoreResolver struct {
	store domain.LineageStore
}

// NewStoreResolver creates a StoreResolver over the lineage store.
func NewStoreResolver(store domain.LineageStore) *StoreResolver {
	return &StoreResolver{store: store}
}

// Resolve returns the artifact of ref's generation matching the
// requested artifact type.
func (r *StoreResolver) Resolve(ctx context.Context, ref domain.InputArtifactRef) (generator.Input, error) {
	outputs, err := r.store.Outputs(ctx, ref.GenerationID)
	if err != nil {
		return generator.Input{}, fmt.Errorf("resolve input %s: %w", ref.GenerationID, err)
	}
	for _, a := range outputs {
		if ref.ArtifactType == "" || a.Type == ref.ArtifactType {
			return generator.Input{Ref: ref, URL: a.StorageURL, Format: a.Format}, nil
		}
	}
	return generator.Input{}, fmt.Errorf("resolve input %s: no %s artifact: %w", ref.GenerationID, ref.ArtifactType, domain.ErrNotFound)
}

var _ generator.Resolver = (*StoreResolver)(nil)
