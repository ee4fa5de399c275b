package lineage

import (
	"context"
	"sync"
	"time"

	"genforge/internal/domain"
)

// MemoryStore is an in-memory LineageStore for tests and single-process
// setups.
type MemoryStore struct {
	mu        sync.RWMutex
	inputs    map[string][]domain.InputArtifactRef
	outputs   map[string][]domain.Artifact
	createdAt map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inputs:    make(map[string][]domain.InputArtifactRef),
		outputs:   make(map[string][]domain.Artifact),
		createdAt: make(map[string]time.Time),
	}
}

// AddGeneration seeds a generation node with its input references.
func (s *MemoryStore) AddGeneration(id string, createdAt time.Time, inputs []domain.InputArtifactRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdAt[id] = createdAt
	s.inputs[id] = append([]domain.InputArtifactRef(nil), inputs...)
}

func (s *MemoryStore) InputRefs(_ context.Context, generationID string) ([]domain.InputArtifactRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs, ok := s.inputs[generationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.InputArtifactRef(nil), refs...), nil
}

func (s *MemoryStore) PutOutputs(_ context.Context, generationID string, outputs []domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.outputs[generationID]; done {
		return nil
	}
	s.outputs[generationID] = append([]domain.Artifact(nil), outputs...)
	return nil
}

func (s *MemoryStore) Finalized(_ context.Context, generationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, done := s.outputs[generationID]
	return done, nil
}

func (s *MemoryStore) CreatedAt(_ context.Context, generationID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.createdAt[generationID]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	return at, nil
}

func (s *MemoryStore) Outputs(_ context.Context, generationID string) ([]domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Artifact(nil), s.outputs[generationID]...), nil
}

var _ domain.LineageStore = (*MemoryStore)(nil)
