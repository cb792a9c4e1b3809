// Package store provides the persistence adapters behind the pipeline's
// capability ports: an in-memory implementation for tests and single-node
// demos, and a postgres/pgvector implementation for real deployments.
package store

import (
	"context"
	"sort"
	"sync"

	"unify/internal/candidates"
	"unify/internal/domain"
	"unify/internal/scoring"
	"unify/internal/vectors"
	id "unify/pkg/domain"
	"unify/pkg/sentinel"
)

// Memory is an in-memory entity store with exact-match indexes and
// brute-force k-NN. Append-only; safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	entities map[id.EntityID]domain.StoredEntity
	order    []id.EntityID // ingestion order, for deterministic scans
	byField  map[candidates.BlockField]map[string][]id.EntityID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entities: make(map[id.EntityID]domain.StoredEntity),
		byField: map[candidates.BlockField]map[string][]id.EntityID{
			candidates.BlockPhone: {},
			candidates.BlockEmail: {},
			candidates.BlockGovID: {},
		},
	}
}

// Append stores a new entity and indexes its blocking fields.
func (m *Memory) Append(_ context.Context, entity domain.StoredEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity.ID] = entity
	m.order = append(m.order, entity.ID)
	m.index(candidates.BlockPhone, entity.Record.PhoneE164, entity.ID)
	m.index(candidates.BlockEmail, entity.Record.Email, entity.ID)
	m.index(candidates.BlockGovID, entity.Record.GovID, entity.ID)
	return nil
}

func (m *Memory) index(field candidates.BlockField, value *string, entityID id.EntityID) {
	if v, ok := domain.Str(value); ok {
		m.byField[field][v] = append(m.byField[field][v], entityID)
	}
}

// Entity fetches a stored entity by identifier.
func (m *Memory) Entity(_ context.Context, entityID id.EntityID) (domain.StoredEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entity, ok := m.entities[entityID]
	if !ok {
		return domain.StoredEntity{}, sentinel.ErrNotFound
	}
	return entity, nil
}

// LookupExact returns entities whose normalized field equals value.
func (m *Memory) LookupExact(_ context.Context, field candidates.BlockField, value string) ([]id.EntityID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byField[field][value]
	return append([]id.EntityID{}, ids...), nil
}

// TopK brute-force scans all vectors by cosine distance. Fine at demo scale;
// postgres + pgvector carries real volumes.
func (m *Memory) TopK(ctx context.Context, vec []float32, k int) ([]candidates.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]candidates.Neighbor, 0, len(m.order))
	for _, entityID := range m.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, candidates.Neighbor{
			ID:       entityID,
			Distance: vectors.CosineDistance(vec, m.entities[entityID].Vector),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ID.String() < neighbors[j].ID.String()
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Len reports how many entities are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// MemoryModels is an in-memory scoring model archive.
type MemoryModels struct {
	mu     sync.RWMutex
	models []*scoring.Model
}

// NewMemoryModels creates an empty model archive.
func NewMemoryModels() *MemoryModels {
	return &MemoryModels{}
}

// Save archives a published model.
func (m *MemoryModels) Save(_ context.Context, model *scoring.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = append(m.models, model)
	return nil
}

// Latest returns the most recently saved model, or sentinel.ErrNotFound.
func (m *MemoryModels) Latest(_ context.Context) (*scoring.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.models) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return m.models[len(m.models)-1], nil
}
