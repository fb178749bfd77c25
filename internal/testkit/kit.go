package testkit

import (
	"context"
	"sort"
	"sync"

	"trialloc/domain/core"
	"trialloc/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repository *InMemoryAllocationRepository
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{repository: NewInMemoryAllocationRepository()}
}

// AllocationRepository returns the shared in-memory repository
func (t *TestKit) AllocationRepository() ports.AllocationRepositoryPort {
	return t.repository
}

// InMemoryAllocationRepository is a map-backed AllocationRepositoryPort
// for tests and demo runs without a database.
type InMemoryAllocationRepository struct {
	mu      sync.RWMutex
	records map[core.AllocationID]*ports.AllocationRecord
}

// NewInMemoryAllocationRepository creates an empty in-memory repository
func NewInMemoryAllocationRepository() *InMemoryAllocationRepository {
	return &InMemoryAllocationRepository{
		records: make(map[core.AllocationID]*ports.AllocationRecord),
	}
}

func (r *InMemoryAllocationRepository) Save(_ context.Context, record *ports.AllocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *InMemoryAllocationRepository) GetByID(_ context.Context, id core.AllocationID) (*ports.AllocationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, core.NewNotFoundError(id)
	}
	return record, nil
}

func (r *InMemoryAllocationRepository) ListRecent(_ context.Context, limit int) ([]*ports.AllocationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*ports.AllocationRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[j].CreatedAt.Before(records[i].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

var _ ports.AllocationRepositoryPort = (*InMemoryAllocationRepository)(nil)
