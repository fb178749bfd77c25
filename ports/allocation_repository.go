package ports

import (
	"context"

	"trialloc/domain/balance"
	"trialloc/domain/cohort"
	"trialloc/domain/core"
)

// AllocationRecord is the persisted outcome of one allocation run
type AllocationRecord struct {
	ID         core.AllocationID         `json:"id" db:"id"`
	CohortHash core.CohortHash           `json:"cohort_hash" db:"cohort_hash"`
	Rho        float64                   `json:"rho" db:"rho"`
	Assignment *cohort.GroupAssignment   `json:"assignment"`
	Score      *balance.DiscrepancyScore `json:"score"`
	Backend    string                    `json:"backend" db:"backend"`
	RuntimeMs  int64                     `json:"runtime_ms" db:"runtime_ms"`
	CreatedAt  core.Timestamp            `json:"created_at" db:"created_at"`
}

// AllocationRepositoryPort persists allocation runs for audit and review
type AllocationRepositoryPort interface {
	Save(ctx context.Context, record *AllocationRecord) error
	GetByID(ctx context.Context, id core.AllocationID) (*AllocationRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*AllocationRecord, error)
}
