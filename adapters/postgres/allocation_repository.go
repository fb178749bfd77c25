package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"trialloc/domain/balance"
	"trialloc/domain/cohort"
	"trialloc/domain/core"
	"trialloc/ports"

	"github.com/jmoiron/sqlx"
)

// AllocationRepositoryImpl implements AllocationRepositoryPort for PostgreSQL
type AllocationRepositoryImpl struct {
	db *sqlx.DB
}

// NewAllocationRepository creates a new PostgreSQL allocation repository
func NewAllocationRepository(db *sqlx.DB) ports.AllocationRepositoryPort {
	return &AllocationRepositoryImpl{db: db}
}

// EnsureSchema creates the allocations table if it does not exist
func (r *AllocationRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS allocations (
			id TEXT PRIMARY KEY,
			cohort_hash TEXT NOT NULL,
			rho DOUBLE PRECISION NOT NULL,
			assignment JSONB NOT NULL,
			score JSONB NOT NULL,
			backend TEXT NOT NULL,
			runtime_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// Save persists an allocation run
func (r *AllocationRepositoryImpl) Save(ctx context.Context, record *ports.AllocationRecord) error {
	assignmentJSON, err := json.Marshal(record.Assignment)
	if err != nil {
		return err
	}
	scoreJSON, err := json.Marshal(record.Score)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO allocations (id, cohort_hash, rho, assignment, score, backend, runtime_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			assignment = EXCLUDED.assignment,
			score = EXCLUDED.score,
			backend = EXCLUDED.backend,
			runtime_ms = EXCLUDED.runtime_ms`,
		record.ID.String(), record.CohortHash.String(), record.Rho,
		assignmentJSON, scoreJSON, record.Backend, record.RuntimeMs,
		record.CreatedAt.Time())

	return err
}

// GetByID retrieves an allocation run by its identifier
func (r *AllocationRepositoryImpl) GetByID(ctx context.Context, id core.AllocationID) (*ports.AllocationRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, cohort_hash, rho, assignment, score, backend, runtime_ms, created_at
		FROM allocations
		WHERE id = $1`, id.String())

	record, err := scanAllocation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError(id)
	}
	return record, err
}

// ListRecent retrieves the most recent allocation runs
func (r *AllocationRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*ports.AllocationRecord, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cohort_hash, rho, assignment, score, backend, runtime_ms, created_at
		FROM allocations
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ports.AllocationRecord
	for rows.Next() {
		record, err := scanAllocation(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanAllocation(scan func(dest ...interface{}) error) (*ports.AllocationRecord, error) {
	var (
		id, cohortHash, backend   string
		rho                       float64
		assignmentJSON, scoreJSON []byte
		runtimeMs                 int64
		createdAt                 time.Time
	)
	if err := scan(&id, &cohortHash, &rho, &assignmentJSON, &scoreJSON, &backend, &runtimeMs, &createdAt); err != nil {
		return nil, err
	}

	var assignment cohort.GroupAssignment
	if err := json.Unmarshal(assignmentJSON, &assignment); err != nil {
		return nil, err
	}
	var score balance.DiscrepancyScore
	if err := json.Unmarshal(scoreJSON, &score); err != nil {
		return nil, err
	}

	return &ports.AllocationRecord{
		ID:         core.AllocationID(id),
		CohortHash: core.CohortHash(cohortHash),
		Rho:        rho,
		Assignment: &assignment,
		Score:      &score,
		Backend:    backend,
		RuntimeMs:  runtimeMs,
		CreatedAt:  core.NewTimestamp(createdAt),
	}, nil
}
