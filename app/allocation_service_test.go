package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"trialloc/adapters/solver"
	"trialloc/domain/balance"
	"trialloc/domain/cohort"
	"trialloc/domain/core"
	"trialloc/internal/testkit"
	"trialloc/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationService_EndToEnd(t *testing.T) {
	raw, err := testkit.GenerateCohort(testkit.CohortSpec{
		Patients: 12, Covariates: 2, Seed: 4,
	})
	require.NoError(t, err)

	kit := testkit.NewTestKit()
	service := NewAllocationService(solver.NewAnnealingSolver(), kit.AllocationRepository())

	result, err := service.Allocate(context.Background(), AllocationRequest{
		Raw:        raw,
		TimeBudget: 5 * time.Second,
		Seed:       1,
		Restarts:   2,
	})
	require.NoError(t, err)

	require.NoError(t, result.Assignment.Validate())
	assert.GreaterOrEqual(t, result.Score.Total, 0.0)
	assert.Equal(t, "annealing", result.Backend)

	// The reported score must match an independent exact re-scoring.
	audit, err := service.Score(context.Background(), raw, result.Assignment, balance.DefaultRho)
	require.NoError(t, err)
	assert.InDelta(t, audit.Total, result.Score.Total, 1e-12)

	// The run is persisted under its ID.
	record, err := kit.AllocationRepository().GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.CohortHash, record.CohortHash)
	assert.Equal(t, result.Assignment.Group1, record.Assignment.Group1)
}

func TestAllocationService_InvalidInputPassesThrough(t *testing.T) {
	// Constant column: standardization must refuse before any solve.
	raw, err := cohort.NewCovariateMatrix(
		[]core.CovariateKey{"age", "dose"},
		nil,
		[][]float64{{30, 5}, {40, 5}, {50, 5}, {60, 5}},
	)
	require.NoError(t, err)

	service := NewAllocationService(solver.NewAnnealingSolver(), nil)
	_, err = service.Allocate(context.Background(), AllocationRequest{Raw: raw})
	assert.ErrorIs(t, err, core.ErrZeroVariance)
}

func TestAllocationService_OddCohortNeedsPolicy(t *testing.T) {
	raw, err := testkit.GenerateCohort(testkit.CohortSpec{
		Patients: 7, Covariates: 1, Seed: 2,
	})
	require.NoError(t, err)

	service := NewAllocationService(solver.NewAnnealingSolver(), nil)

	_, err = service.Allocate(context.Background(), AllocationRequest{Raw: raw})
	assert.ErrorIs(t, err, core.ErrModelConstruction)

	result, err := service.Allocate(context.Background(), AllocationRequest{
		Raw:     raw,
		Builder: balance.BuilderConfig{Rounding: balance.FloorHalf},
		Seed:    1,
	})
	require.NoError(t, err)
	require.NoError(t, result.Assignment.Validate())
}

type failingSolver struct{ err error }

func (f *failingSolver) Solve(context.Context, *balance.BalanceModel, ports.SolveOptions) (*ports.SolverResult, error) {
	return nil, f.err
}

func TestAllocationService_SolverOutcomesAreDistinct(t *testing.T) {
	raw, err := testkit.GenerateCohort(testkit.CohortSpec{
		Patients: 6, Covariates: 1, Seed: 8,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		solver  ports.SolverPort
		wantErr error
	}{
		{
			name:    "infeasible surfaces unchanged",
			solver:  &failingSolver{err: core.ErrSolverInfeasible},
			wantErr: core.ErrSolverInfeasible,
		},
		{
			name:    "unavailable surfaces unchanged",
			solver:  &failingSolver{err: core.NewSolverUnavailableError(errors.New("quota exceeded"))},
			wantErr: core.ErrSolverUnavailable,
		},
		{
			name:    "unknown failures map to unavailable",
			solver:  &failingSolver{err: errors.New("connection reset")},
			wantErr: core.ErrSolverUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewAllocationService(tt.solver, nil)
			_, err := service.Allocate(context.Background(), AllocationRequest{Raw: raw})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type lyingSolver struct{}

// Solve returns values that decode to an undersized group one.
func (l *lyingSolver) Solve(_ context.Context, model *balance.BalanceModel, _ ports.SolveOptions) (*ports.SolverResult, error) {
	values := make([]float64, model.NumVariables())
	values[0] = 1 // only one patient in group one
	return &ports.SolverResult{Values: values, Backend: "lying"}, nil
}

func TestAllocationService_RejectsInvalidSolverAssignment(t *testing.T) {
	raw, err := testkit.GenerateCohort(testkit.CohortSpec{
		Patients: 6, Covariates: 1, Seed: 8,
	})
	require.NoError(t, err)

	service := NewAllocationService(&lyingSolver{}, nil)
	_, err = service.Allocate(context.Background(), AllocationRequest{Raw: raw})
	assert.ErrorIs(t, err, core.ErrGroupSize)
}
