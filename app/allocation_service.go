package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trialloc/domain/balance"
	"trialloc/domain/cohort"
	"trialloc/domain/core"
	"trialloc/ports"
)

// AllocationService orchestrates one trial allocation run:
// standardize -> build model -> solve -> decode -> re-validate -> re-score.
// The solver's energy is never reported as balance quality; every accepted
// assignment goes through the exact discrepancy evaluator.
type AllocationService struct {
	solver     ports.SolverPort
	repository ports.AllocationRepositoryPort
}

// AllocationRequest defines the inputs for one allocation run
type AllocationRequest struct {
	Raw *cohort.CovariateMatrix
	// Rho weights second-moment imbalance; defaults to balance.DefaultRho.
	Rho *float64
	// Builder controls moment tracking, slack bounds and odd-cohort policy.
	Builder balance.BuilderConfig
	// TimeBudget caps the solver invocation.
	TimeBudget time.Duration
	// Seed drives heuristic backends deterministically.
	Seed int64
	// Restarts is passed through to the solver.
	Restarts int
	// AllocationID is optional; generated when empty.
	AllocationID core.AllocationID
}

// AllocationResult is the outcome of one run
type AllocationResult struct {
	ID         core.AllocationID         `json:"id"`
	CohortHash core.CohortHash           `json:"cohort_hash"`
	Assignment *cohort.GroupAssignment   `json:"assignment"`
	Score      *balance.DiscrepancyScore `json:"score"`
	Backend    string                    `json:"backend"`
	Iterations int                       `json:"iterations"`
	RuntimeMs  int64                     `json:"runtime_ms"`
}

// NewAllocationService creates an allocation service. The repository may
// be nil when persistence is not wired (CLI one-shot runs).
func NewAllocationService(solver ports.SolverPort, repository ports.AllocationRepositoryPort) *AllocationService {
	return &AllocationService{solver: solver, repository: repository}
}

// Allocate runs the full two-stage contract. Error families the caller can
// distinguish: invalid input (bad data), model construction (bad config),
// solver unavailable (invocation failed), solver infeasible (no balanced
// partition in budget).
func (s *AllocationService) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	started := time.Now()

	rho := balance.DefaultRho
	if req.Rho != nil {
		rho = *req.Rho
	}

	// One standardization path feeds both the model builder and the
	// evaluator; a split here is the correctness bug this service exists
	// to prevent.
	w, err := cohort.Standardize(req.Raw)
	if err != nil {
		return nil, err
	}

	model, err := balance.Build(w, req.Builder)
	if err != nil {
		return nil, err
	}

	solveResult, err := s.solver.Solve(ctx, model, ports.SolveOptions{
		TimeBudget: req.TimeBudget,
		Seed:       req.Seed,
		Restarts:   req.Restarts,
	})
	if err != nil {
		// Solver outcomes pass through unchanged; retry policy belongs to
		// the caller, not here.
		if errors.Is(err, core.ErrSolverInfeasible) || errors.Is(err, core.ErrSolverUnavailable) {
			return nil, err
		}
		return nil, core.NewSolverUnavailableError(err)
	}

	assignment, err := model.Decode(solveResult.Values)
	if err != nil {
		return nil, fmt.Errorf("solver returned an invalid assignment: %w", err)
	}

	score, err := balance.Discrepancy(w, assignment, rho)
	if err != nil {
		return nil, fmt.Errorf("solver assignment failed re-scoring: %w", err)
	}

	id := req.AllocationID
	if id == "" {
		id = core.AllocationID(core.NewID())
	}

	result := &AllocationResult{
		ID:         id,
		CohortHash: w.Fingerprint,
		Assignment: assignment,
		Score:      score,
		Backend:    solveResult.Backend,
		Iterations: solveResult.Iterations,
		RuntimeMs:  time.Since(started).Milliseconds(),
	}

	if s.repository != nil {
		record := &ports.AllocationRecord{
			ID:         result.ID,
			CohortHash: result.CohortHash,
			Rho:        rho,
			Assignment: assignment,
			Score:      score,
			Backend:    result.Backend,
			RuntimeMs:  result.RuntimeMs,
			CreatedAt:  core.Now(),
		}
		if err := s.repository.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to persist allocation: %w", err)
		}
	}

	return result, nil
}

// Score validates and scores a caller-supplied assignment against the raw
// cohort without solving. Used to audit externally produced partitions.
func (s *AllocationService) Score(ctx context.Context, raw *cohort.CovariateMatrix, assignment *cohort.GroupAssignment, rho float64) (*balance.DiscrepancyScore, error) {
	w, err := cohort.Standardize(raw)
	if err != nil {
		return nil, err
	}
	return balance.Discrepancy(w, assignment, rho)
}
