package ports

import (
	"context"
	"time"

	"trialloc/domain/balance"
)

// SolveOptions carries the caller-supplied search budget. The solver call
// is the only blocking operation in the allocation flow; everything else
// is pure.
type SolveOptions struct {
	// TimeBudget caps the wall-clock time of one solver invocation.
	TimeBudget time.Duration
	// Seed makes heuristic solvers reproducible.
	Seed int64
	// Restarts is advisory; heuristic backends may run several
	// independent searches within the budget.
	Restarts int
}

// SolverResult is the raw outcome of one solver invocation: values for
// every model variable plus backend metadata. The objective reported here
// is the solver's own energy and must never be presented as the balance
// quality; callers re-score through the discrepancy evaluator.
type SolverResult struct {
	// Values holds one value per model variable, indexed like
	// BalanceModel.Variables.
	Values []float64 `json:"values"`
	// Objective is the backend's objective value at the solution.
	Objective float64 `json:"objective"`
	// Backend names the solver implementation.
	Backend string `json:"backend"`
	// Iterations counts backend search steps, when meaningful.
	Iterations int `json:"iterations"`
	// Runtime is the wall-clock time the solve took.
	Runtime time.Duration `json:"runtime"`
}

// SolverPort submits a BalanceModel to a constrained-optimization backend.
// Implementations must distinguish three outcomes: a result, no feasible
// assignment in the search budget (core.ErrSolverInfeasible), and a failed
// invocation (core.ErrSolverUnavailable). They never retry silently.
type SolverPort interface {
	Solve(ctx context.Context, model *balance.BalanceModel, opts SolveOptions) (*SolverResult, error)
}
