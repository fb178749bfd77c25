package solver

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"trialloc/domain/balance"
	"trialloc/domain/core"
	"trialloc/ports"

	"golang.org/x/sync/errgroup"
)

// AnnealingSolver is a local search backend for BalanceModel instances:
// simulated annealing over equal-split partitions with pairwise swap
// moves. Swapping one member of each group preserves the group-size
// equality by construction, so the search only ever visits feasible
// splits. It is the default backend when no external solver is wired in.
type AnnealingSolver struct {
	// InitialTemp and Cooling control the geometric annealing schedule.
	InitialTemp float64
	Cooling     float64
	// SweepsPerRestart bounds the move count of one restart.
	SweepsPerRestart int
}

// NewAnnealingSolver returns a solver with the default schedule
func NewAnnealingSolver() *AnnealingSolver {
	return &AnnealingSolver{
		InitialTemp:      1.0,
		Cooling:          0.995,
		SweepsPerRestart: 4000,
	}
}

type candidate struct {
	values     []float64
	energy     float64
	iterations int
}

// Solve runs parallel independent annealing restarts within the caller's
// time budget and returns the best candidate found. Restarts are seeded
// deterministically from opts.Seed.
func (s *AnnealingSolver) Solve(ctx context.Context, model *balance.BalanceModel, opts ports.SolveOptions) (*ports.SolverResult, error) {
	if model == nil || model.Patients < 2 {
		return nil, core.NewSolverUnavailableError(core.NewInvalidInputError("model has no patients"))
	}

	if opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeBudget)
		defer cancel()
	}

	restarts := opts.Restarts
	if restarts < 1 {
		restarts = 4
	}

	contributions := momentContributions(model)
	started := time.Now()

	var mu sync.Mutex
	best := candidate{energy: math.Inf(1)}
	totalIterations := 0

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < restarts; i++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(i)*7919))
		g.Go(func() error {
			c := s.restart(gctx, model, contributions, rng)
			mu.Lock()
			totalIterations += c.iterations
			if c.energy < best.energy {
				best = c
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, core.NewSolverUnavailableError(err)
	}

	if math.IsInf(best.energy, 1) {
		// Budget expired before a single candidate was evaluated.
		return nil, core.NewSolverUnavailableError(ctx.Err())
	}

	// A candidate whose tight slack exceeds its variable bound means the
	// caller's bound map cut the search space below every equal split.
	for _, m := range model.Moments {
		slack := model.SlackVariable(m.Index)
		if best.values[slack.Index] > slack.UpperBound+1e-9 {
			return nil, core.ErrSolverInfeasible
		}
	}

	return &ports.SolverResult{
		Values:     best.values,
		Objective:  best.energy,
		Backend:    "annealing",
		Iterations: totalIterations,
		Runtime:    time.Since(started),
	}, nil
}

// momentContributions recovers each moment's per-patient coefficients from
// the model's upper-bound constraint rows.
func momentContributions(model *balance.BalanceModel) [][]float64 {
	out := make([][]float64, len(model.Moments))
	for _, constraint := range model.Constraints {
		if constraint.Sense != balance.SenseLE {
			continue
		}
		for _, m := range model.Moments {
			slackIdx := model.SlackVariable(m.Index).Index
			if constraint.Coeffs[slackIdx] != -1 || out[m.Index] != nil {
				continue
			}
			// The upper-bound row carries +c, the lower-bound row -c;
			// take the first row seen for this slack and normalize below.
			coeffs := make([]float64, model.Patients)
			copy(coeffs, constraint.Coeffs[:model.Patients])
			out[m.Index] = coeffs
			break
		}
	}
	return out
}

func (s *AnnealingSolver) restart(ctx context.Context, model *balance.BalanceModel, contributions [][]float64, rng *rand.Rand) candidate {
	n := model.Patients

	// Random equal split: shuffle, first half into group one.
	perm := rng.Perm(n)
	x := make([]float64, n)
	for i := 0; i < model.GroupSize; i++ {
		x[perm[i]] = 1
	}

	// Running moment sums allow O(#moments) move evaluation.
	sums := make([]float64, len(contributions))
	for m, c := range contributions {
		for k := 0; k < n; k++ {
			sums[m] += c[k] * x[k]
		}
	}

	energy := energyOf(model, x, sums)
	bestX := append([]float64(nil), x...)
	bestSums := append([]float64(nil), sums...)
	bestEnergy := energy

	temp := s.InitialTemp
	iterations := 0

	for sweep := 0; sweep < s.SweepsPerRestart; sweep++ {
		if sweep%64 == 0 && ctx.Err() != nil {
			break
		}

		a := pickMember(rng, x, 1)
		b := pickMember(rng, x, 0)

		// Trial swap: a leaves group one, b enters.
		for m, c := range contributions {
			sums[m] += c[b] - c[a]
		}
		x[a], x[b] = 0, 1
		trial := energyOf(model, x, sums)
		iterations++

		accept := trial <= energy || rng.Float64() < math.Exp((energy-trial)/math.Max(temp, 1e-12))
		if accept {
			energy = trial
			if energy < bestEnergy {
				bestEnergy = energy
				copy(bestX, x)
				copy(bestSums, sums)
			}
		} else {
			// Revert.
			x[a], x[b] = 1, 0
			for m, c := range contributions {
				sums[m] -= c[b] - c[a]
			}
		}

		temp *= s.Cooling
	}

	return candidate{
		values:     assembleValues(model, bestX, bestSums),
		energy:     bestEnergy,
		iterations: iterations,
	}
}

// energyOf is the model objective with slacks held tight at |sum_k c_k x_k|
func energyOf(model *balance.BalanceModel, x []float64, sums []float64) float64 {
	var total float64
	for _, s := range sums {
		total += math.Abs(s)
	}
	for k := 0; k < model.Patients; k++ {
		total += model.Objective[k] * x[k]
	}
	return total
}

func pickMember(rng *rand.Rand, x []float64, label float64) int {
	for {
		k := rng.Intn(len(x))
		if x[k] == label {
			return k
		}
	}
}

// assembleValues lays out a full variable vector: patient binaries first,
// then tight slack values, matching the model's variable block order.
func assembleValues(model *balance.BalanceModel, x []float64, sums []float64) []float64 {
	values := make([]float64, model.NumVariables())
	copy(values, x)
	for m, s := range sums {
		values[model.Patients+m] = math.Abs(s)
	}
	return values
}
