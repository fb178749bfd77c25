package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"trialloc/adapters/excel"
	"trialloc/adapters/solver"
	"trialloc/app"
	"trialloc/domain/balance"
	"trialloc/internal/report"
	"trialloc/ports"
)

// One-shot allocation from a covariate table file. Prints the assignment
// as JSON and the balance report as markdown.
func main() {
	var (
		file     = flag.String("file", "", "covariate table (.xlsx or .csv)")
		rho      = flag.Float64("rho", balance.DefaultRho, "second-moment weight in [0,1]")
		seed     = flag.Int64("seed", 1, "solver seed")
		budget   = flag.Duration("budget", 5*time.Second, "solver time budget")
		restarts = flag.Int("restarts", 4, "solver restarts")
		oddOK    = flag.Bool("allow-odd", false, "allow odd cohorts (group one gets floor(n/2))")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: cli -file cohort.xlsx [-rho 0.5] [-budget 5s]")
		os.Exit(2)
	}

	ctx := context.Background()

	raw, err := excel.NewCohortSourceAdapter(*file).LoadCohort(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load cohort: %v\n", err)
		os.Exit(1)
	}

	builderCfg := balance.BuilderConfig{}
	if *oddOK {
		builderCfg.Rounding = balance.FloorHalf
	}

	service := app.NewAllocationService(solver.NewAnnealingSolver(), nil)
	result, err := service.Allocate(ctx, app.AllocationRequest{
		Raw:        raw,
		Rho:        rho,
		Builder:    builderCfg,
		TimeBudget: *budget,
		Seed:       *seed,
		Restarts:   *restarts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "allocation failed: %v\n", err)
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	record := &ports.AllocationRecord{
		ID:         result.ID,
		CohortHash: result.CohortHash,
		Rho:        *rho,
		Assignment: result.Assignment,
		Score:      result.Score,
		Backend:    result.Backend,
		RuntimeMs:  result.RuntimeMs,
	}
	fmt.Println(report.RenderMarkdown(record, raw))
}
