package testkit

import (
	"fmt"
	"math/rand"

	"trialloc/domain/cohort"
	"trialloc/domain/core"
)

// CohortSpec describes a synthetic patient cohort
type CohortSpec struct {
	Patients   int
	Covariates int
	Seed       int64
	// Correlated injects cross-covariate structure so second-moment
	// balance is non-trivial.
	Correlated bool
}

// GenerateCohort builds a deterministic synthetic covariate matrix.
// Covariates are drawn at mixed scales so standardization actually has
// work to do.
func GenerateCohort(spec CohortSpec) (*cohort.CovariateMatrix, error) {
	if spec.Patients < 2 || spec.Covariates < 1 {
		return nil, fmt.Errorf("cohort spec needs at least 2 patients and 1 covariate")
	}

	rng := rand.New(rand.NewSource(spec.Seed))

	keys := make([]core.CovariateKey, spec.Covariates)
	scales := make([]float64, spec.Covariates)
	offsets := make([]float64, spec.Covariates)
	for j := range keys {
		keys[j] = core.CovariateKey(fmt.Sprintf("cov_%d", j))
		scales[j] = 1 + 10*rng.Float64()
		offsets[j] = -50 + 100*rng.Float64()
	}

	rows := make([][]float64, spec.Patients)
	for i := range rows {
		row := make([]float64, spec.Covariates)
		base := rng.NormFloat64()
		for j := range row {
			v := rng.NormFloat64()
			if spec.Correlated {
				v = 0.6*base + 0.8*v
			}
			row[j] = offsets[j] + scales[j]*v
		}
		rows[i] = row
	}

	ids := make([]core.PatientID, spec.Patients)
	for i := range ids {
		ids[i] = core.PatientID(fmt.Sprintf("synthetic-%04d", i))
	}

	return cohort.NewCovariateMatrix(keys, ids, rows)
}

// ReferenceCohort is the canned n=4, r=1 cohort from the evaluator's
// worked example: raw values 1,2,3,4 standardize to mean 0, stddev 1.
func ReferenceCohort() *cohort.CovariateMatrix {
	m, err := cohort.NewCovariateMatrix(
		[]core.CovariateKey{"age"},
		nil,
		[][]float64{{1}, {2}, {3}, {4}},
	)
	if err != nil {
		panic(err)
	}
	return m
}
