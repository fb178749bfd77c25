package ports

import (
	"context"

	"trialloc/domain/cohort"
)

// CohortSourcePort loads a raw (unstandardized) covariate matrix from an
// external data source. Implementations own all schema concerns; the core
// only requires a numeric matrix with n rows and r >= 1 columns.
type CohortSourcePort interface {
	LoadCohort(ctx context.Context) (*cohort.CovariateMatrix, error)
}
