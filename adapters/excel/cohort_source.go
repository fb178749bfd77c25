package excel

import (
	"context"

	"trialloc/domain/cohort"
	"trialloc/ports"
)

// CohortSourceAdapter implements ports.CohortSourcePort on top of a
// covariate table file.
type CohortSourceAdapter struct {
	reader *DataReader
}

// NewCohortSourceAdapter creates a file-backed cohort source
func NewCohortSourceAdapter(filePath string) *CohortSourceAdapter {
	return &CohortSourceAdapter{reader: NewDataReader(filePath)}
}

// LoadCohort reads the file and builds a raw covariate matrix
func (a *CohortSourceAdapter) LoadCohort(ctx context.Context) (*cohort.CovariateMatrix, error) {
	rows, err := a.reader.ReadTable()
	if err != nil {
		return nil, err
	}
	keys, ids, data, err := parseCovariateRows(rows)
	if err != nil {
		return nil, err
	}
	return cohort.NewCovariateMatrix(keys, ids, data)
}

var _ ports.CohortSourcePort = (*CohortSourceAdapter)(nil)
