package cohort

import (
	"fmt"

	"trialloc/domain/core"
)

// CovariateMatrix is the canonical data object for all balance computation.
// One row per patient, one column per covariate. It is built once per trial
// run and treated as read-only afterwards; the evaluator and the model
// builder must consume the same instance so both see identical values.
type CovariateMatrix struct {
	// Core data
	Data          [][]float64 // rows=patients, cols=covariates
	PatientIDs    []core.PatientID
	CovariateKeys []core.CovariateKey

	// True once the columns carry zero mean / unit variance
	Standardized bool

	// Fingerprint for replayability
	Fingerprint core.CohortHash

	CreatedAt core.Timestamp
}

// NewCovariateMatrix constructs a matrix from raw rows and validates its shape.
// Patient IDs are synthesized from row order when ids is nil.
func NewCovariateMatrix(keys []core.CovariateKey, ids []core.PatientID, rows [][]float64) (*CovariateMatrix, error) {
	if len(rows) < 2 {
		return nil, core.NewInvalidInputError(fmt.Sprintf("need at least 2 patients, got %d", len(rows)))
	}
	if len(keys) < 1 {
		return nil, core.NewInvalidInputError("need at least 1 covariate")
	}
	for i, row := range rows {
		if len(row) != len(keys) {
			return nil, core.NewInvalidInputError(
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), len(keys)))
		}
	}

	if ids == nil {
		ids = make([]core.PatientID, len(rows))
		for i := range ids {
			ids[i] = core.PatientID(fmt.Sprintf("patient-%d", i))
		}
	}
	if len(ids) != len(rows) {
		return nil, core.NewInvalidInputError("patient IDs length mismatch with data rows")
	}

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}

	return &CovariateMatrix{
		Data:          rows,
		PatientIDs:    ids,
		CovariateKeys: keys,
		Fingerprint:   core.ComputeCohortHash(names, rows),
		CreatedAt:     core.Now(),
	}, nil
}

// Validate ensures the matrix is internally consistent
func (m *CovariateMatrix) Validate() error {
	if len(m.Data) == 0 {
		return core.ErrEmptyMatrix
	}
	if len(m.PatientIDs) != len(m.Data) {
		return core.NewInvalidInputError("patient IDs length mismatch with data rows")
	}
	colCount := len(m.CovariateKeys)
	for i, row := range m.Data {
		if len(row) != colCount {
			return core.NewInvalidInputError(
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), colCount))
		}
	}
	return nil
}

// Column returns the index for a covariate key
func (m *CovariateMatrix) Column(key core.CovariateKey) (int, bool) {
	for i, k := range m.CovariateKeys {
		if k == key {
			return i, true
		}
	}
	return -1, false
}

// ColumnData returns a copy of the data for column j
func (m *CovariateMatrix) ColumnData(j int) []float64 {
	data := make([]float64, len(m.Data))
	for i, row := range m.Data {
		data[i] = row[j]
	}
	return data
}

// RowCount returns the number of patients (rows)
func (m *CovariateMatrix) RowCount() int {
	return len(m.Data)
}

// ColumnCount returns the number of covariates (columns)
func (m *CovariateMatrix) ColumnCount() int {
	return len(m.CovariateKeys)
}
