package cohort

import (
	"math"

	"trialloc/domain/core"

	"github.com/montanaflynn/stats"
)

// zeroVarianceEps guards the stddev division. A column whose population
// stddev falls below this carries no balance information and normalizing
// it would only manufacture NaN/Inf, so it is rejected outright.
const zeroVarianceEps = 1e-12

// Standardize transforms each column to zero mean and unit variance using
// population statistics (divide by n, not n-1). The input matrix is left
// untouched; a new standardized matrix is returned.
//
// Every consumer of covariates (discrepancy evaluator, model builder) must
// be fed the same standardized matrix. Normalizing twice is harmless: a
// standardized column maps onto itself up to floating-point noise.
func Standardize(m *CovariateMatrix) (*CovariateMatrix, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(m.Data) < 2 {
		return nil, core.NewInvalidInputError("standardization needs at least 2 patients")
	}

	n := m.RowCount()
	r := m.ColumnCount()

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, r)
	}

	for j := 0; j < r; j++ {
		column := m.ColumnData(j)

		mean, err := stats.Mean(column)
		if err != nil {
			return nil, core.NewInvalidInputError(err.Error())
		}
		stdDev, err := stats.StandardDeviationPopulation(column)
		if err != nil {
			return nil, core.NewInvalidInputError(err.Error())
		}
		if stdDev < zeroVarianceEps || math.IsNaN(stdDev) {
			return nil, core.NewZeroVarianceError(m.CovariateKeys[j].String(), j)
		}

		for i := 0; i < n; i++ {
			out[i][j] = (m.Data[i][j] - mean) / stdDev
		}
	}

	names := make([]string, r)
	for j, k := range m.CovariateKeys {
		names[j] = k.String()
	}

	return &CovariateMatrix{
		Data:          out,
		PatientIDs:    m.PatientIDs,
		CovariateKeys: m.CovariateKeys,
		Standardized:  true,
		Fingerprint:   core.ComputeCohortHash(names, out),
		CreatedAt:     core.Now(),
	}, nil
}
