package balance

import (
	"fmt"
	"math"

	"trialloc/domain/cohort"
	"trialloc/domain/core"

	"gonum.org/v1/gonum/floats"
)

// DefaultRho is the default weight of second-moment imbalance relative to
// first-moment imbalance.
const DefaultRho = 0.5

// DiscrepancyScore is the exact balance quality of an assignment. Solver
// objective values are never reported; every accepted assignment is
// re-scored through Discrepancy.
type DiscrepancyScore struct {
	Total        float64 `json:"total"`
	FirstMoment  float64 `json:"first_moment"`
	SecondMoment float64 `json:"second_moment"`
	Rho          float64 `json:"rho"`
}

// Discrepancy scores the covariate imbalance of a two-group partition over
// the standardized matrix w:
//
//	score = sum_i |mu_i| + rho * sum_i |var_ii| + 2*rho * sum_{i<j} |cov_ij|
//
// where mu_i = W[:,i].d/n and the second moments are (W[:,i]*W[:,j]).d/n
// for the signed membership difference d = group1 - group2. The factor 2
// accounts for the two symmetric entries each unordered pair represents.
//
// Validation runs before any computation: a size or coverage violation is
// a refusal to score, not a degraded number.
func Discrepancy(w *cohort.CovariateMatrix, assignment *cohort.GroupAssignment, rho float64) (*DiscrepancyScore, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if rho < 0 || rho > 1 {
		return nil, core.NewInvalidInputError(fmt.Sprintf("rho %v outside [0,1]", rho))
	}
	n := w.RowCount()
	if assignment.Size() != n {
		return nil, core.NewInvalidInputError(
			fmt.Sprintf("assignment covers %d patients, matrix has %d", assignment.Size(), n))
	}
	if err := assignment.Validate(); err != nil {
		return nil, err
	}

	// Group labels are arbitrary; canonicalize so patient 0 sits in group
	// one. The absolute values below make this a no-op on the score.
	canonical := assignment
	if canonical.Group1[0] != 1 {
		canonical = canonical.Swapped()
	}
	d := canonical.SignedDifference()

	r := w.ColumnCount()
	columns := make([][]float64, r)
	for j := 0; j < r; j++ {
		columns[j] = w.ColumnData(j)
	}

	var first float64
	for i := 0; i < r; i++ {
		first += math.Abs(floats.Dot(columns[i], d) / float64(n))
	}

	product := make([]float64, n)
	var second float64
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			copy(product, columns[i])
			floats.Mul(product, columns[j])
			term := math.Abs(floats.Dot(product, d) / float64(n))
			if i == j {
				second += rho * term
			} else {
				second += 2 * rho * term
			}
		}
	}

	return &DiscrepancyScore{
		Total:        first + second,
		FirstMoment:  first,
		SecondMoment: second,
		Rho:          rho,
	}, nil
}
