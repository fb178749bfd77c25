package balance

import (
	"math"
	"math/rand"
	"testing"

	"trialloc/domain/cohort"
	"trialloc/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardizedCohort(t *testing.T, rows [][]float64) *cohort.CovariateMatrix {
	t.Helper()
	keys := make([]core.CovariateKey, len(rows[0]))
	for j := range keys {
		keys[j] = core.CovariateKey([]byte{byte('a' + j)})
	}
	raw, err := cohort.NewCovariateMatrix(keys, nil, rows)
	require.NoError(t, err)
	w, err := cohort.Standardize(raw)
	require.NoError(t, err)
	return w
}

func randomCohort(t *testing.T, n, r int, seed int64) *cohort.CovariateMatrix {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, r)
		for j := range row {
			row[j] = rng.NormFloat64()*float64(j+1) + float64(j)*10
		}
		rows[i] = row
	}
	return standardizedCohort(t, rows)
}

func randomAssignment(n int, seed int64) *cohort.GroupAssignment {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	labels := make([]int, n)
	for i := 0; i < n/2; i++ {
		labels[perm[i]] = 1
	}
	a, _ := cohort.FromLabels(labels)
	return a
}

// Worked example from the evaluator contract: raw values 1,2,3,4
// standardize to (-3,-1,1,3)/sqrt(5). Splitting low/high gives
// |mu| = 2/sqrt(5) and a vanishing variance term, so the score is
// independent of rho.
func TestDiscrepancy_ReferenceConstant(t *testing.T) {
	w := standardizedCohort(t, [][]float64{{1}, {2}, {3}, {4}})

	assignment, err := cohort.NewGroupAssignment([]int{1, 1, 0, 0}, []int{0, 0, 1, 1})
	require.NoError(t, err)

	want := 2.0 / math.Sqrt(5)
	for _, rho := range []float64{0, 0.25, 0.5, 1} {
		score, err := Discrepancy(w, assignment, rho)
		require.NoError(t, err)
		assert.InDelta(t, want, score.Total, 1e-9, "rho=%v", rho)
		assert.InDelta(t, want, score.FirstMoment, 1e-9)
		assert.InDelta(t, 0, score.SecondMoment, 1e-9)
	}
}

// Pairing the extremes against the middle zeroes the mean imbalance but
// leaves a pure variance imbalance of 4/5, weighted by rho.
func TestDiscrepancy_VarianceOnlyImbalance(t *testing.T) {
	w := standardizedCohort(t, [][]float64{{1}, {2}, {3}, {4}})

	assignment, err := cohort.NewGroupAssignment([]int{1, 0, 0, 1}, []int{0, 1, 1, 0})
	require.NoError(t, err)

	for _, rho := range []float64{0, 0.5, 1} {
		score, err := Discrepancy(w, assignment, rho)
		require.NoError(t, err)
		assert.InDelta(t, rho*0.8, score.Total, 1e-9, "rho=%v", rho)
		assert.InDelta(t, 0, score.FirstMoment, 1e-9)
	}
}

func TestDiscrepancy_LabelSwapInvariance(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		w := randomCohort(t, 12, 3, seed)
		assignment := randomAssignment(12, seed+100)

		forward, err := Discrepancy(w, assignment, 0.5)
		require.NoError(t, err)
		backward, err := Discrepancy(w, assignment.Swapped(), 0.5)
		require.NoError(t, err)

		assert.InDelta(t, forward.Total, backward.Total, 1e-12, "seed=%d", seed)
	}
}

func TestDiscrepancy_FirstHalfIsFiniteAndNonNegative(t *testing.T) {
	w := randomCohort(t, 10, 4, 3)

	score, err := Discrepancy(w, cohort.FirstHalf(10), 0.5)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(score.Total))
	assert.False(t, math.IsInf(score.Total, 0))
	assert.GreaterOrEqual(t, score.Total, 0.0)
}

func TestDiscrepancy_PreconditionViolations(t *testing.T) {
	w := randomCohort(t, 6, 2, 9)

	// Wrong group-one size.
	bad := &cohort.GroupAssignment{
		Group1: []int{1, 1, 1, 1, 0, 0},
		Group2: []int{0, 0, 0, 0, 1, 1},
	}
	_, err := Discrepancy(w, bad, 0.5)
	assert.ErrorIs(t, err, core.ErrGroupSize)

	// Overlapping membership.
	overlap := &cohort.GroupAssignment{
		Group1: []int{1, 1, 1, 0, 0, 0},
		Group2: []int{1, 0, 0, 1, 1, 1},
	}
	_, err = Discrepancy(w, overlap, 0.5)
	assert.ErrorIs(t, err, core.ErrGroupCoverage)

	// Assignment for the wrong cohort size.
	_, err = Discrepancy(w, cohort.FirstHalf(8), 0.5)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	// Rho out of range.
	_, err = Discrepancy(w, cohort.FirstHalf(6), 1.5)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
