package balance

import (
	"testing"

	"trialloc/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMoments(t *testing.T) {
	moments := DefaultMoments(3)
	// 3 first moments plus 3*(3+1)/2 = 6 second moments.
	require.Len(t, moments, 9)

	for idx, m := range moments {
		assert.Equal(t, idx, m.Index)
	}
	assert.True(t, moments[0].IsFirst())
	assert.False(t, moments[3].IsFirst())
	assert.True(t, moments[3].IsDiagonal())
	assert.Equal(t, "mu[0]", moments[0].Name())
	assert.Equal(t, "sigma[0,0]", moments[3].Name())
	assert.Equal(t, "sigma[0,1]", moments[4].Name())
}

func TestBuild_ModelShape(t *testing.T) {
	w := standardizedCohort(t, [][]float64{{1}, {2}, {3}, {4}})

	// Track only the single first moment: n binaries + 1 slack, one
	// equality and the two inequalities bounding that moment.
	model, err := Build(w, BuilderConfig{
		Moments: []TrackedMoment{{I: 0, J: -1}},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, model.Patients)
	assert.Equal(t, 2, model.GroupSize)
	assert.Equal(t, 5, model.NumVariables())
	require.Len(t, model.Constraints, 3)

	equalities, inequalities := 0, 0
	for _, c := range model.Constraints {
		switch c.Sense {
		case SenseEqual:
			equalities++
		case SenseLE:
			inequalities++
		}
	}
	assert.Equal(t, 1, equalities)
	assert.Equal(t, 2, inequalities)

	for k := 0; k < 4; k++ {
		assert.Equal(t, VarBinary, model.PatientVariable(k).Kind)
	}
	slack := model.SlackVariable(0)
	assert.Equal(t, VarContinuous, slack.Kind)
	assert.Equal(t, "u[0]", slack.Name)
	assert.Greater(t, slack.UpperBound, 0.0)
}

func TestBuild_DefaultTracksAllMoments(t *testing.T) {
	w := standardizedCohort(t, [][]float64{
		{1, 10}, {2, 14}, {3, 9}, {4, 21},
	})

	model, err := Build(w, BuilderConfig{})
	require.NoError(t, err)

	// r=2: 2 first moments + 3 second moments.
	require.Len(t, model.Moments, 5)
	assert.Equal(t, 4+5, model.NumVariables())
	assert.Len(t, model.Constraints, 1+2*5)
}

func TestBuild_ConstraintCoefficients(t *testing.T) {
	w := standardizedCohort(t, [][]float64{{1}, {2}, {3}, {4}})

	model, err := Build(w, BuilderConfig{
		Moments: []TrackedMoment{{I: 0, J: -1}},
	})
	require.NoError(t, err)

	split := model.Constraints[0]
	assert.Equal(t, SenseEqual, split.Sense)
	assert.Equal(t, 2.0, split.RHS)
	for k := 0; k < 4; k++ {
		assert.Equal(t, 1.0, split.Coeffs[k])
	}
	assert.Equal(t, 0.0, split.Coeffs[4], "slack must not appear in the split constraint")

	upper, lower := model.Constraints[1], model.Constraints[2]
	for k := 0; k < 4; k++ {
		assert.InDelta(t, w.Data[k][0]/4, upper.Coeffs[k], 1e-12)
		assert.InDelta(t, -w.Data[k][0]/4, lower.Coeffs[k], 1e-12)
	}
	assert.Equal(t, -1.0, upper.Coeffs[4])
	assert.Equal(t, -1.0, lower.Coeffs[4])
	assert.Equal(t, 0.0, upper.RHS)
}

func TestBuild_FailureModes(t *testing.T) {
	even := standardizedCohort(t, [][]float64{{1}, {2}, {3}, {4}})
	odd := standardizedCohort(t, [][]float64{{1}, {2}, {4}})

	t.Run("odd cohort without rounding policy", func(t *testing.T) {
		_, err := Build(odd, BuilderConfig{})
		assert.ErrorIs(t, err, core.ErrModelConstruction)
	})

	t.Run("odd cohort with floor rounding", func(t *testing.T) {
		model, err := Build(odd, BuilderConfig{Rounding: FloorHalf})
		require.NoError(t, err)
		assert.Equal(t, 1, model.GroupSize)
	})

	t.Run("negative bound override", func(t *testing.T) {
		_, err := Build(even, BuilderConfig{
			BoundOverrides: map[int]float64{0: -1},
		})
		assert.ErrorIs(t, err, core.ErrModelConstruction)
	})

	t.Run("moment out of range", func(t *testing.T) {
		_, err := Build(even, BuilderConfig{
			Moments: []TrackedMoment{{I: 3, J: -1}},
		})
		assert.ErrorIs(t, err, core.ErrModelConstruction)
	})

	t.Run("regularization length mismatch", func(t *testing.T) {
		_, err := Build(even, BuilderConfig{
			Regularization: []float64{1, 2},
		})
		assert.ErrorIs(t, err, core.ErrModelConstruction)
	})
}

func TestAbsSumBound_NeverBinding(t *testing.T) {
	w := standardizedCohort(t, [][]float64{
		{3, -1}, {8, 2}, {1, 5}, {12, -4}, {6, 0}, {9, 7},
	})

	model, err := Build(w, BuilderConfig{})
	require.NoError(t, err)

	// Any subset's |sum c_k x_k| is bounded by sum |c_k|, so every slack
	// bound must admit every feasible split.
	for _, m := range model.Moments {
		contribution := m.Contribution(w)
		var worst float64
		for _, c := range contribution {
			if c > 0 {
				worst += c
			}
		}
		bound := model.SlackVariable(m.Index).UpperBound
		assert.GreaterOrEqual(t, bound, worst, "moment %s", m.Name())
	}
}

func TestDecode(t *testing.T) {
	w := standardizedCohort(t, [][]float64{{1}, {2}, {3}, {4}})
	model, err := Build(w, BuilderConfig{})
	require.NoError(t, err)

	t.Run("rounds values within tolerance", func(t *testing.T) {
		values := []float64{0.9999999, 1e-8, 1.0000001, 0, 0, 0, 0, 0, 0}
		assignment, err := model.Decode(values)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0, 1, 0}, assignment.Group1)
	})

	t.Run("rejects fractional binaries", func(t *testing.T) {
		values := []float64{0.5, 1, 0, 0, 0, 0}
		_, err := model.Decode(values)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("rejects short value vectors", func(t *testing.T) {
		_, err := model.Decode([]float64{1, 0})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("re-validates structural invariants", func(t *testing.T) {
		// Three patients in group one: binaries decode fine, the
		// assignment itself must still be refused.
		values := []float64{1, 1, 1, 0, 0, 0}
		_, err := model.Decode(values)
		assert.ErrorIs(t, err, core.ErrGroupSize)
	})
}
