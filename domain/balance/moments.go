package balance

import (
	"fmt"

	"trialloc/domain/cohort"
	"trialloc/domain/core"
)

// TrackedMoment identifies one moment of the covariate distribution whose
// between-group imbalance is tracked. Moments are addressed by stable
// integer indices; identifiers are never parsed to recover positions.
type TrackedMoment struct {
	// Index is the moment's position in the model's slack block.
	Index int `json:"index"`
	// I and J are covariate column indices. J == -1 marks a first moment
	// (mean of column I); J >= I marks a second moment, with I == J a
	// variance and I < J a covariance.
	I int `json:"i"`
	J int `json:"j"`
}

// IsFirst reports whether the moment is a first moment (column mean)
func (m TrackedMoment) IsFirst() bool {
	return m.J < 0
}

// IsDiagonal reports whether the moment is a variance term
func (m TrackedMoment) IsDiagonal() bool {
	return m.J == m.I
}

// Name returns the stable display name used in the model-to-solver
// translation table.
func (m TrackedMoment) Name() string {
	if m.IsFirst() {
		return fmt.Sprintf("mu[%d]", m.I)
	}
	return fmt.Sprintf("sigma[%d,%d]", m.I, m.J)
}

// Contribution returns the per-patient contribution vector c for this
// moment: c_k = W[k,i]/n for a first moment, c_k = W[k,i]*W[k,j]/n for a
// second moment.
func (m TrackedMoment) Contribution(w *cohort.CovariateMatrix) []float64 {
	n := w.RowCount()
	c := make([]float64, n)
	for k := 0; k < n; k++ {
		if m.IsFirst() {
			c[k] = w.Data[k][m.I] / float64(n)
		} else {
			c[k] = w.Data[k][m.I] * w.Data[k][m.J] / float64(n)
		}
	}
	return c
}

// DefaultMoments tracks all r first moments followed by all r(r+1)/2
// second moments in row-major pair order.
func DefaultMoments(r int) []TrackedMoment {
	moments := make([]TrackedMoment, 0, r+r*(r+1)/2)
	for i := 0; i < r; i++ {
		moments = append(moments, TrackedMoment{Index: len(moments), I: i, J: -1})
	}
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			moments = append(moments, TrackedMoment{Index: len(moments), I: i, J: j})
		}
	}
	return moments
}

// ValidateMoments checks a caller-supplied moment subset against the
// matrix dimensions and reindexes it into a contiguous slack block.
func ValidateMoments(moments []TrackedMoment, r int) ([]TrackedMoment, error) {
	if len(moments) == 0 {
		return nil, core.NewModelConstructionError("no tracked moments")
	}
	out := make([]TrackedMoment, len(moments))
	for idx, m := range moments {
		if m.I < 0 || m.I >= r {
			return nil, core.NewModelConstructionError(
				fmt.Sprintf("moment %d references covariate %d, matrix has %d", idx, m.I, r))
		}
		if m.J >= 0 && (m.J < m.I || m.J >= r) {
			return nil, core.NewModelConstructionError(
				fmt.Sprintf("moment %d has invalid pair (%d,%d)", idx, m.I, m.J))
		}
		out[idx] = TrackedMoment{Index: idx, I: m.I, J: m.J}
	}
	return out, nil
}
