package balance

import (
	"fmt"
	"math"

	"trialloc/domain/cohort"
	"trialloc/domain/core"
)

// BinaryTolerance is how far a solver-returned binary value may sit from
// an exact 0/1 before decoding refuses it.
const BinaryTolerance = 1e-6

// VarKind distinguishes model decision variables
type VarKind string

const (
	VarBinary     VarKind = "binary"     // patient membership x[k]
	VarContinuous VarKind = "continuous" // moment slack u[m]
)

// Variable is one column of the optimization model. Variables are
// addressed by their position in the model's variable block; Name exists
// only for the solver boundary and is never parsed back.
type Variable struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Kind       VarKind `json:"kind"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// ConstraintSense is the relation of a linear constraint
type ConstraintSense string

const (
	SenseEqual ConstraintSense = "=="
	SenseLE    ConstraintSense = "<="
)

// Constraint is a dense linear constraint over the model's variables
type Constraint struct {
	Name   string          `json:"name"`
	Coeffs []float64       `json:"coeffs"` // one entry per variable
	Sense  ConstraintSense `json:"sense"`
	RHS    float64         `json:"rhs"`
}

// RoundingPolicy decides group sizes for odd cohorts
type RoundingPolicy string

const (
	// RoundingNone rejects odd cohorts at model construction.
	RoundingNone RoundingPolicy = ""
	// FloorHalf puts floor(n/2) patients into group one.
	FloorHalf RoundingPolicy = "floor_half"
)

// BoundPolicy derives the slack upper bound for a tracked moment from its
// per-patient contribution vector. The bound must never be the reason a
// feasible partition is rejected.
type BoundPolicy func(moment TrackedMoment, contribution []float64) float64

// AbsSumBound is the default bound rule: sum_k |c_k|. The slack tracks
// |sum_k c_k x_k| over a subset of patients, which can never exceed the
// absolute sum over all patients, so this bound is provably slack for
// every feasible point.
func AbsSumBound(_ TrackedMoment, contribution []float64) float64 {
	var total float64
	for _, c := range contribution {
		total += math.Abs(c)
	}
	return total
}

// BalanceModel is a solver-agnostic constrained-optimization instance:
// n binary membership variables, one bounded slack per tracked moment,
// a single group-size equality and a pair of inequalities per moment
// bounding the absolute moment contribution of group one.
//
// The model is a tractable proxy, not an exact encoding of Discrepancy;
// decoded assignments must always be re-scored through the evaluator.
type BalanceModel struct {
	Patients  int             `json:"patients"`
	GroupSize int             `json:"group_size"`
	Moments   []TrackedMoment `json:"moments"`

	Variables   []Variable   `json:"variables"`
	Constraints []Constraint `json:"constraints"`
	// Objective holds one linear coefficient per variable; slacks carry
	// weight 1, patient variables carry the optional regularization.
	Objective []float64 `json:"objective"`

	Fingerprint core.ModelHash `json:"fingerprint"`
}

// NumVariables returns the total variable count (binaries plus slacks)
func (m *BalanceModel) NumVariables() int {
	return len(m.Variables)
}

// PatientVariable returns the variable for patient k
func (m *BalanceModel) PatientVariable(k int) Variable {
	return m.Variables[k]
}

// SlackVariable returns the variable for tracked moment index idx
func (m *BalanceModel) SlackVariable(idx int) Variable {
	return m.Variables[m.Patients+idx]
}

// BuilderConfig controls model construction. The zero value tracks all
// moments, uses the default bound rule and no regularization.
type BuilderConfig struct {
	// Moments restricts tracking to a subset; nil tracks all r first
	// moments and all r(r+1)/2 second moments.
	Moments []TrackedMoment
	// BoundPolicy overrides the slack bound derivation rule.
	BoundPolicy BoundPolicy
	// BoundOverrides pins explicit bounds per moment index, taking
	// precedence over the policy. Negative values are rejected.
	BoundOverrides map[int]float64
	// Regularization adds per-patient linear objective weights to break
	// ties among equally-bounded solutions. Length must equal n when set.
	Regularization []float64
	// Rounding selects the group-size policy for odd cohorts.
	Rounding RoundingPolicy
}

// Build constructs a BalanceModel from a standardized covariate matrix.
// The builder never talks to a solver; it only shapes the instance.
func Build(w *cohort.CovariateMatrix, cfg BuilderConfig) (*BalanceModel, error) {
	if err := w.Validate(); err != nil {
		return nil, core.NewModelConstructionError(err.Error())
	}
	n := w.RowCount()
	r := w.ColumnCount()
	if r < 1 {
		return nil, core.NewModelConstructionError("matrix has no covariates")
	}
	if n%2 != 0 && cfg.Rounding == RoundingNone {
		return nil, core.NewModelConstructionError(
			fmt.Sprintf("cohort size %d is odd and no rounding policy was supplied", n))
	}
	if cfg.Regularization != nil && len(cfg.Regularization) != n {
		return nil, core.NewModelConstructionError(
			fmt.Sprintf("regularization has %d weights, cohort has %d patients", len(cfg.Regularization), n))
	}

	moments := cfg.Moments
	if moments == nil {
		moments = DefaultMoments(r)
	}
	moments, err := ValidateMoments(moments, r)
	if err != nil {
		return nil, err
	}

	boundPolicy := cfg.BoundPolicy
	if boundPolicy == nil {
		boundPolicy = AbsSumBound
	}

	numVars := n + len(moments)
	model := &BalanceModel{
		Patients:  n,
		GroupSize: n / 2,
		Moments:   moments,
		Variables: make([]Variable, 0, numVars),
		Objective: make([]float64, numVars),
	}

	for k := 0; k < n; k++ {
		model.Variables = append(model.Variables, Variable{
			Index:      k,
			Name:       fmt.Sprintf("x[%d]", k),
			Kind:       VarBinary,
			LowerBound: 0,
			UpperBound: 1,
		})
		if cfg.Regularization != nil {
			model.Objective[k] = cfg.Regularization[k]
		}
	}

	contributions := make([][]float64, len(moments))
	for _, m := range moments {
		contribution := m.Contribution(w)
		contributions[m.Index] = contribution

		bound, overridden := cfg.BoundOverrides[m.Index]
		if overridden {
			if bound < 0 {
				return nil, core.NewModelConstructionError(
					fmt.Sprintf("negative bound %v for moment %s", bound, m.Name()))
			}
		} else {
			bound = boundPolicy(m, contribution)
		}

		slackIdx := n + m.Index
		model.Variables = append(model.Variables, Variable{
			Index:      slackIdx,
			Name:       fmt.Sprintf("u[%d]", m.Index),
			Kind:       VarContinuous,
			LowerBound: 0,
			UpperBound: bound,
		})
		model.Objective[slackIdx] = 1
	}

	// Equality: both groups hold exactly half the cohort.
	split := Constraint{
		Name:   "group_size",
		Coeffs: make([]float64, numVars),
		Sense:  SenseEqual,
		RHS:    float64(model.GroupSize),
	}
	for k := 0; k < n; k++ {
		split.Coeffs[k] = 1
	}
	model.Constraints = append(model.Constraints, split)

	// Per moment: sum(c_k x_k) - u <= 0 and -sum(c_k x_k) - u <= 0, so the
	// slack upper-bounds the absolute moment contribution of group one.
	for _, m := range moments {
		contribution := contributions[m.Index]
		slackIdx := n + m.Index

		upper := Constraint{
			Name:   fmt.Sprintf("%s_ub", m.Name()),
			Coeffs: make([]float64, numVars),
			Sense:  SenseLE,
			RHS:    0,
		}
		lower := Constraint{
			Name:   fmt.Sprintf("%s_lb", m.Name()),
			Coeffs: make([]float64, numVars),
			Sense:  SenseLE,
			RHS:    0,
		}
		for k := 0; k < n; k++ {
			upper.Coeffs[k] = contribution[k]
			lower.Coeffs[k] = -contribution[k]
		}
		upper.Coeffs[slackIdx] = -1
		lower.Coeffs[slackIdx] = -1

		model.Constraints = append(model.Constraints, upper, lower)
	}

	model.Fingerprint = fingerprintModel(w, model)
	return model, nil
}

func fingerprintModel(w *cohort.CovariateMatrix, m *BalanceModel) core.ModelHash {
	payload := fmt.Sprintf("%s|n=%d|moments=%d|vars=%d|constraints=%d",
		w.Fingerprint, m.Patients, len(m.Moments), len(m.Variables), len(m.Constraints))
	return core.ModelHash(core.NewHash([]byte(payload)))
}

// Decode maps a solver variable assignment (by variable index) back to a
// GroupAssignment. Binary values may sit within BinaryTolerance of 0/1;
// anything further off is rejected rather than rounded into a lie. The
// decoded assignment is re-validated against the structural invariants.
func (m *BalanceModel) Decode(values []float64) (*cohort.GroupAssignment, error) {
	if len(values) < m.Patients {
		return nil, core.NewInvalidInputError(
			fmt.Sprintf("solver returned %d values, model has %d patient variables", len(values), m.Patients))
	}

	labels := make([]int, m.Patients)
	for k := 0; k < m.Patients; k++ {
		v := values[k]
		switch {
		case math.Abs(v-1) <= BinaryTolerance:
			labels[k] = 1
		case math.Abs(v) <= BinaryTolerance:
			labels[k] = 0
		default:
			return nil, core.NewInvalidInputError(
				fmt.Sprintf("variable %s has non-binary value %v", m.Variables[k].Name, v))
		}
	}

	return cohort.FromLabels(labels)
}

// ObjectiveValue evaluates the model objective for a variable assignment.
// Useful for comparing solver candidates; never a substitute for the
// exact discrepancy score.
func (m *BalanceModel) ObjectiveValue(values []float64) float64 {
	var total float64
	for i, c := range m.Objective {
		if i < len(values) {
			total += c * values[i]
		}
	}
	return total
}
