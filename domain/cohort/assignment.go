package cohort

import (
	"fmt"

	"trialloc/domain/core"
)

// GroupAssignment is a two-group partition of a cohort. Group1 and Group2
// are {0,1} indicator vectors of length n. Invariants: every patient is in
// exactly one group, and group one holds exactly floor(n/2) patients.
// Assignments are consumed read-only by the evaluator.
type GroupAssignment struct {
	Group1 []int `json:"group1"`
	Group2 []int `json:"group2"`
}

// NewGroupAssignment builds an assignment from indicator vectors and
// validates the structural invariants.
func NewGroupAssignment(group1, group2 []int) (*GroupAssignment, error) {
	a := &GroupAssignment{Group1: group1, Group2: group2}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// FromLabels builds an assignment from a {0,1} label vector where label 1
// means group one.
func FromLabels(labels []int) (*GroupAssignment, error) {
	group1 := make([]int, len(labels))
	group2 := make([]int, len(labels))
	for i, l := range labels {
		switch l {
		case 1:
			group1[i] = 1
		case 0:
			group2[i] = 1
		default:
			return nil, core.NewInvalidInputError(fmt.Sprintf("label at %d is %d, want 0 or 1", i, l))
		}
	}
	return NewGroupAssignment(group1, group2)
}

// FirstHalf assigns the first floor(n/2) patients (by original order) to
// group one. Used as a trivially valid reference partition.
func FirstHalf(n int) *GroupAssignment {
	group1 := make([]int, n)
	group2 := make([]int, n)
	half := n / 2
	for i := 0; i < n; i++ {
		if i < half {
			group1[i] = 1
		} else {
			group2[i] = 1
		}
	}
	return &GroupAssignment{Group1: group1, Group2: group2}
}

// Validate checks mutual exclusion, joint exhaustion and the equal-split
// size invariant. The evaluator refuses to score anything that fails here.
func (a *GroupAssignment) Validate() error {
	n := len(a.Group1)
	if n == 0 {
		return core.NewInvalidInputError("empty assignment")
	}
	if len(a.Group2) != n {
		return core.NewInvalidInputError(
			fmt.Sprintf("group vectors have mismatched lengths %d and %d", n, len(a.Group2)))
	}

	size1 := 0
	for i := 0; i < n; i++ {
		if a.Group1[i]+a.Group2[i] != 1 || a.Group1[i] < 0 || a.Group2[i] < 0 {
			return core.NewGroupCoverageError(i)
		}
		size1 += a.Group1[i]
	}

	if size1 != n/2 {
		return core.NewGroupSizeError(size1, n/2)
	}
	return nil
}

// Size returns the cohort size n
func (a *GroupAssignment) Size() int {
	return len(a.Group1)
}

// Swapped returns the assignment with group labels exchanged
func (a *GroupAssignment) Swapped() *GroupAssignment {
	return &GroupAssignment{Group1: a.Group2, Group2: a.Group1}
}

// SignedDifference returns group1 - group2 as a +1/-1 vector
func (a *GroupAssignment) SignedDifference() []float64 {
	d := make([]float64, len(a.Group1))
	for i := range a.Group1 {
		d[i] = float64(a.Group1[i] - a.Group2[i])
	}
	return d
}
