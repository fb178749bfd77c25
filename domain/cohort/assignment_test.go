package cohort

import (
	"testing"

	"trialloc/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAssignment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		group1  []int
		group2  []int
		wantErr error
	}{
		{
			name:   "valid even split",
			group1: []int{1, 1, 0, 0},
			group2: []int{0, 0, 1, 1},
		},
		{
			name:    "patient in both groups",
			group1:  []int{1, 1, 1, 0},
			group2:  []int{0, 0, 1, 1},
			wantErr: core.ErrGroupCoverage,
		},
		{
			name:    "patient in neither group",
			group1:  []int{1, 1, 0, 0},
			group2:  []int{0, 0, 1, 0},
			wantErr: core.ErrGroupCoverage,
		},
		{
			name:    "unbalanced sizes",
			group1:  []int{1, 1, 1, 0},
			group2:  []int{0, 0, 0, 1},
			wantErr: core.ErrGroupSize,
		},
		{
			name:    "length mismatch",
			group1:  []int{1, 0},
			group2:  []int{0, 1, 0},
			wantErr: core.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGroupAssignment(tt.group1, tt.group2)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestFromLabels(t *testing.T) {
	a, err := FromLabels([]int{1, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0}, a.Group1)
	assert.Equal(t, []int{0, 1, 0, 1}, a.Group2)

	_, err = FromLabels([]int{1, 0, 2, 0})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestFirstHalf(t *testing.T) {
	a := FirstHalf(6)
	require.NoError(t, a.Validate())
	assert.Equal(t, []int{1, 1, 1, 0, 0, 0}, a.Group1)

	// Odd cohorts: group one gets the floor.
	odd := FirstHalf(5)
	assert.Equal(t, []int{1, 1, 0, 0, 0}, odd.Group1)
	require.NoError(t, odd.Validate())
}

func TestSignedDifference(t *testing.T) {
	a := FirstHalf(4)
	assert.Equal(t, []float64{1, 1, -1, -1}, a.SignedDifference())

	swapped := a.Swapped()
	assert.Equal(t, []float64{-1, -1, 1, 1}, swapped.SignedDifference())
}
