package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCohortHash(t *testing.T) {
	columns := []string{"age", "bmi"}
	rows := [][]float64{{34, 22.5}, {51, 31.0}}

	h := ComputeCohortHash(columns, rows)
	assert.Equal(t, h, ComputeCohortHash(columns, rows), "same input, same identity")

	perturbed := [][]float64{{34, 22.5}, {51, 31.000000001}}
	assert.NotEqual(t, h, ComputeCohortHash(columns, perturbed))

	reordered := [][]float64{{51, 31.0}, {34, 22.5}}
	assert.NotEqual(t, h, ComputeCohortHash(columns, reordered), "row order is part of identity")

	renamed := []string{"age", "weight"}
	assert.NotEqual(t, h, ComputeCohortHash(renamed, rows))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.False(t, a.IsEmpty())
	assert.NotEqual(t, a, b)
}

func TestParseCovariateKey(t *testing.T) {
	key, err := ParseCovariateKey("age")
	assert.NoError(t, err)
	assert.Equal(t, "age", key.String())

	_, err = ParseCovariateKey("   ")
	assert.Error(t, err)
}
