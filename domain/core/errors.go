package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found
	ErrNotFound = errors.New("resource not found")

	// Input errors
	ErrInvalidInput = errors.New("invalid covariate input")
	ErrZeroVariance = fmt.Errorf("%w: zero-variance column", ErrInvalidInput)
	ErrEmptyMatrix  = fmt.Errorf("%w: empty matrix", ErrInvalidInput)

	// Assignment errors
	ErrGroupSize     = errors.New("group size violation")
	ErrGroupCoverage = errors.New("group coverage violation")

	// Model errors
	ErrModelConstruction = errors.New("balance model construction failed")

	// Solver outcomes
	ErrSolverUnavailable = errors.New("solver unavailable")
	ErrSolverInfeasible  = errors.New("no feasible assignment found")
)

// Error constructors with context
func NewNotFoundError(id AllocationID) error {
	return fmt.Errorf("%w: allocation %s", ErrNotFound, id)
}

func NewInvalidInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

func NewZeroVarianceError(column string, index int) error {
	return fmt.Errorf("%w %q (index %d)", ErrZeroVariance, column, index)
}

func NewGroupSizeError(got, want int) error {
	return fmt.Errorf("%w: group one has %d members, want %d", ErrGroupSize, got, want)
}

func NewGroupCoverageError(patient int) error {
	return fmt.Errorf("%w: patient %d is not in exactly one group", ErrGroupCoverage, patient)
}

func NewModelConstructionError(reason string) error {
	return fmt.Errorf("%w: %s", ErrModelConstruction, reason)
}

func NewSolverUnavailableError(cause error) error {
	return fmt.Errorf("%w: %v", ErrSolverUnavailable, cause)
}

// Error checking helpers
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsAssignmentError(err error) bool {
	return errors.Is(err, ErrGroupSize) || errors.Is(err, ErrGroupCoverage)
}

func IsSolverError(err error) bool {
	return errors.Is(err, ErrSolverUnavailable) || errors.Is(err, ErrSolverInfeasible)
}
