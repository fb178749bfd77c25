package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	AllocationID ID
	PatientID    ID
	CovariateKey ID
)

// String conversions for domain IDs
func (id AllocationID) String() string { return ID(id).String() }
func (id PatientID) String() string    { return ID(id).String() }
func (k CovariateKey) String() string  { return ID(k).String() }

// ParseAllocationID parses a string into AllocationID
func ParseAllocationID(s string) (AllocationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("allocation ID cannot be empty")
	}
	return AllocationID(s), nil
}

// ParseCovariateKey parses a string into CovariateKey
func ParseCovariateKey(s string) (CovariateKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("covariate key cannot be empty")
	}
	return CovariateKey(s), nil
}
