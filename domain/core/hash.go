package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	CohortHash Hash
	ModelHash  Hash
)

func (h CohortHash) String() string { return Hash(h).String() }
func (h ModelHash) String() string  { return Hash(h).String() }

// ComputeCohortHash fingerprints a covariate matrix: dimensions, column
// names and the exact float bit patterns, so any change to the data or
// its ordering yields a different cohort identity.
func ComputeCohortHash(columns []string, rows [][]float64) CohortHash {
	hasher := sha256.New()

	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[0:8], uint64(len(rows)))
	binary.LittleEndian.PutUint64(dims[8:16], uint64(len(columns)))
	hasher.Write(dims[:])

	for _, name := range columns {
		hasher.Write([]byte(name))
		hasher.Write([]byte{0})
	}

	var buf [8]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			hasher.Write(buf[:])
		}
	}

	return CohortHash(hex.EncodeToString(hasher.Sum(nil)))
}
