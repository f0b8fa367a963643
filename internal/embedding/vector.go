// Package embedding holds the unit-vector math shared by extraction, storage
// and matching.
package embedding

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

// Epsilon is the tolerance for unit norm and for the zero-norm check
const Epsilon = 1e-5

// Vector is an embedding with L2 norm within Epsilon of 1
type Vector []float32

// Norm returns the L2 norm, accumulated in float64
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsUnit reports whether v is non-empty with norm within Epsilon of 1
func IsUnit(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	return math.Abs(Norm(v)-1) <= Epsilon
}

// Normalize divides every component by the L2 norm. A zero (or near-zero)
// vector fails with ErrDegenerateEmbedding instead of returning zeros.
func Normalize(raw []float32) (Vector, error) {
	if len(raw) == 0 {
		return nil, domain.ErrDegenerateEmbedding.WithError(fmt.Errorf("empty vector"))
	}

	norm := Norm(raw)
	if norm <= Epsilon || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, domain.ErrDegenerateEmbedding.WithError(fmt.Errorf("norm %g", norm))
	}

	out := make(Vector, len(raw))
	for i, x := range raw {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// FromFloat64 normalizes a float64 embedding received over the wire
func FromFloat64(raw []float64) (Vector, error) {
	v := make([]float32, len(raw))
	for i, x := range raw {
		v[i] = float32(x)
	}
	return Normalize(v)
}

// Float64 widens the vector for JSON transport
func (v Vector) Float64() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Clone returns an independent copy
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// CosineSimilarity is the dot product of two unit vectors. Both inputs must
// be unit length and of equal dimension.
func CosineSimilarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("%d != %d", len(a), len(b)))
	}
	if !IsUnit(a) || !IsUnit(b) {
		return 0, domain.ErrNotUnitVector
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	// rounding can push a self-match marginally past the range
	return math.Max(-1, math.Min(1, dot)), nil
}
