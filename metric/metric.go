// Package metric provides the distance metrics used for vector comparison.
//
// Distances are reported as an order-preserving 32-bit Unit rather than a raw
// float32: the IEEE-754 bit pattern of a non-negative finite float is
// monotonic, so Units compare with plain integer ordering and never involve
// NaN semantics. The Unit of a distance is stable across processes, which
// keeps replayed and live search results identical.
package metric

import (
	"fmt"
	"math"
)

// Kind identifies a distance metric.
//
// The numeric values are on-disk discriminants and must never be renumbered;
// old database files stay readable only as long as these stay fixed.
type Kind uint8

const (
	// KindCosine is cosine distance: 1 - cos(a, b).
	KindCosine Kind = 1
	// KindEuclidean is the L2 norm of the element-wise difference.
	KindEuclidean Kind = 2
)

// String returns the human-readable name of the metric.
func (k Kind) String() string {
	switch k {
	case KindCosine:
		return "cosine"
	case KindEuclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid reports whether k is a known metric kind.
func (k Kind) Valid() bool {
	return k == KindCosine || k == KindEuclidean
}

// ParseKind parses a metric name as used by the CLI ("cosine", "euclidean").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "cosine":
		return KindCosine, nil
	case "euclidean":
		return KindEuclidean, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// Unit is a totally ordered, bit-comparable distance.
type Unit uint32

// UnitOf converts a non-negative, non-NaN distance to its ordered Unit.
func UnitOf(f float32) Unit {
	return Unit(math.Float32bits(f))
}

// Float32 returns the distance the Unit was derived from.
func (u Unit) Float32() float32 {
	return math.Float32frombits(uint32(u))
}

// Metric computes the distance between two vectors of equal length.
//
// Implementations are stateless and pure. Callers are responsible for
// dimension agreement; the functions assume len(a) == len(b).
type Metric interface {
	Kind() Kind
	Distance(a, b []float32) Unit
}

// For returns the Metric implementation for the given kind, selected once at
// database-open time.
func For(k Kind) (Metric, error) {
	switch k {
	case KindCosine:
		return Cosine{}, nil
	case KindEuclidean:
		return Euclidean{}, nil
	default:
		return nil, fmt.Errorf("unsupported metric kind: %d", uint8(k))
	}
}

// normEpsilon guards the cosine division against near-zero norms.
const normEpsilon = 1e-9

// Cosine implements cosine distance, 1 - dot(a,b)/(|a|*|b|).
//
// If either vector has a norm below a small epsilon, the similarity is
// defined as 0 and the distance as 1 instead of propagating NaN or Inf.
type Cosine struct{}

// Kind returns KindCosine.
func (Cosine) Kind() Kind { return KindCosine }

// Distance returns the cosine distance between a and b.
func (Cosine) Distance(a, b []float32) Unit {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}

	na = float32(math.Sqrt(float64(na)))
	nb = float32(math.Sqrt(float64(nb)))

	var cos float32
	if na > normEpsilon && nb > normEpsilon {
		cos = dot / (na * nb)
	}

	d := 1 - cos
	if d < 0 {
		// Rounding can push the similarity of near-identical vectors
		// marginally above 1; clamp so the Unit stays non-negative.
		d = 0
	}

	return UnitOf(d)
}

// Euclidean implements the standard L2 distance.
type Euclidean struct{}

// Kind returns KindEuclidean.
func (Euclidean) Kind() Kind { return KindEuclidean }

// Distance returns the Euclidean distance between a and b.
func (Euclidean) Distance(a, b []float32) Unit {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return UnitOf(float32(math.Sqrt(float64(sum))))
}
