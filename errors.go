package vektor

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vektor/metric"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
)

// ErrMetricMismatch indicates that the metric requested at open time
// disagrees with the metric stored in the database header. This is a fatal
// configuration error; the stored metric is never silently coerced.
type ErrMetricMismatch struct {
	Requested metric.Kind
	Stored    metric.Kind
}

func (e *ErrMetricMismatch) Error() string {
	return fmt.Sprintf("metric mismatch: requested %s, stored %s", e.Requested, e.Stored)
}

// ErrDuplicateID indicates an Add with an id that is already live.
// Recoverable: the caller may retry with a different id or call Update.
type ErrDuplicateID struct {
	ID uint64
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id: %d", e.ID)
}

// ErrDimensionMismatch indicates a vector or query whose length disagrees
// with the database's fixed dimension. Recoverable; no state changed.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrNotFound indicates a Remove or Update referencing an id that is not
// live. Recoverable; no state changed.
type ErrNotFound struct {
	ID uint64
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("id not found: %d", e.ID)
}
