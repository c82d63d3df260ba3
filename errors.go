package bhtsne

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a Config field (or a combination of
	// fields) cannot be used. It is returned before any computation starts.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput is returned for ragged or non-finite input points.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNumericalDegeneracy is returned when a distance, kernel sum,
	// gradient or embedding coordinate becomes NaN or infinite.
	// Use errors.As with *NumericalError for the location.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")

	// ErrMalformedAffinity reports a broken CSR invariant.
	ErrMalformedAffinity = errors.New("malformed sparse affinity")

	// ErrPersist wraps I/O failures while writing or reading embeddings.
	// A failed write may have left a partial file behind.
	ErrPersist = errors.New("persist embedding")
)

// NumericalError describes where a non-finite value was detected.
type NumericalError struct {
	// Stage is one of "calibration", "gradient", "update" or "cost".
	Stage string
	// Index is the point (row) index, or -1 when not tied to a point.
	Index int
	// Iteration is the optimizer iteration, or -1 during calibration.
	Iteration int
	// Value is the offending value.
	Value float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("bhtsne: %s: non-finite value %v at %s (point %d, iteration %d)",
		ErrNumericalDegeneracy, e.Value, e.Stage, e.Index, e.Iteration)
}

func (e *NumericalError) Unwrap() error { return ErrNumericalDegeneracy }

func configError(format string, args ...any) error {
	return fmt.Errorf("bhtsne: %w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
