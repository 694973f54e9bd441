package operator

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector length does not match Len().
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnsupportedOperator is returned when an operator lacks a requested capability,
	// typically a closed-form propagator.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrSingular is returned by ApplyInverse when the operator has a zero eigenvalue.
	ErrSingular = errors.New("operator is singular")
	// ErrNotHermitian is returned when constructing a Hermitian operator from a
	// matrix that is not self-adjoint.
	ErrNotHermitian = errors.New("matrix is not Hermitian")
)

// UnsupportedError names the operator type and the method it cannot provide.
// Use errors.Is(err, ErrUnsupportedOperator) to check for it.
type UnsupportedError struct {
	Type   string
	Method string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s does not support %s", ErrUnsupportedOperator, e.Type, e.Method)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedOperator
}

// CheckLen returns an error wrapping ErrDimensionMismatch unless every vector has length n.
func CheckLen(n int, vs ...[]complex128) error {
	for i, v := range vs {
		if len(v) != n {
			return fmt.Errorf("%w: argument %d has length %d, operator has length %d", ErrDimensionMismatch, i, len(v), n)
		}
	}
	return nil
}
