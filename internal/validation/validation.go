// Package validation checks operator implementations against the algebraic
// properties their contracts promise. Every check returns an error wrapping
// ErrValidation that names the failing quantity.
package validation

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/qaoasim/internal/operator"
)

// ErrValidation is wrapped by every failed check.
var ErrValidation = errors.New("validation failed")

// AsMatrix materializes op by applying it to each basis vector. Column j of
// the result is op·e_j.
func AsMatrix(op operator.LinearOperator) (*mat.CDense, error) {
	n := op.Len()
	m := mat.NewCDense(n, n, nil)
	basis := make([]complex128, n)
	col := make([]complex128, n)
	for j := 0; j < n; j++ {
		basis[j] = 1
		if err := op.Apply(basis, col); err != nil {
			return nil, fmt.Errorf("column %d: %w", j, err)
		}
		basis[j] = 0
		for i, z := range col {
			m.Set(i, j, z)
		}
	}
	return m, nil
}

// CheckHermitian verifies that the materialized matrix equals its conjugate
// transpose and that ConjInnerProduct agrees with it. The second part pairs
// each basis vector with the all-ones vector 1: <e_j,A1> must be row sum j
// and <1,Ae_j> column sum j. That is 2n products, so the whole check costs
// no more than materializing the matrix.
func CheckHermitian(op operator.HermitianOperator, tol float64) error {
	m, err := AsMatrix(op)
	if err != nil {
		return err
	}
	n := op.Len()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a, b := m.At(i, j), cmplx.Conj(m.At(j, i))
			if cmplx.Abs(a-b) > tol {
				return fmt.Errorf("%w: M[%d,%d] = %v but conj(M[%d,%d]) = %v", ErrValidation, i, j, a, j, i, b)
			}
		}
	}

	ones := make([]complex128, n)
	for i := range ones {
		ones[i] = 1
	}
	basis := make([]complex128, n)
	for j := 0; j < n; j++ {
		var rowSum, colSum complex128
		for k := 0; k < n; k++ {
			rowSum += m.At(j, k)
			colSum += m.At(k, j)
		}

		basis[j] = 1
		uv, err := op.ConjInnerProduct(basis, ones)
		if err != nil {
			return err
		}
		vu, err := op.ConjInnerProduct(ones, basis)
		if err != nil {
			return err
		}
		basis[j] = 0

		if cmplx.Abs(uv-rowSum) > tol*math.Max(1, cmplx.Abs(rowSum)) {
			return fmt.Errorf("%w: <e%d,A1> = %v, row sum %v", ErrValidation, j, uv, rowSum)
		}
		if cmplx.Abs(vu-colSum) > tol*math.Max(1, cmplx.Abs(colSum)) {
			return fmt.Errorf("%w: <1,Ae%d> = %v, column sum %v", ErrValidation, j, vu, colSum)
		}
		if cmplx.Abs(uv-cmplx.Conj(vu)) > tol*math.Max(1, cmplx.Abs(uv)) {
			return fmt.Errorf("%w: <e%d,A1> = %v, conj(<1,Ae%d>) = %v", ErrValidation, j, uv, j, cmplx.Conj(vu))
		}
	}
	return nil
}

// CheckAdjoint verifies conj(u)·(Av) == conj(A†u)·v for random u and v. An
// operator whose ApplyAdjoint simply forwards to Apply fails this unless it
// really is self-adjoint.
func CheckAdjoint(op operator.LinearOperator, rng *rand.Rand, trials int, tol float64) error {
	n := op.Len()
	av := make([]complex128, n)
	adu := make([]complex128, n)
	for trial := 0; trial < trials; trial++ {
		u, v := randomVector(rng, n), randomVector(rng, n)
		if err := op.Apply(v, av); err != nil {
			return err
		}
		if err := op.ApplyAdjoint(u, adu); err != nil {
			return err
		}
		lhs, rhs := operator.Dotc(u, av), operator.Dotc(adu, v)
		if cmplx.Abs(lhs-rhs) > tol*math.Max(1, cmplx.Abs(lhs)) {
			return fmt.Errorf("%w: trial %d: <u,Av> = %v, <A†u,v> = %v", ErrValidation, trial, lhs, rhs)
		}
	}
	return nil
}

// CheckUnitary verifies that p preserves the norm of random unit vectors.
func CheckUnitary(p operator.Propagator, rng *rand.Rand, trials int, tol float64) error {
	n := p.Len()
	for trial := 0; trial < trials; trial++ {
		v := randomUnitVector(rng, n)
		if err := p.Apply(v, v); err != nil {
			return err
		}
		if nrm := operator.Norm(v); math.Abs(nrm-1) > tol {
			return fmt.Errorf("%w: trial %d: norm %g after propagation at θ=%g", ErrValidation, trial, nrm, p.Angle())
		}
	}
	return nil
}

// CheckBounds verifies TrueMinimum ≤ Expectation(v) ≤ TrueMaximum for random
// unit vectors.
func CheckBounds(op operator.HermitianOperator, rng *rand.Rand, trials int, tol float64) error {
	lo, hi := op.TrueMinimum(), op.TrueMaximum()
	if lo > hi+tol {
		return fmt.Errorf("%w: TrueMinimum %g exceeds TrueMaximum %g", ErrValidation, lo, hi)
	}
	for trial := 0; trial < trials; trial++ {
		e, err := op.Expectation(randomUnitVector(rng, op.Len()))
		if err != nil {
			return err
		}
		if e < lo-tol || e > hi+tol {
			return fmt.Errorf("%w: trial %d: expectation %g outside [%g, %g]", ErrValidation, trial, e, lo, hi)
		}
	}
	return nil
}

// CheckInverse verifies ApplyInverse(Apply(v)) == v for random v. A singular
// operator fails with its ErrSingular error rather than ErrValidation.
func CheckInverse(op operator.LinearOperator, rng *rand.Rand, trials int, tol float64) error {
	n := op.Len()
	w := make([]complex128, n)
	for trial := 0; trial < trials; trial++ {
		v := randomVector(rng, n)
		if err := op.Apply(v, w); err != nil {
			return err
		}
		if err := op.ApplyInverse(w, w); err != nil {
			return err
		}
		for i := range v {
			if d := cmplx.Abs(w[i] - v[i]); d > tol*math.Max(1, cmplx.Abs(v[i])) {
				return fmt.Errorf("%w: trial %d: element %d off by %g after inverse round trip", ErrValidation, trial, i, d)
			}
		}
	}
	return nil
}

// CheckOperator runs CheckHermitian, CheckAdjoint and CheckBounds on op, and
// CheckUnitary and CheckInverse on its propagator at theta.
func CheckOperator(op operator.HermitianOperator, theta float64, rng *rand.Rand, trials int, tol float64) error {
	if err := CheckHermitian(op, tol); err != nil {
		return err
	}
	if err := CheckAdjoint(op, rng, trials, tol); err != nil {
		return err
	}
	if err := CheckBounds(op, rng, trials, tol); err != nil {
		return err
	}
	p, err := op.Propagator(theta)
	if errors.Is(err, operator.ErrUnsupportedOperator) {
		return nil // nothing to check without a propagator
	}
	if err != nil {
		return err
	}
	if err := CheckUnitary(p, rng, trials, tol); err != nil {
		return fmt.Errorf("propagator: %w", err)
	}
	if err := CheckInverse(p, rng, trials, tol); err != nil {
		return fmt.Errorf("propagator: %w", err)
	}
	return nil
}

func randomVector(rng *rand.Rand, n int) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return v
}

func randomUnitVector(rng *rand.Rand, n int) []complex128 {
	v := randomVector(rng, n)
	operator.Normalize(v)
	return v
}
