// Package operator defines the linear and Hermitian operator contracts used by the
// QAOA circuit, the propagators they generate, and the concrete operators
// (diagonal cost, transverse-field mixer, dense Hermitian, general matrix).
//
// All operators act on state vectors of type []complex128 whose length must
// equal Len(). Operators are represented implicitly; use the validation package
// to materialize one as a dense matrix.
package operator

// LinearOperator is an n×n linear map applied to vectors in place.
//
// Every concrete type in this package allows v and out to alias.
type LinearOperator interface {
	// Len returns the dimension n of the space the operator acts on.
	Len() int

	// Apply writes A·v into out.
	Apply(v, out []complex128) error

	// ApplyInverse writes A⁻¹·v into out. Returns ErrSingular if A is not invertible.
	ApplyInverse(v, out []complex128) error

	// ApplyAdjoint writes A†·v into out.
	ApplyAdjoint(v, out []complex128) error

	// ApplyAdjointInverse writes (A†)⁻¹·v into out.
	ApplyAdjointInverse(v, out []complex128) error
}

// HermitianOperator is a self-adjoint LinearOperator: ⟨u,Av⟩ = ⟨Au,v⟩.
type HermitianOperator interface {
	LinearOperator

	// TrueMinimum returns the exact smallest eigenvalue.
	TrueMinimum() float64

	// TrueMaximum returns the exact largest eigenvalue.
	TrueMaximum() float64

	// InnerProduct returns u·(A v) without conjugating u.
	InnerProduct(u, v []complex128) (complex128, error)

	// ConjInnerProduct returns conj(u)·(A v).
	ConjInnerProduct(u, v []complex128) (complex128, error)

	// Expectation returns the real part of ConjInnerProduct(v, v).
	Expectation(v []complex128) (float64, error)

	// Propagator returns exp(iθA) bound to this operator. Operators without a
	// closed-form exponential return an error wrapping ErrUnsupportedOperator.
	Propagator(theta float64) (Propagator, error)

	// Clone returns a deep copy sharing no mutable state with the receiver.
	Clone() HermitianOperator
}

// Propagator is the unitary exp(iθA) generated by a HermitianOperator.
//
// Being unitary, its adjoint is its inverse: ApplyInverse and ApplyAdjoint both
// apply exp(-iθA).
type Propagator interface {
	LinearOperator

	// Angle returns the current control angle θ.
	Angle() float64

	// SetAngle changes θ and invalidates any cached factorization.
	SetAngle(theta float64)

	// Generator returns the operator A this propagator exponentiates.
	Generator() HermitianOperator
}
