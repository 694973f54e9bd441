package operator

import (
	"math"

	"gonum.org/v1/gonum/blas/cblas128"
)

// vec wraps a slice as a unit-stride BLAS vector.
func vec(v []complex128) cblas128.Vector {
	return cblas128.Vector{N: len(v), Data: v, Inc: 1}
}

// Dotu returns u·v without conjugation.
func Dotu(u, v []complex128) complex128 {
	return cblas128.Dotu(vec(u), vec(v))
}

// Dotc returns conj(u)·v.
func Dotc(u, v []complex128) complex128 {
	return cblas128.Dotc(vec(u), vec(v))
}

// Norm returns the Euclidean norm of v.
func Norm(v []complex128) float64 {
	if len(v) == 0 {
		return 0
	}
	return cblas128.Nrm2(vec(v))
}

// Uniform returns the normalized uniform superposition of length n.
func Uniform(n int) []complex128 {
	v := make([]complex128, n)
	amp := complex(1/math.Sqrt(float64(n)), 0)
	for i := range v {
		v[i] = amp
	}
	return v
}

// Normalize scales v to unit norm in place. A zero vector is left untouched.
func Normalize(v []complex128) {
	nrm := Norm(v)
	if nrm == 0 {
		return
	}
	cblas128.Scal(complex(1/nrm, 0), vec(v))
}

// phase returns exp(iθ).
func phase(theta float64) complex128 {
	s, c := math.Sincos(theta)
	return complex(c, s)
}
