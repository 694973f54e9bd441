package operator

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a general, not necessarily Hermitian, linear operator backed by a
// dense n×n complex matrix. Its adjoint is the conjugate transpose, so it is
// the reference for checking that adjoint-dependent code does not silently
// assume self-adjointness.
type Matrix struct {
	n       int
	data    []complex128 // row-major
	lu      mat.LU       // factorization of the real embedding
	cond    float64
	scratch []complex128
	rhs     *mat.VecDense
	sol     *mat.VecDense
}

// singularCond is the condition number above which ApplyInverse refuses to solve.
const singularCond = 1e14

// NewMatrix creates a linear operator from a row-major n×n matrix. The data is copied.
func NewMatrix(n int, data []complex128) (*Matrix, error) {
	if len(data) != n*n {
		return nil, fmt.Errorf("%w: %d entries for a %dx%d matrix", ErrDimensionMismatch, len(data), n, n)
	}
	m := &Matrix{
		n:       n,
		data:    append([]complex128(nil), data...),
		scratch: make([]complex128, n),
		rhs:     mat.NewVecDense(2*n, nil),
		sol:     mat.NewVecDense(2*n, nil),
	}

	// [Re -Im; Im Re] acts on [Re v; Im v] exactly as A acts on v, and its
	// transpose is the embedding of A†.
	emb := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re, im := real(data[i*n+j]), imag(data[i*n+j])
			emb.Set(i, j, re)
			emb.Set(i+n, j+n, re)
			emb.Set(i, j+n, -im)
			emb.Set(i+n, j, im)
		}
	}
	m.lu.Factorize(emb)
	m.cond = m.lu.Cond()
	return m, nil
}

func (m *Matrix) Len() int { return m.n }

func (m *Matrix) general() cblas128.General {
	return cblas128.General{Rows: m.n, Cols: m.n, Stride: m.n, Data: m.data}
}

func (m *Matrix) multiply(t blas.Transpose, v, out []complex128) error {
	if err := CheckLen(m.n, v, out); err != nil {
		return err
	}
	cblas128.Gemv(t, 1, m.general(), vec(v), 0, vec(m.scratch))
	copy(out, m.scratch)
	return nil
}

func (m *Matrix) solve(trans bool, v, out []complex128) error {
	if err := CheckLen(m.n, v, out); err != nil {
		return err
	}
	if m.cond > singularCond {
		return fmt.Errorf("%w: condition number %g", ErrSingular, m.cond)
	}
	for i, z := range v {
		m.rhs.SetVec(i, real(z))
		m.rhs.SetVec(i+m.n, imag(z))
	}
	if err := m.lu.SolveVecTo(m.sol, trans, m.rhs); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	for i := range out {
		out[i] = complex(m.sol.AtVec(i), m.sol.AtVec(i+m.n))
	}
	return nil
}

func (m *Matrix) Apply(v, out []complex128) error { return m.multiply(blas.NoTrans, v, out) }

func (m *Matrix) ApplyAdjoint(v, out []complex128) error { return m.multiply(blas.ConjTrans, v, out) }

func (m *Matrix) ApplyInverse(v, out []complex128) error { return m.solve(false, v, out) }

func (m *Matrix) ApplyAdjointInverse(v, out []complex128) error { return m.solve(true, v, out) }
