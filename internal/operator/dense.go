package operator

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// Dense is a Hermitian operator stored as a full n×n complex matrix.
//
// The eigendecomposition A = Q Λ Q† is computed at construction and after every
// Set, so TrueMinimum, TrueMaximum, ApplyInverse and the propagator are exact.
// Dense operators are intended for small n (validation, few-qubit experiments).
type Dense struct {
	n       int
	data    []complex128 // row-major
	values  []float64    // ascending eigenvalues
	vectors []complex128 // row-major; column k is the eigenvector of values[k]
	scratch []complex128
	work    []complex128
	version uint64
}

// NewDense creates a Hermitian operator from a row-major n×n matrix. The data
// is copied. Returns ErrNotHermitian if data is not self-adjoint.
func NewDense(n int, data []complex128) (*Dense, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: dimension %d", ErrDimensionMismatch, n)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("%w: %d entries for a %dx%d matrix", ErrDimensionMismatch, len(data), n, n)
	}
	d := &Dense{
		n:       n,
		data:    append([]complex128(nil), data...),
		scratch: make([]complex128, n),
		work:    make([]complex128, n),
	}
	if err := d.checkHermitian(); err != nil {
		return nil, err
	}
	if err := d.factorize(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dense) checkHermitian() error {
	var scale float64
	for _, z := range d.data {
		scale = math.Max(scale, cmplx.Abs(z))
	}
	tol := 1e-12 * math.Max(1, scale)
	for i := 0; i < d.n; i++ {
		for j := i; j < d.n; j++ {
			if cmplx.Abs(d.data[i*d.n+j]-cmplx.Conj(d.data[j*d.n+i])) > tol {
				return fmt.Errorf("%w: entries (%d,%d) and (%d,%d) are not conjugate", ErrNotHermitian, i, j, j, i)
			}
		}
	}
	return nil
}

// factorize diagonalizes A through its real symmetric embedding
//
//	M = [ Re A  -Im A ]
//	    [ Im A   Re A ]
//
// Every eigenvalue of A appears twice in M, with eigenvectors [x; y] and
// [-y; x] that both map to multiples of x + iy. Within each cluster of equal
// eigenvalues the complex vectors are orthogonalized with pivoting: the
// candidate with the largest residual is taken next and orthogonalized a
// second time before it is normalized. Leftover candidates are copies of
// accepted vectors and are dropped.
func (d *Dense) factorize() error {
	n, m := d.n, 2*d.n
	emb := make([]float64, m*m)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re, im := real(d.data[i*n+j]), imag(d.data[i*n+j])
			emb[i*m+j] = re
			emb[(i+n)*m+(j+n)] = re
			emb[i*m+(j+n)] = -im
			emb[(i+n)*m+j] = im
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(mat.NewSymDense(m, emb), true); !ok {
		return errors.New("eigendecomposition did not converge")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	scale := math.Max(1, math.Max(math.Abs(vals[0]), math.Abs(vals[m-1])))
	values := make([]float64, 0, n)
	vectors := make([]complex128, n*n)
	for lo := 0; lo < m && len(values) < n; {
		hi := lo + 1
		for hi < m && vals[hi]-vals[lo] <= 1e-10*scale {
			hi++
		}

		cands := make([][]complex128, 0, hi-lo)
		for c := lo; c < hi; c++ {
			z := make([]complex128, n)
			for i := 0; i < n; i++ {
				z[i] = complex(vecs.At(i, c), vecs.At(i+n, c))
			}
			projectOut(z, vectors, n, 0, len(values))
			cands = append(cands, z)
		}
		for len(cands) > 0 && len(values) < n {
			best, bestNorm := 0, 0.0
			for c, z := range cands {
				if nrm := Norm(z); nrm > bestNorm {
					best, bestNorm = c, nrm
				}
			}
			if bestNorm < 1e-6 {
				break
			}
			z := cands[best]
			cands = append(cands[:best], cands[best+1:]...)

			projectOut(z, vectors, n, 0, len(values))
			nrm := Norm(z)
			k := len(values)
			for i := 0; i < n; i++ {
				vectors[i*n+k] = z[i] / complex(nrm, 0)
			}
			values = append(values, vals[lo])
			for _, w := range cands {
				projectOut(w, vectors, n, k, k+1)
			}
		}
		lo = hi
	}
	if len(values) != n {
		return fmt.Errorf("eigendecomposition recovered %d of %d eigenvectors", len(values), n)
	}

	d.values = values
	d.vectors = vectors
	return nil
}

// projectOut removes from z its components along columns from..to-1 of the
// row-major n×n matrix q.
func projectOut(z, q []complex128, n, from, to int) {
	for k := from; k < to; k++ {
		var proj complex128
		for i := 0; i < n; i++ {
			proj += cmplx.Conj(q[i*n+k]) * z[i]
		}
		for i := 0; i < n; i++ {
			z[i] -= proj * q[i*n+k]
		}
	}
}

func (d *Dense) Len() int { return d.n }

// At returns entry (i, j).
func (d *Dense) At(i, j int) complex128 { return d.data[i*d.n+j] }

// Set changes entry (i, j) and its mirror (j, i) to keep the matrix Hermitian,
// then refactorizes. Diagonal entries keep only the real part of z.
func (d *Dense) Set(i, j int, z complex128) error {
	if i == j {
		z = complex(real(z), 0)
	}
	d.data[i*d.n+j] = z
	d.data[j*d.n+i] = cmplx.Conj(z)
	d.version++
	return d.factorize()
}

// Eigenvalues returns a copy of the ascending eigenvalues.
func (d *Dense) Eigenvalues() []float64 {
	return append([]float64(nil), d.values...)
}

func (d *Dense) hermitian() cblas128.Hermitian {
	return cblas128.Hermitian{Uplo: blas.Upper, N: d.n, Stride: d.n, Data: d.data}
}

func (d *Dense) eigenvectors() cblas128.General {
	return cblas128.General{Rows: d.n, Cols: d.n, Stride: d.n, Data: d.vectors}
}

func (d *Dense) Apply(v, out []complex128) error {
	if err := CheckLen(d.n, v, out); err != nil {
		return err
	}
	cblas128.Hemv(1, d.hermitian(), vec(v), 0, vec(d.scratch))
	copy(out, d.scratch)
	return nil
}

// spectral writes Q diag(f) Q† v into out.
func (d *Dense) spectral(v, out []complex128, f func(lambda float64) complex128) {
	q := d.eigenvectors()
	cblas128.Gemv(blas.ConjTrans, 1, q, vec(v), 0, vec(d.work))
	for k, lambda := range d.values {
		d.work[k] *= f(lambda)
	}
	cblas128.Gemv(blas.NoTrans, 1, q, vec(d.work), 0, vec(out))
}

func (d *Dense) ApplyInverse(v, out []complex128) error {
	if err := CheckLen(d.n, v, out); err != nil {
		return err
	}
	tol := 1e-12 * math.Max(1, math.Max(math.Abs(d.TrueMinimum()), math.Abs(d.TrueMaximum())))
	for k, lambda := range d.values {
		if math.Abs(lambda) <= tol {
			return fmt.Errorf("%w: eigenvalue %d is %g", ErrSingular, k, lambda)
		}
	}
	d.spectral(v, out, func(lambda float64) complex128 { return complex(1/lambda, 0) })
	return nil
}

func (d *Dense) ApplyAdjoint(v, out []complex128) error { return d.Apply(v, out) }

func (d *Dense) ApplyAdjointInverse(v, out []complex128) error { return d.ApplyInverse(v, out) }

func (d *Dense) TrueMinimum() float64 { return d.values[0] }

func (d *Dense) TrueMaximum() float64 { return d.values[len(d.values)-1] }

func (d *Dense) InnerProduct(u, v []complex128) (complex128, error) {
	if err := CheckLen(d.n, u, v); err != nil {
		return 0, err
	}
	cblas128.Hemv(1, d.hermitian(), vec(v), 0, vec(d.scratch))
	return Dotu(u, d.scratch), nil
}

func (d *Dense) ConjInnerProduct(u, v []complex128) (complex128, error) {
	if err := CheckLen(d.n, u, v); err != nil {
		return 0, err
	}
	cblas128.Hemv(1, d.hermitian(), vec(v), 0, vec(d.scratch))
	return Dotc(u, d.scratch), nil
}

func (d *Dense) Expectation(v []complex128) (float64, error) {
	z, err := d.ConjInnerProduct(v, v)
	if err != nil {
		return 0, err
	}
	return real(z), nil
}

// maxDensePropagatorLen bounds the dimension of a materialized U(θ), which
// holds two n×n complex matrices.
var maxDensePropagatorLen = 1 << 12

func (d *Dense) Propagator(theta float64) (Propagator, error) {
	if d.n > maxDensePropagatorLen {
		return nil, fmt.Errorf("dimension %d exceeds %d: %w",
			d.n, maxDensePropagatorLen, &UnsupportedError{Type: "Dense", Method: "Propagator"})
	}
	return &densePropagator{
		op:      d,
		theta:   theta,
		u:       make([]complex128, d.n*d.n),
		qd:      make([]complex128, d.n*d.n),
		scratch: make([]complex128, d.n),
	}, nil
}

func (d *Dense) Clone() HermitianOperator {
	return &Dense{
		n:       d.n,
		data:    append([]complex128(nil), d.data...),
		values:  append([]float64(nil), d.values...),
		vectors: append([]complex128(nil), d.vectors...),
		scratch: make([]complex128, d.n),
		work:    make([]complex128, d.n),
	}
}

// densePropagator materializes U(θ) = Q e^{iθΛ} Q† on first use after
// construction, SetAngle, or a change to the generating operator.
type densePropagator struct {
	op      *Dense
	theta   float64
	u       []complex128
	qd      []complex128
	scratch []complex128
	valid   bool
	version uint64
}

func (p *densePropagator) Len() int                     { return p.op.n }
func (p *densePropagator) Angle() float64               { return p.theta }
func (p *densePropagator) Generator() HermitianOperator { return p.op }

func (p *densePropagator) SetAngle(theta float64) {
	p.theta = theta
	p.valid = false
}

func (p *densePropagator) refresh() {
	if p.valid && p.version == p.op.version {
		return
	}
	n := p.op.n
	for i := 0; i < n; i++ {
		for k, lambda := range p.op.values {
			p.qd[i*n+k] = p.op.vectors[i*n+k] * phase(p.theta*lambda)
		}
	}
	qd := cblas128.General{Rows: n, Cols: n, Stride: n, Data: p.qd}
	u := cblas128.General{Rows: n, Cols: n, Stride: n, Data: p.u}
	cblas128.Gemm(blas.NoTrans, blas.ConjTrans, 1, qd, p.op.eigenvectors(), 0, u)
	p.version = p.op.version
	p.valid = true
}

func (p *densePropagator) multiply(t blas.Transpose, v, out []complex128) error {
	if err := CheckLen(p.op.n, v, out); err != nil {
		return err
	}
	p.refresh()
	n := p.op.n
	u := cblas128.General{Rows: n, Cols: n, Stride: n, Data: p.u}
	cblas128.Gemv(t, 1, u, vec(v), 0, vec(p.scratch))
	copy(out, p.scratch)
	return nil
}

func (p *densePropagator) Apply(v, out []complex128) error {
	return p.multiply(blas.NoTrans, v, out)
}

func (p *densePropagator) ApplyInverse(v, out []complex128) error {
	return p.multiply(blas.ConjTrans, v, out)
}

func (p *densePropagator) ApplyAdjoint(v, out []complex128) error { return p.ApplyInverse(v, out) }

func (p *densePropagator) ApplyAdjointInverse(v, out []complex128) error { return p.Apply(v, out) }
