package operator

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Diagonal is a Hermitian operator with real entries on the diagonal in the
// computational basis. Combinatorial cost Hamiltonians (MaxCut, Ising, QUBO)
// take this form.
type Diagonal struct {
	values  []float64
	version uint64
}

// NewDiagonal creates a diagonal operator. The values are copied. It panics
// with mat.ErrZeroLength if values is empty, like gonum's matrix constructors.
func NewDiagonal(values []float64) *Diagonal {
	if len(values) == 0 {
		panic(mat.ErrZeroLength)
	}
	return &Diagonal{values: append([]float64(nil), values...)}
}

func (d *Diagonal) Len() int { return len(d.values) }

// Values returns a copy of the diagonal.
func (d *Diagonal) Values() []float64 {
	return append([]float64(nil), d.values...)
}

// SetValue changes one diagonal entry. Propagators generated earlier pick up
// the change on their next Apply.
func (d *Diagonal) SetValue(k int, x float64) {
	d.values[k] = x
	d.version++
}

func (d *Diagonal) Apply(v, out []complex128) error {
	if err := CheckLen(len(d.values), v, out); err != nil {
		return err
	}
	for k, x := range d.values {
		out[k] = complex(x, 0) * v[k]
	}
	return nil
}

func (d *Diagonal) ApplyInverse(v, out []complex128) error {
	if err := CheckLen(len(d.values), v, out); err != nil {
		return err
	}
	for k, x := range d.values {
		if x == 0 {
			return fmt.Errorf("%w: diagonal entry %d is zero", ErrSingular, k)
		}
	}
	for k, x := range d.values {
		out[k] = v[k] / complex(x, 0)
	}
	return nil
}

func (d *Diagonal) ApplyAdjoint(v, out []complex128) error { return d.Apply(v, out) }

func (d *Diagonal) ApplyAdjointInverse(v, out []complex128) error { return d.ApplyInverse(v, out) }

func (d *Diagonal) TrueMinimum() float64 { return floats.Min(d.values) }

func (d *Diagonal) TrueMaximum() float64 { return floats.Max(d.values) }

func (d *Diagonal) InnerProduct(u, v []complex128) (complex128, error) {
	if err := CheckLen(len(d.values), u, v); err != nil {
		return 0, err
	}
	var sum complex128
	for k, x := range d.values {
		sum += u[k] * complex(x, 0) * v[k]
	}
	return sum, nil
}

func (d *Diagonal) ConjInnerProduct(u, v []complex128) (complex128, error) {
	if err := CheckLen(len(d.values), u, v); err != nil {
		return 0, err
	}
	var sum complex128
	for k, x := range d.values {
		sum += cmplx.Conj(u[k]) * complex(x, 0) * v[k]
	}
	return sum, nil
}

func (d *Diagonal) Expectation(v []complex128) (float64, error) {
	if err := CheckLen(len(d.values), v); err != nil {
		return 0, err
	}
	var sum float64
	for k, x := range d.values {
		re, im := real(v[k]), imag(v[k])
		sum += x * (re*re + im*im)
	}
	return sum, nil
}

func (d *Diagonal) Propagator(theta float64) (Propagator, error) {
	return &diagonalPropagator{op: d, theta: theta}, nil
}

func (d *Diagonal) Clone() HermitianOperator {
	return NewDiagonal(d.values)
}

// diagonalPropagator applies exp(iθd_k) elementwise. Phases are cached per
// angle and operator version.
type diagonalPropagator struct {
	op      *Diagonal
	theta   float64
	phases  []complex128
	valid   bool
	version uint64
}

func (p *diagonalPropagator) Len() int                     { return p.op.Len() }
func (p *diagonalPropagator) Angle() float64               { return p.theta }
func (p *diagonalPropagator) Generator() HermitianOperator { return p.op }

func (p *diagonalPropagator) SetAngle(theta float64) {
	p.theta = theta
	p.valid = false
}

func (p *diagonalPropagator) refresh() {
	if p.valid && p.version == p.op.version {
		return
	}
	if len(p.phases) != len(p.op.values) {
		p.phases = make([]complex128, len(p.op.values))
	}
	for k, x := range p.op.values {
		p.phases[k] = phase(p.theta * x)
	}
	p.version = p.op.version
	p.valid = true
}

func (p *diagonalPropagator) Apply(v, out []complex128) error {
	if err := CheckLen(p.Len(), v, out); err != nil {
		return err
	}
	p.refresh()
	for k, ph := range p.phases {
		out[k] = ph * v[k]
	}
	return nil
}

func (p *diagonalPropagator) ApplyInverse(v, out []complex128) error {
	if err := CheckLen(p.Len(), v, out); err != nil {
		return err
	}
	p.refresh()
	for k, ph := range p.phases {
		out[k] = cmplx.Conj(ph) * v[k]
	}
	return nil
}

func (p *diagonalPropagator) ApplyAdjoint(v, out []complex128) error { return p.ApplyInverse(v, out) }

func (p *diagonalPropagator) ApplyAdjointInverse(v, out []complex128) error { return p.Apply(v, out) }
