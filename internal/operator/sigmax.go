package operator

import (
	"fmt"
	"math"
)

// SumSigmaX is the transverse-field mixer B = Σ_j h_j X_j over q qubits,
// acting on a space of dimension 2^q. The standard QAOA mixer has h_j = 1.
//
// X_j flips bit j of the basis index, so B is applied without materializing it.
// In the Hadamard basis B is diagonal with eigenvalue Σ_j h_j (1 - 2 b_j(k)),
// which gives the inverse and the extremal eigenvalues in closed form.
type SumSigmaX struct {
	fields  []float64
	scratch []complex128
}

// NewSumSigmaX creates the unweighted mixer Σ_j X_j on numQubits qubits.
func NewSumSigmaX(numQubits int) *SumSigmaX {
	fields := make([]float64, numQubits)
	for j := range fields {
		fields[j] = 1
	}
	return NewWeightedSigmaX(fields)
}

// NewWeightedSigmaX creates Σ_j h_j X_j with one field strength per qubit.
func NewWeightedSigmaX(fields []float64) *SumSigmaX {
	return &SumSigmaX{
		fields:  append([]float64(nil), fields...),
		scratch: make([]complex128, 1<<len(fields)),
	}
}

func (s *SumSigmaX) Len() int { return 1 << len(s.fields) }

// NumQubits returns the number of qubits q.
func (s *SumSigmaX) NumQubits() int { return len(s.fields) }

// Fields returns a copy of the per-qubit field strengths.
func (s *SumSigmaX) Fields() []float64 {
	return append([]float64(nil), s.fields...)
}

// SetField changes the field strength on qubit j.
func (s *SumSigmaX) SetField(j int, h float64) {
	s.fields[j] = h
}

func (s *SumSigmaX) Apply(v, out []complex128) error {
	if err := CheckLen(s.Len(), v, out); err != nil {
		return err
	}
	for k := range s.scratch {
		var sum complex128
		for j, h := range s.fields {
			sum += complex(h, 0) * v[k^(1<<j)]
		}
		s.scratch[k] = sum
	}
	copy(out, s.scratch)
	return nil
}

// hadamardEigenvalue returns the eigenvalue of B on Hadamard basis vector k.
func (s *SumSigmaX) hadamardEigenvalue(k int) float64 {
	var ev float64
	for j, h := range s.fields {
		if k&(1<<j) == 0 {
			ev += h
		} else {
			ev -= h
		}
	}
	return ev
}

func (s *SumSigmaX) ApplyInverse(v, out []complex128) error {
	if err := CheckLen(s.Len(), v, out); err != nil {
		return err
	}
	for k := range s.scratch {
		if s.hadamardEigenvalue(k) == 0 {
			return fmt.Errorf("%w: mixer eigenvalue on Hadamard state %d is zero", ErrSingular, k)
		}
	}
	copy(s.scratch, v)
	walshHadamard(s.scratch)
	for k := range s.scratch {
		s.scratch[k] /= complex(s.hadamardEigenvalue(k), 0)
	}
	walshHadamard(s.scratch)
	copy(out, s.scratch)
	return nil
}

func (s *SumSigmaX) ApplyAdjoint(v, out []complex128) error { return s.Apply(v, out) }

func (s *SumSigmaX) ApplyAdjointInverse(v, out []complex128) error { return s.ApplyInverse(v, out) }

func (s *SumSigmaX) TrueMaximum() float64 {
	var sum float64
	for _, h := range s.fields {
		sum += math.Abs(h)
	}
	return sum
}

func (s *SumSigmaX) TrueMinimum() float64 { return -s.TrueMaximum() }

func (s *SumSigmaX) InnerProduct(u, v []complex128) (complex128, error) {
	if err := CheckLen(s.Len(), u, v); err != nil {
		return 0, err
	}
	if err := s.Apply(v, s.scratch); err != nil {
		return 0, err
	}
	return Dotu(u, s.scratch), nil
}

func (s *SumSigmaX) ConjInnerProduct(u, v []complex128) (complex128, error) {
	if err := CheckLen(s.Len(), u, v); err != nil {
		return 0, err
	}
	if err := s.Apply(v, s.scratch); err != nil {
		return 0, err
	}
	return Dotc(u, s.scratch), nil
}

func (s *SumSigmaX) Expectation(v []complex128) (float64, error) {
	z, err := s.ConjInnerProduct(v, v)
	if err != nil {
		return 0, err
	}
	return real(z), nil
}

func (s *SumSigmaX) Propagator(theta float64) (Propagator, error) {
	return &sigmaXPropagator{op: s, theta: theta}, nil
}

func (s *SumSigmaX) Clone() HermitianOperator {
	return NewWeightedSigmaX(s.fields)
}

// walshHadamard applies the normalized Walsh–Hadamard transform H^{⊗q} in place.
// len(v) must be a power of two.
func walshHadamard(v []complex128) {
	norm := complex(1/math.Sqrt(float64(len(v))), 0)
	for h := 1; h < len(v); h <<= 1 {
		for i := 0; i < len(v); i += h << 1 {
			for j := i; j < i+h; j++ {
				a, b := v[j], v[j+h]
				v[j], v[j+h] = a+b, a-b
			}
		}
	}
	for i := range v {
		v[i] *= norm
	}
}

// sigmaXPropagator applies exp(iθB) = Π_j (cos(θh_j) I + i sin(θh_j) X_j).
// The X_j commute, so the product is exact.
type sigmaXPropagator struct {
	op    *SumSigmaX
	theta float64
}

func (p *sigmaXPropagator) Len() int                     { return p.op.Len() }
func (p *sigmaXPropagator) Angle() float64               { return p.theta }
func (p *sigmaXPropagator) SetAngle(theta float64)       { p.theta = theta }
func (p *sigmaXPropagator) Generator() HermitianOperator { return p.op }

func (p *sigmaXPropagator) rotate(v, out []complex128, theta float64) error {
	if err := CheckLen(p.Len(), v, out); err != nil {
		return err
	}
	copy(out, v)
	for j, h := range p.op.fields {
		sn, cs := math.Sincos(theta * h)
		c, s := complex(cs, 0), complex(0, sn)
		bit := 1 << j
		for k := range out {
			if k&bit != 0 {
				continue
			}
			a, b := out[k], out[k|bit]
			out[k] = c*a + s*b
			out[k|bit] = s*a + c*b
		}
	}
	return nil
}

func (p *sigmaXPropagator) Apply(v, out []complex128) error {
	return p.rotate(v, out, p.theta)
}

func (p *sigmaXPropagator) ApplyInverse(v, out []complex128) error {
	return p.rotate(v, out, -p.theta)
}

func (p *sigmaXPropagator) ApplyAdjoint(v, out []complex128) error { return p.ApplyInverse(v, out) }

func (p *sigmaXPropagator) ApplyAdjointInverse(v, out []complex128) error { return p.Apply(v, out) }
