package operator

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"
)

const tol = 1e-10

func randomVector(rng *rand.Rand, n int) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return v
}

func randomUnitVector(rng *rand.Rand, n int) []complex128 {
	v := randomVector(rng, n)
	Normalize(v)
	return v
}

func assertVectorsClose(t *testing.T, got, want []complex128, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if cmplx.Abs(got[i]-want[i]) > eps {
			t.Fatalf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// testOperators returns one instance of every Hermitian operator type.
func testOperators(t *testing.T) map[string]HermitianOperator {
	t.Helper()

	// 4x4 Hermitian with complex off-diagonal entries
	dense, err := NewDense(4, []complex128{
		2, 1 + 1i, 0, -0.5i,
		1 - 1i, -1, 0.25, 0,
		0, 0.25, 0.5, 2 - 1i,
		0.5i, 0, 2 + 1i, 3,
	})
	if err != nil {
		t.Fatalf("NewDense failed: %v", err)
	}

	return map[string]HermitianOperator{
		"diagonal":        NewDiagonal([]float64{-1, -1, 1, 1}),
		"sigmax":          NewSumSigmaX(2),
		"weighted sigmax": NewWeightedSigmaX([]float64{0.5, -1.5, 2}),
		"dense":           dense,
	}
}

func TestExpectationWithinTrueBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			lo, hi := op.TrueMinimum(), op.TrueMaximum()
			for trial := 0; trial < 50; trial++ {
				v := randomUnitVector(rng, op.Len())
				e, err := op.Expectation(v)
				if err != nil {
					t.Fatalf("Expectation failed: %v", err)
				}
				if e < lo-tol || e > hi+tol {
					t.Fatalf("expectation %f outside [%f, %f]", e, lo, hi)
				}
			}
		})
	}
}

func TestConjInnerProductWithSelfIsReal(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			v := randomVector(rng, op.Len())
			z, err := op.ConjInnerProduct(v, v)
			if err != nil {
				t.Fatalf("ConjInnerProduct failed: %v", err)
			}
			if math.Abs(imag(z)) > tol*math.Max(1, cmplx.Abs(z)) {
				t.Errorf("imaginary residue %g", imag(z))
			}
			e, _ := op.Expectation(v)
			if math.Abs(e-real(z)) > tol*math.Max(1, math.Abs(e)) {
				t.Errorf("Expectation %f != real(ConjInnerProduct) %f", e, real(z))
			}
		})
	}
}

func TestInnerProductForms(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			n := op.Len()
			u, v := randomVector(rng, n), randomVector(rng, n)
			av := make([]complex128, n)
			if err := op.Apply(v, av); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			bilinear, err := op.InnerProduct(u, v)
			if err != nil {
				t.Fatalf("InnerProduct failed: %v", err)
			}
			if cmplx.Abs(bilinear-Dotu(u, av)) > tol {
				t.Errorf("InnerProduct = %v, want %v", bilinear, Dotu(u, av))
			}

			sesqui, err := op.ConjInnerProduct(u, v)
			if err != nil {
				t.Fatalf("ConjInnerProduct failed: %v", err)
			}
			if cmplx.Abs(sesqui-Dotc(u, av)) > tol {
				t.Errorf("ConjInnerProduct = %v, want %v", sesqui, Dotc(u, av))
			}

			// Hermiticity: conj(u)·(Av) == conj(conj(v)·(Au))
			swapped, _ := op.ConjInnerProduct(v, u)
			if cmplx.Abs(sesqui-cmplx.Conj(swapped)) > tol {
				t.Errorf("operator is not self-adjoint: %v vs %v", sesqui, cmplx.Conj(swapped))
			}
		})
	}
}

func TestPropagatorIdentityAtZero(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			u, err := op.Propagator(0)
			if err != nil {
				t.Fatalf("Propagator failed: %v", err)
			}
			v := randomVector(rng, op.Len())
			out := make([]complex128, len(v))
			if err := u.Apply(v, out); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			assertVectorsClose(t, out, v, tol)
		})
	}
}

func TestPropagatorPreservesNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			u, err := op.Propagator(0.3)
			if err != nil {
				t.Fatalf("Propagator failed: %v", err)
			}
			for _, theta := range []float64{0.3, -1.2, math.Pi / 3, 7.5} {
				u.SetAngle(theta)
				if u.Angle() != theta {
					t.Fatalf("Angle() = %f after SetAngle(%f)", u.Angle(), theta)
				}
				v := randomUnitVector(rng, op.Len())
				if err := u.Apply(v, v); err != nil {
					t.Fatalf("Apply failed: %v", err)
				}
				if math.Abs(Norm(v)-1) > tol {
					t.Errorf("theta=%f: norm %f after propagation", theta, Norm(v))
				}
			}
		})
	}
}

func TestPropagatorInverseUndoesApply(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			u, _ := op.Propagator(0.8)
			v := randomVector(rng, op.Len())
			w := append([]complex128(nil), v...)
			if err := u.Apply(w, w); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if err := u.ApplyInverse(w, w); err != nil {
				t.Fatalf("ApplyInverse failed: %v", err)
			}
			assertVectorsClose(t, w, v, tol)
		})
	}
}

// The derivative of exp(iθA)v with respect to θ is iA·exp(iθA)v.
func TestPropagatorDerivative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const h = 1e-6
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			n := op.Len()
			v := randomUnitVector(rng, n)
			u, _ := op.Propagator(0.4)

			uv := make([]complex128, n)
			u.Apply(v, uv)
			want := make([]complex128, n)
			op.Apply(uv, want)
			for i := range want {
				want[i] *= 1i
			}

			plus, minus := make([]complex128, n), make([]complex128, n)
			u.SetAngle(0.4 + h)
			u.Apply(v, plus)
			u.SetAngle(0.4 - h)
			u.Apply(v, minus)
			got := make([]complex128, n)
			for i := range got {
				got[i] = (plus[i] - minus[i]) / complex(2*h, 0)
			}
			assertVectorsClose(t, got, want, 1e-6)
		})
	}
}

func TestDimensionMismatch(t *testing.T) {
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			short := make([]complex128, op.Len()-1)
			full := make([]complex128, op.Len())

			if err := op.Apply(short, full); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Apply: expected ErrDimensionMismatch, got %v", err)
			}
			if err := op.Apply(full, short); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Apply out: expected ErrDimensionMismatch, got %v", err)
			}
			if _, err := op.Expectation(short); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Expectation: expected ErrDimensionMismatch, got %v", err)
			}
			if _, err := op.InnerProduct(short, full); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("InnerProduct: expected ErrDimensionMismatch, got %v", err)
			}
			u, _ := op.Propagator(1)
			if err := u.Apply(short, short); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Propagator.Apply: expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestAdjointMatchesApplyForHermitian(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for name, op := range testOperators(t) {
		t.Run(name, func(t *testing.T) {
			v := randomVector(rng, op.Len())
			a, b := make([]complex128, len(v)), make([]complex128, len(v))
			op.Apply(v, a)
			op.ApplyAdjoint(v, b)
			assertVectorsClose(t, b, a, tol)
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Run("diagonal", func(t *testing.T) {
		orig := NewDiagonal([]float64{1, 2, 3, 4})
		clone := orig.Clone().(*Diagonal)
		clone.SetValue(0, 100)
		if orig.Values()[0] != 1 {
			t.Errorf("original changed to %f after mutating clone", orig.Values()[0])
		}
	})

	t.Run("sigmax", func(t *testing.T) {
		orig := NewSumSigmaX(3)
		clone := orig.Clone().(*SumSigmaX)
		clone.SetField(1, 5)
		if orig.Fields()[1] != 1 {
			t.Errorf("original field changed to %f", orig.Fields()[1])
		}
		if orig.TrueMaximum() != 3 {
			t.Errorf("original TrueMaximum = %f, want 3", orig.TrueMaximum())
		}
	})

	t.Run("dense", func(t *testing.T) {
		orig, err := NewDense(2, []complex128{1, 0, 0, -1})
		if err != nil {
			t.Fatalf("NewDense failed: %v", err)
		}
		clone := orig.Clone().(*Dense)
		if err := clone.Set(0, 1, 2i); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if orig.At(0, 1) != 0 {
			t.Errorf("original entry changed to %v", orig.At(0, 1))
		}
		if orig.TrueMaximum() != 1 {
			t.Errorf("original TrueMaximum = %f, want 1", orig.TrueMaximum())
		}
	})

	t.Run("propagator angle", func(t *testing.T) {
		op := NewDiagonal([]float64{1, -1})
		p1, _ := op.Propagator(0.5)
		p2, _ := op.Clone().Propagator(0.5)
		p2.SetAngle(2)
		if p1.Angle() != 0.5 {
			t.Errorf("angle of first propagator changed to %f", p1.Angle())
		}
	})
}

func TestUnsupportedError(t *testing.T) {
	err := error(&UnsupportedError{Type: "Sparse", Method: "Propagator"})
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatal("UnsupportedError should match ErrUnsupportedOperator")
	}
	want := "unsupported operator: Sparse does not support Propagator"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
