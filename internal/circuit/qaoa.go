package circuit

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/qaoasim/internal/operator"
)

// QAOACircuit is a QuantumCircuit of p alternating cost and mixer layers,
// controlled by the angle vector (γ1, β1, …, γp, βp).
type QAOACircuit struct {
	circuit *QuantumCircuit
	cost    operator.HermitianOperator
	mixer   operator.HermitianOperator
	opts    options

	initial *InitialStage
	target  *TargetStage
	layers  []*UnitaryStage // cost and mixer stages interleaved, one per angle
	angles  []float64

	// gradient buffers
	psi    []complex128
	lambda []complex128
}

type options struct {
	initial     []complex128
	independent bool
	target      operator.HermitianOperator
}

// Option configures a QAOACircuit.
type Option func(*options)

// WithInitialState replaces the uniform superposition with v.
func WithInitialState(v []complex128) Option {
	return func(o *options) {
		o.initial = append([]complex128(nil), v...)
	}
}

// WithIndependentLayers gives every layer its own clone of the cost and mixer
// operators, so mutating one layer's generator leaves the others untouched.
func WithIndependentLayers() Option {
	return func(o *options) {
		o.independent = true
	}
}

// WithTarget measures op instead of the cost operator.
func WithTarget(op operator.HermitianOperator) Option {
	return func(o *options) {
		o.target = op
	}
}

// NewQAOACircuit builds the depth-p ansatz for cost and mixer with all angles
// set to zero.
func NewQAOACircuit(cost, mixer operator.HermitianOperator, depth int, opts ...Option) (*QAOACircuit, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return build(cost, mixer, depth, o)
}

func build(cost, mixer operator.HermitianOperator, depth int, o options) (*QAOACircuit, error) {
	n := cost.Len()
	if mixer.Len() != n {
		return nil, fmt.Errorf("%w: cost has dimension %d, mixer %d", operator.ErrDimensionMismatch, n, mixer.Len())
	}

	c := &QAOACircuit{
		circuit: NewQuantumCircuit(),
		cost:    cost,
		mixer:   mixer,
		opts:    o,
		layers:  make([]*UnitaryStage, 0, 2*depth),
		angles:  make([]float64, 2*depth),
		psi:     make([]complex128, n),
		lambda:  make([]complex128, n),
	}

	if o.initial != nil {
		c.initial = NewInitialStage(o.initial)
	} else {
		c.initial = NewUniformStage(n)
	}
	observable := cost
	if o.target != nil {
		observable = o.target
	}
	c.target = NewTargetStage(observable)

	for i := 0; i < depth; i++ {
		costOp, mixerOp := cost, mixer
		if o.independent {
			costOp, mixerOp = cost.Clone(), mixer.Clone()
		}
		up, err := costOp.Propagator(0)
		if err != nil {
			return nil, fmt.Errorf("cost layer %d: %w", i, err)
		}
		ub, err := mixerOp.Propagator(0)
		if err != nil {
			return nil, fmt.Errorf("mixer layer %d: %w", i, err)
		}
		c.layers = append(c.layers, NewUnitaryStage(up), NewUnitaryStage(ub))
	}

	stages := make([]Stage, 0, len(c.layers)+2)
	stages = append(stages, c.initial)
	for _, s := range c.layers {
		stages = append(stages, s)
	}
	stages = append(stages, c.target)
	if err := c.circuit.SetStages(stages...); err != nil {
		return nil, err
	}

	slog.Debug("Built QAOA circuit", "dim", n, "depth", depth, "independent", o.independent)
	return c, nil
}

// Depth returns the number of cost/mixer layers p.
func (c *QAOACircuit) Depth() int { return len(c.layers) / 2 }

// Len returns the state dimension.
func (c *QAOACircuit) Len() int { return c.circuit.Len() }

// NumAngles returns 2p.
func (c *QAOACircuit) NumAngles() int { return len(c.layers) }

func (c *QAOACircuit) Cost() operator.HermitianOperator  { return c.cost }
func (c *QAOACircuit) Mixer() operator.HermitianOperator { return c.mixer }

// Observable returns the operator measured by the target stage.
func (c *QAOACircuit) Observable() operator.HermitianOperator { return c.target.Observable() }

// Circuit exposes the underlying stage pipeline.
func (c *QAOACircuit) Circuit() *QuantumCircuit { return c.circuit }

// Angles returns a copy of the current angles.
func (c *QAOACircuit) Angles() []float64 {
	return append([]float64(nil), c.angles...)
}

// SetAngles rotates every layer in place. angles must have length 2p and is
// ordered γ1, β1, …, γp, βp.
func (c *QAOACircuit) SetAngles(angles []float64) error {
	if len(angles) != len(c.layers) {
		return fmt.Errorf("%w: got %d angles, depth %d needs %d",
			operator.ErrDimensionMismatch, len(angles), c.Depth(), len(c.layers))
	}
	for k, s := range c.layers {
		s.SetAngle(angles[k])
	}
	copy(c.angles, angles)
	return nil
}

// Run evaluates the circuit at the current angles.
func (c *QAOACircuit) Run() (float64, error) {
	return c.circuit.Run()
}

// Evaluate sets the angles and returns the expectation of the observable in
// the resulting state.
func (c *QAOACircuit) Evaluate(angles []float64) (float64, error) {
	if err := c.SetAngles(angles); err != nil {
		return 0, err
	}
	return c.circuit.Run()
}

// Gradient evaluates the circuit at angles, writes ∂E/∂θ_k into grad and
// returns E. It costs one forward pass plus one backward sweep regardless of
// depth.
//
// With ψ_k the state after stage k and λ_k = U_{k+1}†…U_{2p}† C ψ_{2p}, the
// derivative of E with respect to the angle of exp(iθ_k A_k) is
// -2·Im(conj(λ_k)·(A_k ψ_k)).
func (c *QAOACircuit) Gradient(angles, grad []float64) (float64, error) {
	if len(grad) != len(c.layers) {
		return 0, fmt.Errorf("%w: gradient buffer has %d entries, want %d",
			operator.ErrDimensionMismatch, len(grad), len(c.layers))
	}
	energy, err := c.Evaluate(angles)
	if err != nil {
		return 0, err
	}

	copy(c.psi, c.circuit.state)
	if err := c.target.Observable().Apply(c.psi, c.lambda); err != nil {
		return 0, err
	}

	for k := len(c.layers) - 1; k >= 0; k-- {
		s := c.layers[k]
		z, err := s.Propagator().Generator().ConjInnerProduct(c.lambda, c.psi)
		if err != nil {
			return 0, fmt.Errorf("layer %d: %w", k, err)
		}
		grad[k] = -2 * imag(z)

		if k == 0 {
			break
		}
		if err := s.undo(c.psi); err != nil {
			return 0, fmt.Errorf("layer %d: %w", k, err)
		}
		if err := s.undo(c.lambda); err != nil {
			return 0, fmt.Errorf("layer %d: %w", k, err)
		}
	}
	return energy, nil
}

// Probabilities writes |ψ_k|² of the last run into dst, growing it if needed,
// and returns it.
func (c *QAOACircuit) Probabilities(dst []float64) []float64 {
	n := c.circuit.Len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for k, z := range c.circuit.state {
		dst[k] = real(z)*real(z) + imag(z)*imag(z)
	}
	return dst
}

// Clone returns an independent circuit with cloned operators and the same
// angles, for use from another goroutine.
func (c *QAOACircuit) Clone() (*QAOACircuit, error) {
	o := c.opts
	if o.target != nil {
		o.target = o.target.Clone()
	}
	clone, err := build(c.cost.Clone(), c.mixer.Clone(), c.Depth(), o)
	if err != nil {
		return nil, err
	}
	if err := clone.SetAngles(c.angles); err != nil {
		return nil, err
	}
	return clone, nil
}
