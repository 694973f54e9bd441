// Package circuit composes operator propagators into a fixed linear pipeline
// (initial state, unitary layers, target observable) and specializes it into
// the alternating cost/mixer QAOA ansatz.
package circuit

import (
	"errors"
	"fmt"

	"github.com/cwbudde/qaoasim/internal/operator"
)

var (
	// ErrInvalidStageOrder is returned when a stage sequence is not
	// Initial → Unitary* → Target, or when an initial stage runs out of position.
	ErrInvalidStageOrder = errors.New("invalid stage order")
	// ErrEmptyCircuit is returned when a circuit has no stages.
	ErrEmptyCircuit = errors.New("empty circuit")
	// ErrInvalidDepth is returned when a QAOA circuit is built with fewer than one layer.
	ErrInvalidDepth = errors.New("invalid circuit depth")
)

// StageKind identifies the role of a stage in the pipeline.
type StageKind int

const (
	KindInitial StageKind = iota // Prepares the state vector
	KindUnitary                  // Applies a propagator in place
	KindTarget                   // Evaluates the objective
)

func (k StageKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindUnitary:
		return "unitary"
	case KindTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Stage is one step of a QuantumCircuit. Run mutates state in place.
//
// The set of stage kinds is closed: only InitialStage, UnitaryStage and
// TargetStage implement Stage.
type Stage interface {
	Kind() StageKind
	Len() int
	// Index returns the position assigned by QuantumCircuit.SetStages.
	Index() int
	Run(state []complex128) error

	setIndex(i int)
}

type position struct {
	index int
}

func (p *position) Index() int     { return p.index }
func (p *position) setIndex(i int) { p.index = i }

// InitialStage overwrites the state with a fixed vector.
type InitialStage struct {
	position
	vector []complex128
}

// NewInitialStage creates an initial stage from a copy of vector.
func NewInitialStage(vector []complex128) *InitialStage {
	return &InitialStage{vector: append([]complex128(nil), vector...)}
}

// NewUniformStage prepares the normalized uniform superposition of dimension n,
// the ground state of the negated transverse-field mixer.
func NewUniformStage(n int) *InitialStage {
	return &InitialStage{vector: operator.Uniform(n)}
}

func (s *InitialStage) Kind() StageKind { return KindInitial }
func (s *InitialStage) Len() int        { return len(s.vector) }

// Vector returns a copy of the prepared state.
func (s *InitialStage) Vector() []complex128 {
	return append([]complex128(nil), s.vector...)
}

func (s *InitialStage) Run(state []complex128) error {
	if s.index != 0 {
		return fmt.Errorf("%w: initial stage at position %d", ErrInvalidStageOrder, s.index)
	}
	if err := operator.CheckLen(len(s.vector), state); err != nil {
		return err
	}
	copy(state, s.vector)
	return nil
}

// UnitaryStage applies one propagator to the state in place.
type UnitaryStage struct {
	position
	propagator operator.Propagator
}

// NewUnitaryStage wraps a propagator.
func NewUnitaryStage(p operator.Propagator) *UnitaryStage {
	return &UnitaryStage{propagator: p}
}

func (s *UnitaryStage) Kind() StageKind { return KindUnitary }
func (s *UnitaryStage) Len() int        { return s.propagator.Len() }

// Angle returns the current rotation angle of the wrapped propagator.
func (s *UnitaryStage) Angle() float64 { return s.propagator.Angle() }

// SetAngle rotates the wrapped propagator. It takes effect on the next Run.
func (s *UnitaryStage) SetAngle(theta float64) { s.propagator.SetAngle(theta) }

func (s *UnitaryStage) Propagator() operator.Propagator { return s.propagator }

func (s *UnitaryStage) Run(state []complex128) error {
	return s.propagator.Apply(state, state)
}

func (s *UnitaryStage) undo(state []complex128) error {
	return s.propagator.ApplyInverse(state, state)
}

// TargetStage evaluates the expectation of an observable on the final state.
type TargetStage struct {
	position
	observable operator.HermitianOperator
	value      float64
}

// NewTargetStage creates a target stage measuring observable.
func NewTargetStage(observable operator.HermitianOperator) *TargetStage {
	return &TargetStage{observable: observable}
}

func (s *TargetStage) Kind() StageKind { return KindTarget }
func (s *TargetStage) Len() int        { return s.observable.Len() }

func (s *TargetStage) Observable() operator.HermitianOperator { return s.observable }

// Value returns the objective computed by the last Run.
func (s *TargetStage) Value() float64 { return s.value }

// Evaluate returns the expectation of the observable in state without
// recording it.
func (s *TargetStage) Evaluate(state []complex128) (float64, error) {
	return s.observable.Expectation(state)
}

func (s *TargetStage) Run(state []complex128) error {
	v, err := s.Evaluate(state)
	if err != nil {
		return err
	}
	s.value = v
	return nil
}
