package circuit

import (
	"fmt"

	"github.com/cwbudde/qaoasim/internal/operator"
)

// QuantumCircuit owns an ordered stage sequence and the state vector the stages
// share. Run reuses the same buffer for every stage.
//
// A QuantumCircuit is not safe for concurrent use.
type QuantumCircuit struct {
	stages []Stage
	state  []complex128
	target *TargetStage
}

// NewQuantumCircuit creates a circuit with no stages.
func NewQuantumCircuit() *QuantumCircuit {
	return &QuantumCircuit{}
}

// SetStages validates and installs the stage sequence. It must be exactly one
// InitialStage, any number of UnitaryStages, and exactly one TargetStage, all
// of the same dimension. On error the previous sequence is kept.
func (c *QuantumCircuit) SetStages(stages ...Stage) error {
	if err := validateStages(stages); err != nil {
		return err
	}

	c.stages = append(c.stages[:0:0], stages...)
	for i, s := range c.stages {
		s.setIndex(i)
	}
	c.target = stages[len(stages)-1].(*TargetStage)

	n := stages[0].Len()
	if len(c.state) != n {
		c.state = make([]complex128, n)
	}
	return nil
}

func validateStages(stages []Stage) error {
	if len(stages) == 0 {
		return ErrEmptyCircuit
	}
	last := len(stages) - 1
	for i, s := range stages {
		var want StageKind
		switch i {
		case 0:
			want = KindInitial
		case last:
			want = KindTarget
		default:
			want = KindUnitary
		}
		if s.Kind() != want {
			return fmt.Errorf("%w: stage %d is %s, want %s", ErrInvalidStageOrder, i, s.Kind(), want)
		}
	}
	if len(stages) < 2 {
		return fmt.Errorf("%w: a circuit needs an initial and a target stage", ErrInvalidStageOrder)
	}

	n := stages[0].Len()
	for i, s := range stages {
		if s.Len() != n {
			return fmt.Errorf("%w: stage %d has dimension %d, stage 0 has %d", operator.ErrDimensionMismatch, i, s.Len(), n)
		}
	}
	return nil
}

// Len returns the state dimension, or 0 if no stages are set.
func (c *QuantumCircuit) Len() int { return len(c.state) }

// Stages returns the installed sequence in execution order.
func (c *QuantumCircuit) Stages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// Run resets the state through the initial stage, propagates it through every
// unitary stage and returns the target stage's value.
func (c *QuantumCircuit) Run() (float64, error) {
	if len(c.stages) == 0 {
		return 0, ErrEmptyCircuit
	}
	for i, s := range c.stages {
		if err := s.Run(c.state); err != nil {
			return 0, fmt.Errorf("stage %d (%s): %w", i, s.Kind(), err)
		}
	}
	return c.target.Value(), nil
}

// State returns a copy of the state left by the last Run.
func (c *QuantumCircuit) State() []complex128 {
	return append([]complex128(nil), c.state...)
}
