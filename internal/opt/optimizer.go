// Package opt adapts third-party optimizers to the angle-search problem.
// Nothing in here implements an optimization algorithm itself.
package opt

import (
	"fmt"
	"strings"
)

// Optimizer defines a bounded, derivative-free global search.
type Optimizer interface {
	// Run executes the optimization
	// eval: objective function to minimize
	// lower, upper: parameter bounds
	// dim: dimensionality of parameter space
	// Returns: best parameters and best cost
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}

// Objective is a smooth objective with an optional analytic gradient.
type Objective struct {
	Func func(x []float64) float64
	// Grad writes the gradient at x into grad. Nil means derivative-free.
	Grad func(grad, x []float64)
}

// LocalOptimizer refines a starting point.
type LocalOptimizer interface {
	Minimize(obj Objective, x0 []float64) (Result, error)
}

// Result of a local minimization.
type Result struct {
	X           []float64
	F           float64
	Evaluations int    // Func plus Grad calls
	Converged   bool   // false when a budget ran out first
	Status      string // method-specific termination reason
}

// Names accepted by New.
const (
	Mayfly     = "mayfly"
	NelderMead = "neldermead"
	BFGS       = "bfgs"
)

// Settings configures New.
type Settings struct {
	MaxIters int
	PopSize  int
	Seed     int64
}

// New creates a global optimizer by name.
func New(name string, s Settings) (Optimizer, error) {
	switch strings.ToLower(name) {
	case Mayfly:
		if s.PopSize < MinPopSize {
			return nil, fmt.Errorf("mayfly population must be at least %d, got %d", MinPopSize, s.PopSize)
		}
		return NewMayfly(s.MaxIters, s.PopSize, s.Seed), nil
	case NelderMead:
		return NewNelderMead(s.MaxIters, s.Seed), nil
	case BFGS:
		return NewBFGS(s.MaxIters, s.Seed), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want %s, %s or %s)", name, Mayfly, NelderMead, BFGS)
	}
}
