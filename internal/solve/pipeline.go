// Package solve drives a QAOA circuit with the adapters in package opt:
// a fixed-depth search, a gradient refinement from given angles, and a depth
// ramp that warm-starts each depth from the previous optimum.
package solve

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/qaoasim/internal/circuit"
	"github.com/cwbudde/qaoasim/internal/operator"
	"github.com/cwbudde/qaoasim/internal/opt"
)

// Result holds the output of an optimization run
type Result struct {
	BestAngles    []float64
	BestEnergy    float64
	InitialEnergy float64 // energy at all-zero angles
	Depth         int
	Evaluations   int
	Layers        []DepthResult // one entry per depth visited by a ramp
}

// DepthResult is the optimum reached at one depth.
type DepthResult struct {
	Depth       int
	Angles      []float64
	Energy      float64
	Evaluations int
}

// TraceFunc observes each depth as it completes.
type TraceFunc func(DepthResult)

// AngleBounds returns the search box for a depth-p circuit: cost angles in
// [-π, π] and mixer angles in [-π/2, π/2], the period of exp(iβΣX) up to a
// global phase.
func AngleBounds(depth int) (lower, upper []float64) {
	lower = make([]float64, 2*depth)
	upper = make([]float64, 2*depth)
	for i := 0; i < depth; i++ {
		lower[2*i], upper[2*i] = -math.Pi, math.Pi
		lower[2*i+1], upper[2*i+1] = -math.Pi/2, math.Pi/2
	}
	return lower, upper
}

// objective adapts a circuit to the optimizer callbacks. Evaluation errors
// are sticky: the first one is kept and every later call returns +Inf.
type objective struct {
	c     *circuit.QAOACircuit
	evals int
	err   error

	// last gradient evaluation, reused when Func is asked for the same point
	lastX []float64
	lastF float64
}

func newObjective(c *circuit.QAOACircuit) *objective {
	return &objective{c: c}
}

func (o *objective) Func(x []float64) float64 {
	if o.err != nil {
		return math.Inf(1)
	}
	if o.lastX != nil && floats.Equal(o.lastX, x) {
		return o.lastF
	}
	o.evals++
	e, err := o.c.Evaluate(x)
	if err != nil {
		o.err = err
		return math.Inf(1)
	}
	return e
}

func (o *objective) Grad(grad, x []float64) {
	if o.err != nil {
		for i := range grad {
			grad[i] = 0
		}
		return
	}
	o.evals++
	e, err := o.c.Gradient(x, grad)
	if err != nil {
		o.err = err
		return
	}
	o.lastX = append(o.lastX[:0], x...)
	o.lastF = e
}

// finish re-evaluates the circuit at angles so its state matches the result.
func (o *objective) finish(angles []float64) (float64, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.c.Evaluate(angles)
}

func initialEnergy(c *circuit.QAOACircuit) (float64, error) {
	return c.Evaluate(make([]float64, c.NumAngles()))
}

// OptimizeFixed searches all 2p angles of c at once with a global optimizer.
// On return c holds the best angles.
func OptimizeFixed(c *circuit.QAOACircuit, optimizer opt.Optimizer) (*Result, error) {
	slog.Info("Starting fixed-depth optimization", "depth", c.Depth(), "dim", c.Len())

	initial, err := initialEnergy(c)
	if err != nil {
		return nil, err
	}

	obj := newObjective(c)
	lower, upper := AngleBounds(c.Depth())
	best, _ := optimizer.Run(obj.Func, lower, upper, c.NumAngles())
	energy, err := obj.finish(best)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate circuit: %w", err)
	}

	slog.Info("Fixed-depth optimization complete", "initial_energy", initial, "best_energy", energy, "evaluations", obj.evals)

	return &Result{
		BestAngles:    append([]float64(nil), best...),
		BestEnergy:    energy,
		InitialEnergy: initial,
		Depth:         c.Depth(),
		Evaluations:   obj.evals,
	}, nil
}

// Refine runs a local optimizer from x0 with the analytic gradient. On return
// c holds the refined angles.
func Refine(c *circuit.QAOACircuit, local opt.LocalOptimizer, x0 []float64) (*Result, error) {
	if len(x0) != c.NumAngles() {
		return nil, fmt.Errorf("%w: %d starting angles for depth %d", operator.ErrDimensionMismatch, len(x0), c.Depth())
	}
	initial, err := initialEnergy(c)
	if err != nil {
		return nil, err
	}

	obj := newObjective(c)
	res, err := local.Minimize(opt.Objective{Func: obj.Func, Grad: obj.Grad}, x0)
	if err != nil {
		if obj.err != nil {
			return nil, fmt.Errorf("failed to evaluate circuit: %w", obj.err)
		}
		return nil, err
	}
	energy, err := obj.finish(res.X)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate circuit: %w", err)
	}

	slog.Debug("Refinement complete", "depth", c.Depth(), "energy", energy, "converged", res.Converged, "status", res.Status)

	return &Result{
		BestAngles:    append([]float64(nil), res.X...),
		BestEnergy:    energy,
		InitialEnergy: initial,
		Depth:         c.Depth(),
		Evaluations:   obj.evals,
	}, nil
}

// Interpolate maps optimal depth-p angles to a depth-(p+1) starting point.
// Each of the γ and β sequences is linearly resampled:
//
//	x'_i = (i-1)/p · x_{i-1} + (p-i+1)/p · x_i,  i = 1..p+1,
//
// with x_0 = x_{p+1} = 0. With fewer than two angles there is no depth to
// resample and the zero depth-1 vector is returned.
func Interpolate(angles []float64) []float64 {
	p := len(angles) / 2
	if p == 0 {
		return make([]float64, 2)
	}
	out := make([]float64, 2*(p+1))
	at := func(i, offset int) float64 {
		if i < 1 || i > p {
			return 0
		}
		return angles[2*(i-1)+offset]
	}
	for i := 1; i <= p+1; i++ {
		for offset := 0; offset < 2; offset++ {
			out[2*(i-1)+offset] = float64(i-1)/float64(p)*at(i-1, offset) +
				float64(p-i+1)/float64(p)*at(i, offset)
		}
	}
	return out
}

// InterpConfig configures OptimizeInterp.
type InterpConfig struct {
	MaxDepth int

	// Global searches the depth-1 box. Required.
	Global opt.Optimizer
	// Local refines every depth from its warm start. If nil, every depth is
	// searched from scratch with Global.
	Local opt.LocalOptimizer

	// Start continues an earlier ramp: it holds the optimum of depth
	// len(Start)/2 and the ramp resumes at the next depth. Requires Local.
	Start []float64

	Convergence ConvergenceConfig
	Trace       TraceFunc
	Options     []circuit.Option
}

// OptimizeInterp ramps the depth from 1 to cfg.MaxDepth. Depth 1 is searched
// globally; every later depth starts from the interpolated optimum of the
// previous one. The ramp stops early when the energy stops improving or ctx is
// cancelled, and returns the best depth seen.
func OptimizeInterp(ctx context.Context, cost, mixer operator.HermitianOperator, cfg InterpConfig) (*Result, error) {
	if cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("%w: %d", circuit.ErrInvalidDepth, cfg.MaxDepth)
	}
	first := 1
	if len(cfg.Start) > 0 {
		if len(cfg.Start)%2 != 0 {
			return nil, fmt.Errorf("%w: odd number of starting angles (%d)", operator.ErrDimensionMismatch, len(cfg.Start))
		}
		if cfg.Local == nil {
			return nil, fmt.Errorf("continuing a ramp needs a local optimizer")
		}
		first = len(cfg.Start)/2 + 1
		if first > cfg.MaxDepth {
			return nil, fmt.Errorf("%w: ramp already reached depth %d of %d", circuit.ErrInvalidDepth, first-1, cfg.MaxDepth)
		}
	} else if cfg.Global == nil {
		return nil, fmt.Errorf("interp optimization needs a global optimizer")
	}
	slog.Info("Starting interp optimization", "first_depth", first, "max_depth", cfg.MaxDepth, "dim", cost.Len())

	tracker := NewConvergenceTracker(cfg.Convergence)
	var (
		best   *Result
		prev   = cfg.Start // optimum of the previous depth
		layers []DepthResult
		total  int
	)

	for p := first; p <= cfg.MaxDepth; p++ {
		if err := ctx.Err(); err != nil {
			if best == nil {
				return nil, err
			}
			slog.Warn("Interp optimization cancelled", "completed_depth", p-1)
			break
		}

		c, err := circuit.NewQAOACircuit(cost, mixer, p, cfg.Options...)
		if err != nil {
			return nil, err
		}

		var res *Result
		switch {
		case prev == nil || cfg.Local == nil:
			res, err = OptimizeFixed(c, cfg.Global)
			if err == nil && cfg.Local != nil {
				var polished *Result
				polished, err = Refine(c, cfg.Local, res.BestAngles)
				if err == nil {
					polished.Evaluations += res.Evaluations
					res = polished
				}
			}
		default:
			res, err = Refine(c, cfg.Local, Interpolate(prev))
		}
		if err != nil {
			return nil, fmt.Errorf("depth %d: %w", p, err)
		}

		total += res.Evaluations
		prev = res.BestAngles
		layer := DepthResult{Depth: p, Angles: res.BestAngles, Energy: res.BestEnergy, Evaluations: res.Evaluations}
		layers = append(layers, layer)
		if cfg.Trace != nil {
			cfg.Trace(layer)
		}
		slog.Info("Depth complete", "depth", p, "energy", res.BestEnergy, "evaluations", res.Evaluations)

		if best == nil || res.BestEnergy < best.BestEnergy {
			best = res
		}

		if tracker.Update(res.BestEnergy) {
			break
		}
	}

	best.Evaluations = total
	best.Layers = layers
	slog.Info("Interp optimization complete",
		"best_depth", best.Depth,
		"best_energy", best.BestEnergy,
		"evaluations", total)
	return best, nil
}

// MostLikely returns the basis index with the highest probability.
func MostLikely(probs []float64) (int, float64) {
	if len(probs) == 0 {
		return -1, 0
	}
	k := floats.MaxIdx(probs)
	return k, probs[k]
}
