package opt

import (
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/optimize"
)

// GonumAdapter runs gonum's local methods. With an analytic gradient it uses
// BFGS and falls back to Nelder-Mead if the line search fails. Without one it
// uses Nelder-Mead directly.
type GonumAdapter struct {
	gradient bool // prefer BFGS when a gradient is available
	maxIters int
	seed     int64
}

// NewBFGS creates an adapter that uses BFGS whenever a gradient is supplied.
func NewBFGS(maxIters int, seed int64) *GonumAdapter {
	return &GonumAdapter{gradient: true, maxIters: maxIters, seed: seed}
}

// NewNelderMead creates a derivative-free adapter.
func NewNelderMead(maxIters int, seed int64) *GonumAdapter {
	return &GonumAdapter{maxIters: maxIters, seed: seed}
}

var convergedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.GradientThreshold:   true,
	optimize.FunctionConvergence: true,
	optimize.MethodConverge:      true,
}

// Minimize refines x0. Hitting the iteration budget is not an error: the best
// point found so far is returned with Converged false.
func (g *GonumAdapter) Minimize(obj Objective, x0 []float64) (Result, error) {
	settings := &optimize.Settings{MajorIterations: g.maxIters}

	problem := optimize.Problem{Func: obj.Func}
	var method optimize.Method = &optimize.NelderMead{}
	if g.gradient && obj.Grad != nil {
		problem.Grad = obj.Grad
		method = &optimize.BFGS{}
		settings.GradientThreshold = 1e-8
	}

	res, err := optimize.Minimize(problem, x0, settings, method)
	evals := 0
	if res != nil {
		evals = res.FuncEvaluations + res.GradEvaluations
	}
	fallback := false
	if err != nil && problem.Grad != nil {
		slog.Debug("BFGS failed, retrying with Nelder-Mead", "error", err)
		failed := res
		res, err = optimize.Minimize(optimize.Problem{Func: obj.Func}, x0, &optimize.Settings{MajorIterations: g.maxIters}, &optimize.NelderMead{})
		if res != nil {
			evals += res.FuncEvaluations
			res = keepLower(failed, res)
		}
		fallback = true
	}
	if err != nil {
		return Result{Evaluations: evals}, fmt.Errorf("optimization failed: %w", err)
	}

	status := res.Status.String()
	if fallback {
		status = "fallback: " + status
	}
	return Result{
		X:           append([]float64(nil), res.X...),
		F:           res.F,
		Evaluations: evals,
		Converged:   convergedStatuses[res.Status],
		Status:      status,
	}, nil
}

// keepLower returns the Nelder-Mead result unless the failed BFGS run ended
// lower. Point and status are taken from the same run, so a BFGS point is
// never reported as converged.
func keepLower(failed, fallback *optimize.Result) *optimize.Result {
	if failed == nil || failed.F >= fallback.F {
		return fallback
	}
	kept := *fallback
	kept.Location = failed.Location
	kept.Status = failed.Status
	return &kept
}

// Run implements Optimizer by minimizing eval from a seeded random point in
// the box. The result is not clamped to the box.
func (g *GonumAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	rng := rand.New(rand.NewSource(g.seed))
	x0 := make([]float64, dim)
	for i := range x0 {
		x0[i] = lower[i] + rng.Float64()*(upper[i]-lower[i])
	}

	res, err := g.Minimize(Objective{Func: eval}, x0)
	if err != nil {
		slog.Warn("Local optimization failed, returning start point", "error", err)
		return x0, eval(x0)
	}
	return res.X, res.F
}
