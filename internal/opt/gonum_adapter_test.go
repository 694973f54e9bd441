package opt

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/optimize"
)

// rosenbrock has its minimum 0 at (1, 1).
func rosenbrock(x []float64) float64 {
	a, b := 1-x[0], x[1]-x[0]*x[0]
	return a*a + 100*b*b
}

func rosenbrockGrad(grad, x []float64) {
	b := x[1] - x[0]*x[0]
	grad[0] = -2*(1-x[0]) - 400*x[0]*b
	grad[1] = 200 * b
}

func TestBFGSUsesGradient(t *testing.T) {
	res, err := NewBFGS(0, 1).Minimize(Objective{Func: rosenbrock, Grad: rosenbrockGrad}, []float64{-1.2, 1})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}
	if !res.Converged {
		t.Errorf("expected convergence, status %s", res.Status)
	}
	if math.Abs(res.X[0]-1) > 1e-4 || math.Abs(res.X[1]-1) > 1e-4 {
		t.Errorf("minimum at %v, want [1 1]", res.X)
	}
	if res.Evaluations == 0 {
		t.Error("no evaluations counted")
	}
}

func TestNelderMeadWithoutGradient(t *testing.T) {
	f := shiftedSphere([]float64{0.5, -0.25})
	for _, adapter := range []*GonumAdapter{NewNelderMead(0, 1), NewBFGS(0, 1)} {
		// BFGS without a gradient also goes derivative-free.
		res, err := adapter.Minimize(Objective{Func: f}, []float64{0, 0})
		if err != nil {
			t.Fatalf("Minimize failed: %v", err)
		}
		if res.F > 1e-6 {
			t.Errorf("F = %g, want ~0", res.F)
		}
	}
}

func TestBFGSFallsBackToNelderMead(t *testing.T) {
	f := shiftedSphere([]float64{0.5, -0.25})
	// An ascent direction makes the BFGS line search fail at once.
	wrongGrad := func(grad, x []float64) {
		grad[0] = -2 * (x[0] - 0.5)
		grad[1] = -2 * (x[1] + 0.25)
	}
	res, err := NewBFGS(0, 1).Minimize(Objective{Func: f, Grad: wrongGrad}, []float64{2, 2})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}
	if !strings.HasPrefix(res.Status, "fallback: ") {
		t.Errorf("Status = %q, want the fallback marked", res.Status)
	}
	if res.F > 1e-6 {
		t.Errorf("F = %g, want ~0", res.F)
	}
}

func TestKeepLowerTakesStatusWithPoint(t *testing.T) {
	nm := &optimize.Result{Location: optimize.Location{X: []float64{1}, F: 2}, Status: optimize.MethodConverge}

	tests := []struct {
		name       string
		failed     *optimize.Result
		wantF      float64
		wantStatus optimize.Status
	}{
		{"no BFGS result", nil, 2, optimize.MethodConverge},
		{"Nelder-Mead lower", &optimize.Result{Location: optimize.Location{X: []float64{3}, F: 5}, Status: optimize.Failure}, 2, optimize.MethodConverge},
		{"BFGS lower", &optimize.Result{Location: optimize.Location{X: []float64{0}, F: 1}, Status: optimize.Failure}, 1, optimize.Failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keepLower(tt.failed, nm)
			if got.F != tt.wantF || got.Status != tt.wantStatus {
				t.Errorf("keepLower = (F %g, %v), want (F %g, %v)", got.F, got.Status, tt.wantF, tt.wantStatus)
			}
			if convergedStatuses[got.Status] && got.F != nm.F {
				t.Error("a failed BFGS point is reported as converged")
			}
		})
	}
	if nm.F != 2 || nm.Status != optimize.MethodConverge {
		t.Error("keepLower modified its input")
	}
}

func TestIterationBudgetIsNotAnError(t *testing.T) {
	res, err := NewNelderMead(3, 1).Minimize(Objective{Func: rosenbrock}, []float64{-1.2, 1})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}
	if res.Converged {
		t.Error("three iterations should not converge on Rosenbrock")
	}
	if res.F > rosenbrock([]float64{-1.2, 1}) {
		t.Errorf("F = %f is worse than the start", res.F)
	}
}

func TestGonumAdapterRun(t *testing.T) {
	f := shiftedSphere([]float64{1, 2})
	best, cost := NewNelderMead(0, 9).Run(f, []float64{-3, -3}, []float64{3, 3}, 2)
	if cost > 1e-6 || math.Abs(best[0]-1) > 1e-2 || math.Abs(best[1]-2) > 1e-2 {
		t.Errorf("Run = %v, %g; want [1 2], 0", best, cost)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		popSize int
		wantErr bool
	}{
		{name: "mayfly", popSize: 20},
		{name: "Mayfly", popSize: 40},
		{name: "mayfly", popSize: 5, wantErr: true},
		{name: "neldermead"},
		{name: "bfgs"},
		{name: "cmaes", wantErr: true},
	}
	for _, tt := range tests {
		o, err := New(tt.name, Settings{MaxIters: 10, PopSize: tt.popSize, Seed: 1})
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q, pop %d): expected an error", tt.name, tt.popSize)
			}
			continue
		}
		if err != nil || o == nil {
			t.Errorf("New(%q) failed: %v", tt.name, err)
		}
	}
}
