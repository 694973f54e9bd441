package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwbudde/qaoasim/internal/circuit"
	"github.com/cwbudde/qaoasim/internal/maxcut"
	"github.com/cwbudde/qaoasim/internal/operator"
	"github.com/cwbudde/qaoasim/internal/opt"
	"github.com/cwbudde/qaoasim/internal/solve"
	"github.com/cwbudde/qaoasim/internal/store"
)

// problem is a loaded instance with its cost and mixer operators.
type problem struct {
	path     string // absolute
	format   maxcut.Format
	instance *maxcut.Instance
	cost     *operator.Diagonal
	mixer    *operator.SumSigmaX
	maxCut   float64
}

func loadProblem(path, formatName string) (*problem, error) {
	format, err := maxcut.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve instance path: %w", err)
	}
	in, err := maxcut.LoadFile(abs, format)
	if err != nil {
		return nil, err
	}
	maxCut, _ := in.MaxCut()
	return &problem{
		path:     abs,
		format:   format,
		instance: in,
		cost:     in.Cost(),
		mixer:    operator.NewSumSigmaX(in.NumQubits()),
		maxCut:   maxCut,
	}, nil
}

// newLocal returns the local optimizer named by name, or nil for "none".
func newLocal(name string, maxIters int, seed int64) (opt.LocalOptimizer, error) {
	switch strings.ToLower(name) {
	case opt.BFGS:
		return opt.NewBFGS(maxIters, seed), nil
	case opt.NelderMead:
		return opt.NewNelderMead(maxIters, seed), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown local optimizer %q (want %s, %s or none)", name, opt.BFGS, opt.NelderMead)
}

// traceTo returns a solve.TraceFunc that appends each depth to tw.
func traceTo(tw *store.TraceWriter) solve.TraceFunc {
	return func(l solve.DepthResult) {
		err := tw.Write(store.TraceEntry{
			Depth:       l.Depth,
			Energy:      l.Energy,
			Evaluations: l.Evaluations,
			Timestamp:   time.Now(),
			Angles:      l.Angles,
		})
		if err != nil {
			slog.Warn("Failed to write trace entry", "depth", l.Depth, "error", err)
		}
	}
}

// report prints the outcome of a run: energy, ratio and the most likely cut.
func report(w io.Writer, jobID string, p *problem, res *solve.Result) error {
	c, err := circuit.NewQAOACircuit(p.cost, p.mixer, res.Depth)
	if err != nil {
		return err
	}
	if err := c.SetAngles(res.BestAngles); err != nil {
		return err
	}
	if _, err := c.Run(); err != nil {
		return err
	}
	z, prob := solve.MostLikely(c.Probabilities(nil))

	fmt.Fprintf(w, "Job %s: depth %d, energy %.6f (initial %.6f), %d evaluations\n",
		jobID, res.Depth, res.BestEnergy, res.InitialEnergy, res.Evaluations)
	fmt.Fprintf(w, "Approximation ratio %.4f of max cut %g\n",
		maxcut.ApproximationRatio(res.BestEnergy, p.maxCut), p.maxCut)
	fmt.Fprintf(w, "Most likely cut %s (value %g, probability %.4f)\n",
		p.instance.Bitstring(z), p.instance.CutValue(z), prob)
	return nil
}
