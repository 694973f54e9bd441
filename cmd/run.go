package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/qaoasim/internal/circuit"
	"github.com/cwbudde/qaoasim/internal/opt"
	"github.com/cwbudde/qaoasim/internal/solve"
	"github.com/cwbudde/qaoasim/internal/store"
)

var (
	instancePath string
	formatName   string
	strategy     string
	depth        int
	optimizer    string
	localName    string
	iters        int
	popSize      int
	seed         int64
	patience     int
	threshold    float64
	timeout      time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize QAOA angles for a MaxCut instance",
	Long: `Loads a MaxCut instance, optimizes the QAOA angles and saves the best angles
as a checkpoint. The fixed strategy searches a single depth. The interp strategy
ramps the depth from 1 to --depth, warm-starting each depth from the previous
optimum and stopping early once the energy stops improving.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&instancePath, "instance", "", "MaxCut instance path (required)")
	runCmd.Flags().StringVar(&formatName, "format", "auto", "Instance format: auto, edgelist, graph6")
	runCmd.Flags().StringVar(&strategy, "strategy", "interp", "Optimization strategy: fixed, interp")
	runCmd.Flags().IntVar(&depth, "depth", defaults.Depth, "Circuit depth p (maximum depth for interp)")
	runCmd.Flags().StringVar(&optimizer, "optimizer", opt.Mayfly, "Global optimizer: mayfly, neldermead, bfgs")
	runCmd.Flags().StringVar(&localName, "local", opt.BFGS, "Local refinement: bfgs, neldermead, none")
	runCmd.Flags().IntVar(&iters, "iters", 200, "Max iterations per optimizer call")
	runCmd.Flags().IntVar(&popSize, "pop", opt.MinPopSize, "Mayfly population size")
	runCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Random seed")
	runCmd.Flags().IntVar(&patience, "patience", 2, "Interp: depths without improvement before stopping (0 = never stop early)")
	runCmd.Flags().Float64Var(&threshold, "threshold", 0.001, "Interp: relative energy improvement that counts as progress")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop the depth ramp after this long (0 = no limit)")

	runCmd.MarkFlagRequired("instance")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(instancePath, formatName)
	if err != nil {
		return err
	}

	global, err := opt.New(optimizer, opt.Settings{MaxIters: iters, PopSize: popSize, Seed: seed})
	if err != nil {
		return err
	}
	local, err := newLocal(localName, iters, seed)
	if err != nil {
		return err
	}

	checkpointStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	jobID := uuid.New().String()
	tw, err := store.NewTraceWriter(dataDir, jobID, false)
	if err != nil {
		return err
	}
	defer tw.Close()

	slog.Info("Starting optimization",
		"job_id", jobID,
		"strategy", strategy,
		"depth", depth,
		"optimizer", optimizer,
		"local", localName,
		"qubits", p.instance.NumQubits())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var res *solve.Result
	switch strategy {
	case "fixed":
		res, err = optimizeFixed(p, global, local, depth)
		if err == nil {
			traceTo(tw)(solve.DepthResult{Depth: res.Depth, Angles: res.BestAngles, Energy: res.BestEnergy, Evaluations: res.Evaluations})
		}
	case "interp":
		convergence := solve.ConvergenceConfig{Enabled: patience > 0, Patience: patience, Threshold: threshold}
		res, err = solve.OptimizeInterp(ctx, p.cost, p.mixer, solve.InterpConfig{
			MaxDepth:    depth,
			Global:      global,
			Local:       local,
			Convergence: convergence,
			Trace:       traceTo(tw),
		})
	default:
		return fmt.Errorf("unknown strategy: %s", strategy)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	checkpoint := store.NewCheckpoint(jobID, res.BestAngles, res.BestEnergy, res.InitialEnergy, res.Evaluations, store.JobConfig{
		InstancePath: p.path,
		Fingerprint:  p.instance.Fingerprint(),
		Format:       string(p.format),
		NumQubits:    p.instance.NumQubits(),
		MaxDepth:     depth,
		Strategy:     strategy,
		Optimizer:    optimizer,
		Iters:        iters,
		PopSize:      popSize,
		Seed:         seed,
	})
	checkpoint.MaxCut = p.maxCut
	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Optimization complete",
		"job_id", jobID,
		"elapsed", elapsed,
		"initial_energy", res.InitialEnergy,
		"best_energy", res.BestEnergy,
		"evaluations", res.Evaluations,
		"evals_per_second", fmt.Sprintf("%.0f", float64(res.Evaluations)/elapsed.Seconds()),
	)

	return report(os.Stdout, jobID, p, res)
}

// optimizeFixed searches a single depth and polishes the result with local
// when it is set.
func optimizeFixed(p *problem, global opt.Optimizer, local opt.LocalOptimizer, depth int) (*solve.Result, error) {
	c, err := circuit.NewQAOACircuit(p.cost, p.mixer, depth)
	if err != nil {
		return nil, err
	}
	res, err := solve.OptimizeFixed(c, global)
	if err != nil || local == nil {
		return res, err
	}
	polished, err := solve.Refine(c, local, res.BestAngles)
	if err != nil {
		return nil, err
	}
	polished.Evaluations += res.Evaluations
	polished.InitialEnergy = res.InitialEnergy
	if polished.BestEnergy > res.BestEnergy {
		polished.BestEnergy, polished.BestAngles = res.BestEnergy, res.BestAngles
	}
	return polished, nil
}
