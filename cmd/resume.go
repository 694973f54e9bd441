package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cwbudde/qaoasim/internal/circuit"
	"github.com/cwbudde/qaoasim/internal/opt"
	"github.com/cwbudde/qaoasim/internal/solve"
	"github.com/cwbudde/qaoasim/internal/store"
)

var (
	resumeInstance string
	resumeDepth    int
	resumeLocal    string
	resumeIters    int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a run from its checkpoint",
	Long: `Reloads the checkpointed angles, refines them with a local optimizer and,
if --depth exceeds the checkpoint depth, continues the interp ramp from there.
The checkpoint is overwritten only when the energy improves.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeInstance, "instance", "", "Instance path (default: the path recorded in the checkpoint)")
	resumeCmd.Flags().IntVar(&resumeDepth, "depth", 0, "Continue the ramp up to this depth (0 = refine at the checkpoint depth)")
	resumeCmd.Flags().StringVar(&resumeLocal, "local", opt.BFGS, "Local optimizer: bfgs, neldermead")
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 200, "Max iterations per depth")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	checkpointStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	path := resumeInstance
	if path == "" {
		path = checkpoint.Config.InstancePath
	}
	p, err := loadProblem(path, checkpoint.Config.Format)
	if err != nil {
		return err
	}
	jobConfig := checkpoint.Config
	jobConfig.InstancePath = p.path
	jobConfig.NumQubits = p.instance.NumQubits()
	jobConfig.Fingerprint = p.instance.Fingerprint()
	if err := checkpoint.IsCompatible(jobConfig); err != nil {
		return err
	}

	local, err := newLocal(resumeLocal, resumeIters, checkpoint.Config.Seed)
	if err != nil {
		return err
	}
	if local == nil {
		return fmt.Errorf("resume needs a local optimizer")
	}

	slog.Info("Resuming from checkpoint",
		"job_id", jobID,
		"depth", checkpoint.Depth,
		"best_energy", checkpoint.BestEnergy,
		"target_depth", resumeDepth)

	tw, err := store.NewTraceWriter(dataDir, jobID, true)
	if err != nil {
		return err
	}
	defer tw.Close()

	res, err := continueRun(checkpoint, p, local, resumeDepth, traceTo(tw))
	if err != nil {
		return err
	}

	if res.BestEnergy < checkpoint.BestEnergy {
		if resumeDepth > jobConfig.MaxDepth {
			jobConfig.MaxDepth = resumeDepth
		}
		updated := store.NewCheckpoint(jobID, res.BestAngles, res.BestEnergy, checkpoint.InitialEnergy,
			checkpoint.Evaluations+res.Evaluations, jobConfig)
		updated.MaxCut = p.maxCut
		if err := checkpointStore.SaveCheckpoint(jobID, updated); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		slog.Info("Checkpoint improved", "job_id", jobID, "old_energy", checkpoint.BestEnergy, "new_energy", res.BestEnergy)
	} else {
		slog.Info("No improvement over checkpoint", "job_id", jobID, "energy", res.BestEnergy)
		res = &solve.Result{
			BestAngles:    checkpoint.BestAngles,
			BestEnergy:    checkpoint.BestEnergy,
			InitialEnergy: checkpoint.InitialEnergy,
			Depth:         checkpoint.Depth,
			Evaluations:   checkpoint.Evaluations + res.Evaluations,
		}
	}

	return report(os.Stdout, jobID, p, res)
}

// continueRun refines the checkpoint angles at their own depth, then ramps up
// to maxDepth when it is larger. The result is the best depth seen.
func continueRun(checkpoint *store.Checkpoint, p *problem, local opt.LocalOptimizer, maxDepth int, trace solve.TraceFunc) (*solve.Result, error) {
	c, err := circuit.NewQAOACircuit(p.cost, p.mixer, checkpoint.Depth)
	if err != nil {
		return nil, err
	}
	best, err := solve.Refine(c, local, checkpoint.BestAngles)
	if err != nil {
		return nil, fmt.Errorf("refine at depth %d: %w", checkpoint.Depth, err)
	}
	trace(solve.DepthResult{Depth: best.Depth, Angles: best.BestAngles, Energy: best.BestEnergy, Evaluations: best.Evaluations})

	if maxDepth <= checkpoint.Depth {
		return best, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ramp, err := solve.OptimizeInterp(ctx, p.cost, p.mixer, solve.InterpConfig{
		MaxDepth:    maxDepth,
		Local:       local,
		Start:       best.BestAngles,
		Convergence: solve.DisabledConvergenceConfig(),
		Trace:       trace,
	})
	if err != nil {
		return nil, err
	}
	evaluations := best.Evaluations + ramp.Evaluations
	if ramp.BestEnergy < best.BestEnergy {
		best = ramp
	}
	best.Evaluations = evaluations
	return best, nil
}
