package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/qaoasim/internal/operator"
	"github.com/cwbudde/qaoasim/internal/validation"
)

// maxValidateQubits bounds the instances whose operators are validated.
// CheckHermitian materializes a 2^n by 2^n matrix.
const maxValidateQubits = 10

var (
	inspectFormat string
	inspectTrials int
	inspectTol    float64
	inspectAngle  float64
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [instance]",
	Short: "Show an instance and validate its operators",
	Long: `Prints the size, exact maximum cut and graph6 encoding of an instance, then
checks the cost and mixer operators: Hermiticity, adjoint consistency, the
reported spectral bounds, and unitarity and invertibility of their propagators.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "auto", "Instance format: auto, edgelist, graph6")
	inspectCmd.Flags().IntVar(&inspectTrials, "trials", 8, "Random vectors per check")
	inspectCmd.Flags().Float64Var(&inspectTol, "tol", 1e-9, "Absolute tolerance")
	inspectCmd.Flags().Float64Var(&inspectAngle, "angle", 0.7, "Propagator angle used for the unitarity and inverse checks")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(args[0], inspectFormat)
	if err != nil {
		return err
	}
	return inspect(os.Stdout, p, rand.New(rand.NewSource(defaults.Seed)))
}

func inspect(w io.Writer, p *problem, rng *rand.Rand) error {
	in := p.instance
	_, arg := in.MaxCut()
	fmt.Fprintf(w, "Instance: %s\n", p.path)
	fmt.Fprintf(w, "Qubits: %d  Edges: %d  Total weight: %g\n", in.NumQubits(), in.NumEdges(), in.TotalWeight())
	fmt.Fprintf(w, "Max cut: %g at %s\n", p.maxCut, in.Bitstring(arg))
	fmt.Fprintf(w, "graph6: %s\n", in.Graph6())

	if in.NumQubits() > maxValidateQubits {
		fmt.Fprintf(w, "Operator validation skipped: more than %d qubits\n", maxValidateQubits)
		return nil
	}

	failed := 0
	for _, named := range []struct {
		name string
		op   operator.HermitianOperator
	}{
		{"cost", p.cost},
		{"mixer", p.mixer},
	} {
		fmt.Fprintf(w, "%-6s bounds [%g, %g] ", named.name, named.op.TrueMinimum(), named.op.TrueMaximum())
		if err := validation.CheckOperator(named.op, inspectAngle, rng, inspectTrials, inspectTol); err != nil {
			fmt.Fprintf(w, "FAIL: %v\n", err)
			failed++
			continue
		}
		fmt.Fprintln(w, "ok")
	}
	if failed > 0 {
		return fmt.Errorf("%d operator(s) failed validation", failed)
	}
	return nil
}
