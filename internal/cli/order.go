package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/graph"
)

// OrderedScenario is one line of the order command's output.
type OrderedScenario struct {
	Position  int      `json:"position"`
	Name      string   `json:"name"`
	Operation string   `json:"operation"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order <contract-dir>",
		Short: "Print the order scenarios run in",
		Long: `Compile the CUE contract in <contract-dir> and print its scenarios in
dependency order: every producer before every consumer it links to.

Exit codes:
  0 - order printed
  1 - the links form a cycle
  2 - the contract could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(rootOpts, args[0], cmd)
		},
	}
}

func runOrder(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	contract, err := compiler.LoadContractDir(dir)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}
	f.VerboseLog("Loaded %d scenario(s) and %d link(s) from %s", len(contract.Scenarios), len(contract.Links), dir)

	g, err := graph.Build(contract.Links)
	if err != nil {
		var cycleErr *graph.CycleError
		if errors.As(err, &cycleErr) {
			return f.Error(ExitFailure, ErrCodeCycle, err.Error(), cycleErr.Links)
		}
		return f.Error(ExitFailure, ErrCodeInvalid, err.Error(), nil)
	}
	sorted, err := g.SortScenarios(contract.Scenarios)
	if err != nil {
		return f.Error(ExitFailure, ErrCodeInvalid, err.Error(), nil)
	}

	out := make([]OrderedScenario, len(sorted))
	for i, s := range sorted {
		entry := OrderedScenario{Position: i + 1, Name: s.Name, Operation: s.Operation.String()}
		for _, dep := range g.Dependencies(s.Operation) {
			entry.DependsOn = append(entry.DependsOn, dep.String())
		}
		out[i] = entry
	}

	return f.Success(out, func(w io.Writer) {
		if len(out) == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return
		}
		for _, s := range out {
			fmt.Fprintf(w, "%3d. %s  [%s]\n", s.Position, s.Name, s.Operation)
			for _, d := range s.DependsOn {
				fmt.Fprintf(w, "       after %s\n", d)
			}
		}
	})
}
