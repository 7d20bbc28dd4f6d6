package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/compiler"
)

// LinkSummary describes one declared link.
type LinkSummary struct {
	Name        string   `json:"name"`
	Producer    string   `json:"producer"`
	Consumer    string   `json:"consumer"`
	Parameters  []string `json:"parameters,omitempty"`
	RequestBody bool     `json:"request_body,omitempty"`
	Description string   `json:"description,omitempty"`
}

// LinksResult is the output of the links command.
type LinksResult struct {
	Links    []LinkSummary              `json:"links"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
	Problems []compiler.ValidationError `json:"problems,omitempty"`
}

// NewLinksCommand creates the links command.
func NewLinksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "links <contract-dir>",
		Short: "List links, cycles and contract problems",
		Long: `Compile the CUE contract in <contract-dir>, list every link between
operations and report link cycles and authoring problems.

Exit codes:
  0 - no cycles or problems
  1 - cycles or problems found
  2 - the contract could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinks(rootOpts, args[0], cmd)
		},
	}
}

func runLinks(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	contract, err := compiler.LoadContractDir(dir)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeLoad, err.Error(), nil)
	}

	result := LinksResult{
		Links:    make([]LinkSummary, 0, len(contract.Links)),
		Cycles:   compiler.AnalyzeLinkCycles(contract.Links),
		Problems: compiler.Validate(contract),
	}
	for _, l := range contract.Links {
		summary := LinkSummary{
			Name:        l.Name,
			Producer:    l.ByOperation.String(),
			Consumer:    l.ForOperation.String(),
			RequestBody: l.RequestBody != nil,
			Description: l.Description,
		}
		for key := range l.Parameters {
			loc, name := l.Locate(key)
			summary.Parameters = append(summary.Parameters, fmt.Sprintf("%s.%s", loc, name))
		}
		sort.Strings(summary.Parameters)
		result.Links = append(result.Links, summary)
	}

	if err := f.Success(result, func(w io.Writer) { writeLinks(w, result) }); err != nil {
		return err
	}
	if n := len(result.Cycles) + len(result.Problems); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d cycle(s), %d problem(s)", len(result.Cycles), len(result.Problems)))
	}
	return nil
}

func writeLinks(w io.Writer, result LinksResult) {
	if len(result.Links) == 0 {
		fmt.Fprintln(w, "No links declared.")
	}
	for _, l := range result.Links {
		fmt.Fprintf(w, "%s: %s -> %s\n", l.Name, l.Producer, l.Consumer)
		for _, p := range l.Parameters {
			fmt.Fprintf(w, "    %s\n", p)
		}
		if l.RequestBody {
			fmt.Fprintln(w, "    body")
		}
	}
	for _, c := range result.Cycles {
		fmt.Fprintf(w, "✗ %s\n", c.Message)
	}
	for _, p := range result.Problems {
		fmt.Fprintf(w, "✗ %s\n", p.Error())
	}
}
