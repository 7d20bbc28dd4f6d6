package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/store"
)

// LedgerResult is the output of the ledger command. Scopes is set when no
// scope was given; Slots otherwise.
type LedgerResult struct {
	Path   string       `json:"path"`
	Scope  string       `json:"scope,omitempty"`
	Scopes []string     `json:"scopes,omitempty"`
	Slots  []store.Slot `json:"slots,omitempty"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger <db> [scope]",
		Short: "Inspect a persistent ledger",
		Long: `Inspect a ledger database written by 'linkage test' with ledger.path set.

Without a scope, lists every scope that holds entries. With a scope, replays
its slots in path then kind order, each with its entries in append order.

Examples:
  linkage ledger ./linkage.db
  linkage ledger ./linkage.db "create pet" --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := ""
			if len(args) == 2 {
				scope = args[1]
			}
			return runLedger(rootOpts, args[0], scope, cmd)
		},
	}
	return cmd
}

func runLedger(opts *RootOptions, path, scope string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	// Open creates missing databases; inspecting one should not.
	if _, err := os.Stat(path); err != nil {
		return f.Error(ExitCommandError, ErrCodeLedger, fmt.Sprintf("ledger not found: %s", path), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	result := LedgerResult{Path: path, Scope: scope}
	if scope == "" {
		if result.Scopes, err = st.Scopes(ctx); err != nil {
			return f.Error(ExitCommandError, ErrCodeLedger, err.Error(), nil)
		}
	} else {
		if result.Slots, err = st.ReplayLedger(ctx, scope); err != nil {
			return f.Error(ExitCommandError, ErrCodeLedger, err.Error(), nil)
		}
	}

	return f.Success(result, func(w io.Writer) { writeLedger(w, result) })
}

func writeLedger(w io.Writer, result LedgerResult) {
	if result.Scope == "" {
		if len(result.Scopes) == 0 {
			fmt.Fprintln(w, "Ledger is empty")
			return
		}
		fmt.Fprintf(w, "Scopes (%d):\n", len(result.Scopes))
		for _, s := range result.Scopes {
			fmt.Fprintf(w, "  %s\n", s)
		}
		return
	}

	if len(result.Slots) == 0 {
		fmt.Fprintf(w, "No entries for scope %q\n", result.Scope)
		return
	}
	fmt.Fprintf(w, "Scope %q:\n", result.Scope)
	for _, slot := range result.Slots {
		fmt.Fprintf(w, "  %s [%s]\n", slot.Key.Path, slot.Key.Kind)
		for _, e := range slot.Entries {
			fmt.Fprintf(w, "    %3d  %s\n", e.Seq, renderValue(e.Value))
		}
	}
}

func renderValue(v any) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
