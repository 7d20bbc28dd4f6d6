package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/matcher"
)

// DirectiveOptions holds flags for the directive command.
type DirectiveOptions struct {
	*RootOptions
	Body    string // JSON response body to check
	Runs    int    // how many times to check it
	Example bool   // print a string the regex accepts
}

// MatcherSummary describes one parsed matcher.
type MatcherSummary struct {
	Kind        string `json:"kind"`
	Exhaustible bool   `json:"exhaustible"`
	Detail      string `json:"detail,omitempty"`
}

// DirectiveResult is the output of the directive command.
type DirectiveResult struct {
	Path     string           `json:"path"`
	Matchers []MatcherSummary `json:"matchers"`
	Example  string           `json:"example,omitempty"`
	Results  []string         `json:"results,omitempty"`
	Failure  string           `json:"failure,omitempty"`
}

// NewDirectiveCommand creates the directive command.
func NewDirectiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DirectiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "directive <path> <directive>",
		Short: "Parse a matcher directive and optionally check a body",
		Long: `Parse a directive the way scenario assertions are parsed and list the
matchers it produces. With --body the matchers are run against that
response body, --runs times, sharing one exhaustion ledger.

Examples:
  linkage directive /id "dataType: uuid"
  linkage directive /name "exact: Rex, times: 2" --body '{"name":"Rex"}' --runs 2
  linkage directive /code "pattern: ^[A-Z]{2}[0-9]{3}$" --example`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDirective(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Body, "body", "", "JSON response body to check")
	cmd.Flags().IntVar(&opts.Runs, "runs", 1, "number of checks against --body")
	cmd.Flags().BoolVar(&opts.Example, "example", false, "print an example value for a pattern directive")

	return cmd
}

func runDirective(opts *DirectiveOptions, path, directive string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Runs < 1 {
		return f.Error(ExitCommandError, ErrCodeInvalid, fmt.Sprintf("--runs must be at least 1, got %d", opts.Runs), nil)
	}

	mctx := matcher.NewContext(nil, matcher.WithScope("cli"), matcher.WithGoContext(cmd.Context()))
	composite, err := matcher.ParseComposite(path, directive, mctx)
	if err != nil {
		var perr *matcher.ParseError
		if errors.As(err, &perr) {
			return f.Error(ExitFailure, ErrCodeDirective, err.Error(), perr.Allowed)
		}
		return f.Error(ExitFailure, ErrCodeDirective, err.Error(), nil)
	}

	result := DirectiveResult{Path: path, Matchers: summarize(composite)}
	if opts.Example {
		example, err := matcher.ExampleFromDirective(directive)
		if err != nil {
			return f.Error(ExitFailure, ErrCodeDirective, err.Error(), nil)
		}
		result.Example = example
	}

	if opts.Body != "" {
		var body any
		if err := json.Unmarshal([]byte(opts.Body), &body); err != nil {
			return f.Error(ExitCommandError, ErrCodeInvalid, fmt.Sprintf("--body is not JSON: %v", err), nil)
		}
		values := mctx.WithValues(matcher.PairOperator{Response: ir.HTTPResponse{Status: 200, Body: body}})
		for i := 0; i < opts.Runs; i++ {
			r := composite.Execute(values)
			if m, ok := matcher.AsMisMatch(r); ok {
				result.Results = append(result.Results, "mismatch")
				result.Failure = m.Failure.Report()
				break
			}
			result.Results = append(result.Results, r.String())
		}
	}

	if err := f.Success(result, func(w io.Writer) { writeDirective(w, result) }); err != nil {
		return err
	}
	if result.Failure != "" {
		return NewExitError(ExitFailure, ErrCodeMismatch+": directive does not match body")
	}
	return nil
}

func summarize(c *matcher.CompositeMatcher) []MatcherSummary {
	out := make([]MatcherSummary, 0, len(c.Matchers))
	for _, m := range c.Matchers {
		s := MatcherSummary{Kind: string(m.Kind()), Exhaustible: m.CanBeExhausted()}
		switch v := m.(type) {
		case *matcher.EqualityMatcher:
			s.Detail = fmt.Sprintf("%s %s", v.Strategy, ir.Stringify(v.Expected))
		case *matcher.PatternMatcher:
			s.Detail = fmt.Sprintf("%s %s", v.Strategy, v.Pattern)
		case *matcher.RegexMatcher:
			s.Detail = v.Regex.String()
		case *matcher.RepetitionMatcher:
			s.Detail = fmt.Sprintf("%s x%d", v.Strategy, v.Times)
		}
		out = append(out, s)
	}
	return out
}

func writeDirective(w io.Writer, result DirectiveResult) {
	fmt.Fprintf(w, "%s\n", result.Path)
	for _, m := range result.Matchers {
		marker := "guard"
		if m.Exhaustible {
			marker = "exhaustible"
		}
		fmt.Fprintf(w, "  %-10s %-11s %s\n", m.Kind, marker, m.Detail)
	}
	if result.Example != "" {
		fmt.Fprintf(w, "example: %s\n", result.Example)
	}
	for i, r := range result.Results {
		fmt.Fprintf(w, "run %d: %s\n", i+1, r)
	}
	if result.Failure != "" {
		fmt.Fprintln(w, result.Failure)
	}
}
