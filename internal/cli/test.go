package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/linkage/internal/harness"
	"github.com/roach88/linkage/internal/metrics"
	"github.com/roach88/linkage/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Parallel  int    // suites run at once
	GoldenDir string // directory of <suite>.golden files
	Update    bool   // rewrite golden files
}

// SuiteResult is the outcome of one suite file.
type SuiteResult struct {
	File     string            `json:"file"`
	Name     string            `json:"name,omitempty"`
	Pass     bool              `json:"pass"`
	Verdicts map[string]string `json:"verdicts,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// TestResult is the output of the test command.
type TestResult struct {
	Suites  []SuiteResult  `json:"suites"`
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Total   int            `json:"total"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <suite.yaml>...",
		Short: "Run harness suites",
		Long: `Run harness suites against their stubbed responses. Independent suites
run concurrently; each suite's scenarios run in dependency order.

Exit codes:
  0 - all suites passed
  1 - one or more suites failed
  2 - command error (invalid config, unreadable ledger, etc.)

Examples:
  linkage test suites/*.yaml
  linkage test suites/pets.yaml --golden-dir suites/golden --update
  linkage test suites/*.yaml --config linkage.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "number of suites run at once")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "compare traces with <dir>/<suite>.golden")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files instead of comparing")

	return cmd
}

func runTests(opts *TestOptions, files []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Parallel < 1 {
		return f.Error(ExitCommandError, ErrCodeInvalid, fmt.Sprintf("--parallel must be at least 1, got %d", opts.Parallel), nil)
	}
	if opts.Update && opts.GoldenDir == "" {
		return f.Error(ExitCommandError, ErrCodeInvalid, "--update requires --golden-dir", nil)
	}
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	hopts := []harness.Option{
		harness.WithRetryPolicy(cfg.RetryPolicy()),
		harness.WithMaxRuns(cfg.Engine.MaxRuns),
	}
	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New()
		hopts = append(hopts, harness.WithMetrics(rec))
	}
	if cfg.Ledger.Path != "" {
		st, err := store.Open(cfg.Ledger.Path)
		if err != nil {
			return f.Error(ExitCommandError, ErrCodeLedger, err.Error(), nil)
		}
		defer st.Close()
		hopts = append(hopts, harness.WithLedger(st))
	}
	h := harness.New(hopts...)

	results := make([]SuiteResult, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.Parallel)
	for i, file := range files {
		g.Go(func() error {
			results[i] = runSuite(ctx, h, opts, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return f.Error(ExitCommandError, ErrCodeInvalid, err.Error(), nil)
	}

	out := TestResult{Suites: results, Total: len(results)}
	for _, r := range results {
		f.VerboseLog("%s: pass=%t", r.File, r.Pass)
		if r.Pass {
			out.Passed++
		} else {
			out.Failed++
		}
	}
	if rec != nil {
		out.Metrics = gatherMetrics(rec)
	}

	if err := f.Success(out, func(w io.Writer) { writeTests(w, out) }); err != nil {
		return err
	}
	if out.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d of %d suite(s) failed", ErrCodeFailed, out.Failed, out.Total))
	}
	return nil
}

func runSuite(ctx context.Context, h *harness.Harness, opts *TestOptions, file string) SuiteResult {
	res := SuiteResult{File: file}
	suite, err := harness.LoadSuite(file)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res
	}
	res.Name = suite.Name

	result, err := h.Run(ctx, suite)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res
	}
	res.Pass = result.Pass
	res.Verdicts = result.Verdicts
	res.Errors = result.Errors

	if opts.GoldenDir != "" {
		if err := checkGolden(opts, suite.Name, result); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, err.Error())
		}
	}
	return res
}

// checkGolden compares or rewrites <golden-dir>/<name>.golden.
func checkGolden(opts *TestOptions, name string, result *harness.Result) error {
	snapshot, err := harness.Snapshot(name, result)
	if err != nil {
		return fmt.Errorf("golden snapshot: %w", err)
	}
	path := filepath.Join(opts.GoldenDir, name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		return os.WriteFile(path, snapshot, 0o644)
	}
	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), snapshot) {
		return fmt.Errorf("trace does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

// gatherMetrics flattens the recorder's registry to name{labels} -> value.
func gatherMetrics(rec *metrics.Recorder) map[string]any {
	families, err := rec.Registry().Gather()
	if err != nil {
		return nil
	}
	out := make(map[string]any)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			var labels string
			for _, lp := range m.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}
			if labels != "" {
				key += "{" + labels + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[key+"_count"] = m.GetHistogram().GetSampleCount()
				out[key+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out
}

func writeTests(w io.Writer, result TestResult) {
	for _, s := range result.Suites {
		name := s.Name
		if name == "" {
			name = filepath.Base(s.File)
		}
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All suites passed")
	}
}
