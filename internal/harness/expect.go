package harness

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/roach88/linkage/internal/engine"
)

// expectEnv is what expectation expressions can read.
func expectEnv(report *engine.Report) map[string]any {
	order := report.Order
	if order == nil {
		order = []string{}
	}
	return map[string]any{
		"verdicts": report.Verdicts(),
		"runs":     report.Runs(),
		"order":    order,
	}
}

// evalExpect evaluates one boolean expectation.
func evalExpect(expression string, env map[string]any) (bool, error) {
	expression = strings.TrimSpace(expression)
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile expectation %q: %w", expression, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval expectation %q: %w", expression, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("expectation %q did not return bool (got %T: %v)", expression, output, output)
	}
	return result, nil
}

// checkExpectations records a failure for every expectation that does not
// hold. Without expectations every scenario must pass.
func checkExpectations(result *Result, expectations []string, report *engine.Report) {
	if len(expectations) == 0 {
		for _, res := range report.Results {
			if res.Verdict != engine.VerdictPassed {
				result.AddError(fmt.Sprintf("scenario %q %s: %s",
					res.Scenario, res.Verdict, strings.Join(res.Failures, "; ")))
			}
		}
		return
	}
	env := expectEnv(report)
	for _, e := range expectations {
		ok, err := evalExpect(e, env)
		if err != nil {
			result.AddError(err.Error())
			continue
		}
		if !ok {
			result.AddError(fmt.Sprintf("expectation %q does not hold", strings.TrimSpace(e)))
		}
	}
}
