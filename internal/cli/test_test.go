package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	petsSuite = "../harness/testdata/suites/pets.yaml"
	jobsSuite = "../harness/testdata/suites/jobs.yaml"
)

const failingSuite = `name: wrong-name
contract: |
  operation: getPet: {method: "GET", path: "/pets/1"}
  scenario: [{
      name: "get pet", operation: "getPet", status: 200
      assertions: [{path: "/name", directive: "exact: Rex"}]
  }]
stubs:
  - request: GET /pets/1
    responses:
      - {status: 200, body: {name: Fido}}
`

func testResult(t *testing.T, out string) TestResult {
	t.Helper()
	resp := decodeResponse(t, out)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTest_AllPass(t *testing.T) {
	out, err := execute(t, "test", petsSuite, jobsSuite)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ pet-lifecycle")
	assert.Contains(t, out, "✓ async-job")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

// TestTest_ResultsKeepInputOrder tests that concurrent suites are reported
// in argument order.
func TestTest_ResultsKeepInputOrder(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "--parallel", "2", jobsSuite, petsSuite, jobsSuite)
	require.NoError(t, err)

	result := testResult(t, out)
	require.Len(t, result.Suites, 3)
	assert.Equal(t, "async-job", result.Suites[0].Name)
	assert.Equal(t, "pet-lifecycle", result.Suites[1].Name)
	assert.Equal(t, "async-job", result.Suites[2].Name)
	assert.Equal(t, 3, result.Passed)
}

func TestTest_Failure(t *testing.T) {
	bad := writeFile(t, t.TempDir(), "bad.yaml", failingSuite)

	out, err := execute(t, "test", petsSuite, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeFailed)
	assert.Contains(t, out, "✗ wrong-name")
	assert.Contains(t, out, `expected "Rex" but got "Fido"`)
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_UnreadableSuite(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	out, err := execute(t, "--format", "json", "test", missing)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	result := testResult(t, out)
	require.Len(t, result.Suites, 1)
	assert.False(t, result.Suites[0].Pass)
	assert.NotEmpty(t, result.Suites[0].Errors)
}

func TestTest_GoldenUpdateThenCompare(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")

	_, err := execute(t, "test", "--golden-dir", golden, "--update", petsSuite)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(golden, "pet-lifecycle.golden"))

	_, err = execute(t, "test", "--golden-dir", golden, petsSuite)
	require.NoError(t, err)

	writeFile(t, golden, "pet-lifecycle.golden", `{"suite":"other"}`)
	out, err := execute(t, "test", "--golden-dir", golden, petsSuite)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match")
}

func TestTest_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero parallel", []string{"--parallel", "0", petsSuite}, "--parallel must be at least 1"},
		{"update without dir", []string{"--update", petsSuite}, "--update requires --golden-dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"test"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTest_MetricsFromConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "linkage.yaml", "metrics:\n  enabled: true\n")

	out, err := execute(t, "--config", cfg, "--format", "json", "test", petsSuite)
	require.NoError(t, err)

	result := testResult(t, out)
	require.NotNil(t, result.Metrics)
	// pet-lifecycle runs two scenarios.
	assert.EqualValues(t, 2, result.Metrics["linkage_scenario_runs_count"])
	assert.Contains(t, result.Metrics, "linkage_matcher_results_total{kind=composite,result=exhausted}")
}
