package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuite_Valid(t *testing.T) {
	suite, err := ParseSuite([]byte(`
name: s
contract: 'operation: a: {method: "GET", path: "/a"}'
stubs:
  - request: get /a
    responses:
      - {status: 200, body: {n: 1}}
expect:
  - 'verdicts["x"] == "passed"'
max_runs: 4
`))
	require.NoError(t, err)
	assert.Equal(t, "s", suite.Name)
	assert.Equal(t, 4, suite.MaxRuns)
	require.Len(t, suite.Stubs, 1)

	method, path, err := suite.Stubs[0].Line()
	require.NoError(t, err)
	assert.Equal(t, "GET", method)
	assert.Equal(t, "/a", path)
	assert.Equal(t, 200, suite.Stubs[0].Responses[0].Status)
}

func TestParseSuite_Errors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"unknown field", "name: s\ncontract: x\nscenarioz: []\n", "field scenarioz not found"},
		{"missing name", "contract: x\n", "name is required"},
		{"no contract", "name: s\n", "one of contract or contract_dir is required"},
		{"both contracts", "name: s\ncontract: x\ncontract_dir: d\n", "mutually exclusive"},
		{"bad request line", "name: s\ncontract: x\nstubs: [{request: '/a', responses: [{status: 200}]}]\n", `must be "METHOD /path"`},
		{"no responses", "name: s\ncontract: x\nstubs: [{request: 'GET /a'}]\n", "at least one response"},
		{"empty expectation", "name: s\ncontract: x\nexpect: ['  ']\n", "expression is empty"},
		{"negative runs", "name: s\ncontract: x\nmax_runs: -1\n", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

// TestLoadSuite_ContractDir tests that contract_dir resolves against the
// suite file and loads the CUE package there.
func TestLoadSuite_ContractDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "contract"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contract", "api.cue"), []byte(`
operation: ping: {method: "GET", path: "/ping"}
scenario: [{name: "ping", operation: "ping", status: 200}]
`), 0o644))
	suitePath := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(`
name: ping
contract_dir: contract
stubs:
  - request: GET /ping
    responses: [{status: 200}]
`), 0o644))

	suite, err := LoadSuite(suitePath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "contract"), suite.ContractDir)

	result, err := Run(suite)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestLoadSuite_Missing(t *testing.T) {
	_, err := LoadSuite("testdata/suites/nope.yaml")
	assert.ErrorContains(t, err, "failed to read suite file")
}
