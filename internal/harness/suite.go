package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/ir"
)

// DefaultRunID names harness runs that do not set run_id.
const DefaultRunID = "harness-run"

// Suite is one harness file.
type Suite struct {
	// Name identifies the suite and its golden file.
	Name string `yaml:"name"`

	// Description says what the suite checks.
	Description string `yaml:"description,omitempty"`

	// Contract is inline CUE contract source.
	Contract string `yaml:"contract,omitempty"`

	// ContractDir is a CUE package directory, relative to the suite file.
	// Exactly one of Contract and ContractDir is set.
	ContractDir string `yaml:"contract_dir,omitempty"`

	// Patterns registers named JSON Schemas for dataType directives.
	Patterns map[string]any `yaml:"patterns,omitempty"`

	// Stubs are the responses the stub API returns.
	Stubs []Stub `yaml:"stubs"`

	// Expect holds expr-lang boolean expressions over the report.
	Expect []string `yaml:"expect,omitempty"`

	// MaxRuns overrides the engine's per-scenario run quota.
	MaxRuns int `yaml:"max_runs,omitempty"`

	// RunID fixes the run ID. Defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// Stub queues responses for one request line. Responses are returned in
// order and the last one repeats.
type Stub struct {
	// Request is "METHOD /path".
	Request   string            `yaml:"request"`
	Responses []ir.HTTPResponse `yaml:"responses"`
}

// Line splits Request into method and path.
func (s Stub) Line() (method, path string, err error) {
	method, path, ok := strings.Cut(strings.TrimSpace(s.Request), " ")
	path = strings.TrimSpace(path)
	if !ok || method == "" || !strings.HasPrefix(path, "/") {
		return "", "", fmt.Errorf("request %q must be \"METHOD /path\"", s.Request)
	}
	return strings.ToUpper(method), path, nil
}

// LoadSuite reads a suite file. Unknown fields are rejected, and
// ContractDir is resolved against the file's directory.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, err
	}
	if suite.ContractDir != "" && !filepath.IsAbs(suite.ContractDir) {
		suite.ContractDir = filepath.Join(filepath.Dir(path), suite.ContractDir)
	}
	return suite, nil
}

// ParseSuite decodes and validates suite YAML.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := suite.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &suite, nil
}

// Validate checks the suite shape. It does not compile the contract.
func (s *Suite) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch {
	case s.Contract == "" && s.ContractDir == "":
		errs = append(errs, errors.New("one of contract or contract_dir is required"))
	case s.Contract != "" && s.ContractDir != "":
		errs = append(errs, errors.New("contract and contract_dir are mutually exclusive"))
	}
	for i, stub := range s.Stubs {
		if _, _, err := stub.Line(); err != nil {
			errs = append(errs, fmt.Errorf("stubs[%d]: %w", i, err))
		}
		if len(stub.Responses) == 0 {
			errs = append(errs, fmt.Errorf("stubs[%d]: at least one response is required", i))
		}
	}
	for i, e := range s.Expect {
		if strings.TrimSpace(e) == "" {
			errs = append(errs, fmt.Errorf("expect[%d]: expression is empty", i))
		}
	}
	if s.MaxRuns < 0 {
		errs = append(errs, fmt.Errorf("max_runs must not be negative, got %d", s.MaxRuns))
	}
	return errors.Join(errs...)
}

// compile loads the suite's contract and rejects authoring mistakes.
func (s *Suite) compile() (*compiler.Contract, error) {
	var (
		contract *compiler.Contract
		err      error
	)
	if s.ContractDir != "" {
		contract, err = compiler.LoadContractDir(s.ContractDir)
	} else {
		contract, err = compiler.CompileContractSource(s.Name+".cue", s.Contract)
	}
	if err != nil {
		return nil, fmt.Errorf("compile contract: %w", err)
	}
	if problems := compiler.Validate(contract); len(problems) > 0 {
		errs := make([]error, len(problems))
		for i, p := range problems {
			errs[i] = p
		}
		return nil, fmt.Errorf("invalid contract: %w", errors.Join(errs...))
	}
	return contract, nil
}
