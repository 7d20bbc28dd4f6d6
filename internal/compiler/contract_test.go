package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/ir"
)

const petstoreCUE = `
operation: createPet: {method: "POST", path: "/pets"}
operation: getPet: {method: "get", path: "/pets/{petId}"}
operation: getMonitor: {method: "GET", path: "/monitor/{id}"}

link: GetCreatedPet: {
	producer: {operation: "createPet", status: 201}
	consumer: {operation: "getPet", status: 200}
	parameters: petId: "$response.body#/id"
	description: "fetch the pet that was just created"
}

scenario: [
	{
		name:      "get pet"
		feature:   "pets"
		operation: "getPet"
		status:    200
		assertions: [{path: "/name", directive: "exact: Rex"}]
	},
	{
		name:      "create pet"
		feature:   "pets"
		operation: "createPet"
		status:    201
		request: body: {name: "Rex", age: 3}
		response: headers: "Content-Type": "application/json"
	},
	{
		name:      "create pet fallback"
		operation: "createPet"
		status:    "default"
	},
]
`

func TestCompileContract_Basic(t *testing.T) {
	c, err := CompileContractSource("petstore.cue", petstoreCUE)
	require.NoError(t, err)

	assert.Equal(t, []string{"createPet", "getPet", "getMonitor"}, c.OperationIDs)
	assert.Equal(t, "GET", c.Operations["getPet"].Method, "method is upper-cased")

	require.Len(t, c.Links, 1)
	link := c.Links[0]
	assert.Equal(t, "GetCreatedPet", link.Name)
	assert.Equal(t, ir.NewOperationReference("POST", "/pets", 201, "createPet"), link.ByOperation)
	assert.Equal(t, ir.NewOperationReference("GET", "/pets/{petId}", 200, "getPet"), link.ForOperation)
	assert.Equal(t, "fetch the pet that was just created", link.Description)
	assert.Contains(t, link.Parameters, "petId")

	require.Len(t, c.Scenarios, 3)
	assert.Equal(t, "get pet", c.Scenarios[0].Name, "declaration order is preserved")
	assert.Equal(t, "/pets/{petId}", c.Scenarios[0].Request.Path, "path defaults to the operation")
	assert.Equal(t, "GET", c.Scenarios[0].Request.Method)
	assert.Equal(t, []ir.Assertion{{Path: "/name", Directive: "exact: Rex"}}, c.Scenarios[0].Assertions)

	create := c.Scenarios[1]
	assert.Equal(t, 201, create.Response.Status)
	assert.Equal(t, map[string]any{"name": "Rex", "age": 3.0}, create.Request.Body)
	assert.Equal(t, "application/json", create.Response.Headers["Content-Type"])

	assert.Equal(t, ir.StatusDefault, c.Scenarios[2].Operation.Status)
}

func TestCompileContract_AsyncScenario(t *testing.T) {
	c, err := CompileContractSource("async.cue", `
operation: submit: {method: "POST", path: "/jobs"}
scenario: [{
	name: "submit job", operation: "submit", status: 201
	async: {acceptedStatus: 202, linkRel: "monitor"}
}]
`)
	require.NoError(t, err)
	require.NotNil(t, c.Scenarios[0].Async)
	assert.Equal(t, 202, c.Scenarios[0].Async.Accepted())
	assert.Equal(t, "monitor", c.Scenarios[0].Async.Rel())
}

func TestCompileContract_Errors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
		wantMsg   string
	}{
		{
			name:      "no operations",
			src:       `link: {}`,
			wantField: "operation",
			wantMsg:   "at least one operation",
		},
		{
			name:      "missing method",
			src:       `operation: a: {path: "/a"}`,
			wantField: "operation.a.method",
			wantMsg:   "method is required",
		},
		{
			name:      "relative path",
			src:       `operation: a: {method: "GET", path: "a"}`,
			wantField: "operation.a.path",
			wantMsg:   "must start with /",
		},
		{
			name: "unknown link operation",
			src: `operation: a: {method: "GET", path: "/a"}
link: L: {producer: {operation: "a"}, consumer: {operation: "nope"}}`,
			wantField: "link.L.consumer.operation",
			wantMsg:   `unknown operation "nope"`,
		},
		{
			name: "missing path parameter",
			src: `operation: a: {method: "POST", path: "/a"}
operation: b: {method: "GET", path: "/b/{id}"}
link: L: {producer: {operation: "a"}, consumer: {operation: "b"}}`,
			wantField: "link.L",
			wantMsg:   "missing mandatory path parameter",
		},
		{
			name: "bad status",
			src: `operation: a: {method: "GET", path: "/a"}
scenario: [{name: "s", operation: "a", status: "sometimes"}]`,
			wantField: `scenario["s"].status`,
			wantMsg:   "must be an integer",
		},
		{
			name: "status out of range",
			src: `operation: a: {method: "GET", path: "/a"}
scenario: [{name: "s", operation: "a", status: 42}]`,
			wantField: `scenario["s"].status`,
			wantMsg:   "out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileContractSource("bad.cue", tt.src)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T: %v", err, err)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.Contains(t, ce.Message, tt.wantMsg)
		})
	}
}

// TestCompileContract_CUEErrorHasPosition tests that CUE conflicts surface
// with a source position.
func TestCompileContract_CUEErrorHasPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
operation: a: {method: "GET", path: "/a"}
operation: a: {method: "POST"}
`, cue.Filename("conflict.cue"))

	_, err := CompileContract(v)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "conflict.cue")
}

func TestCompileContract_LookupSubValue(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`contract: { operation: a: {method: "GET", path: "/a"} }`)

	c, err := CompileContract(v.LookupPath(cue.ParsePath("contract")))
	require.NoError(t, err)
	assert.Contains(t, c.Operations, "a")
}

func TestLoadContractDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "petstore.cue"), []byte(petstoreCUE), 0o644))

	c, err := LoadContractDir(dir)
	require.NoError(t, err)
	assert.Len(t, c.Scenarios, 3)
}

func TestLoadContractDir_NotFound(t *testing.T) {
	_, err := LoadContractDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
