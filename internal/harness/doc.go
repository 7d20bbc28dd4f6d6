// Package harness runs contract suites against stubbed APIs.
//
// A suite is a YAML file holding a CUE contract (inline or as a directory),
// the canned responses the stub API returns and expr-lang expectations over
// the engine's report:
//
//	name: pet lifecycle
//	contract: |
//	  operation: createPet: {method: "POST", path: "/pets"}
//	  scenario: [{name: "create pet", operation: "createPet", status: 201}]
//	stubs:
//	  - request: POST /pets
//	    responses:
//	      - {status: 201, body: {id: p-1}}
//	expect:
//	  - verdicts["create pet"] == "passed"
//
// Expectations see three variables: verdicts (scenario name to verdict),
// runs (scenario name to run count) and order (scenario names as run).
// A suite without expectations passes when every scenario passed.
//
// Runs are deterministic: a fixed run ID, a fresh logical clock and a
// sleeper that never waits. RunWithGolden compares the resulting trace
// with testdata/golden/<suite>.golden.
package harness
