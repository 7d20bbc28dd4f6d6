// Package engine runs contract scenarios in dependency order.
//
// For each scenario, in the order the link graph dictates, the engine:
//
//  1. builds the request, filling parameters from the exchanges of the
//     producers its incoming links name
//  2. sends it and, for deferred operations, polls the monitor through the
//     async handler until a final response is available
//  3. checks the response status and runs the scenario's assertions
//
// Assertions that count observations across runs ask for more runs by
// returning Success. The engine repeats such a scenario until its
// assertions report Exhausted or the per-scenario run quota is spent.
// Repetitions of one scenario are strictly sequential so ledger counts
// stay exact. Ledger scopes are the scenario name, prefixed with
// WithScopePrefix when engines share a ledger.
//
// Exchanges are stamped with a logical clock, never wall time, so reports
// taken with a fixed run ID generator are byte-identical between runs.
package engine
