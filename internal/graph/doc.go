// Package graph orders contract scenarios so that producers run before the
// consumers that need their output.
//
// A Graph is built once per contract from its links. Nodes are operation
// identities (OperationReference with the status cleared), so every status
// variant of an operation sorts as one unit. Build rejects cyclic link sets
// with a CycleError naming every cycle; a Graph that exists is acyclic and
// read-only.
//
// SortScenarios is a stable Kahn sort: among operations that are ready at the
// same time, the one whose first scenario appears earliest in the input wins.
// Sorting the same input twice always yields the same order, and a scenario
// list with no links comes back unchanged.
package graph
