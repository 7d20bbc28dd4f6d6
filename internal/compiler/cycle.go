package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/linkage/internal/ir"
)

// Graph is a directed graph over any comparable node type.
//
// Nodes and successor lists keep insertion order so that traversal, and
// therefore the reported cycles, are deterministic across runs. Successors
// that were never added as nodes are treated as leaves.
type Graph[N comparable] struct {
	nodes []N
	index map[N]int
	succ  map[N][]N
}

// NewGraph returns an empty graph.
func NewGraph[N comparable]() *Graph[N] {
	return &Graph[N]{
		index: make(map[N]int),
		succ:  make(map[N][]N),
	}
}

// FromAdjacency builds a graph from an ordered node list and an adjacency map.
// Nodes present only in the map are appended after order in map iteration
// order, so callers that need determinism should list every key in order.
func FromAdjacency[N comparable](order []N, adjacency map[N][]N) *Graph[N] {
	g := NewGraph[N]()
	for _, n := range order {
		g.AddNode(n)
	}
	for n := range adjacency {
		g.AddNode(n)
	}
	for _, n := range g.nodes {
		for _, s := range adjacency[n] {
			g.AddEdge(n, s)
		}
	}
	return g
}

// AddNode registers n. Adding an existing node is a no-op.
func (g *Graph[N]) AddNode(n N) {
	if _, ok := g.index[n]; ok {
		return
	}
	g.index[n] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddEdge adds from -> to. from is registered as a node; to is not, so a
// successor with no outgoing edges of its own stays a dangling leaf unless
// the caller adds it. Duplicate edges are ignored.
func (g *Graph[N]) AddEdge(from, to N) {
	g.AddNode(from)
	for _, s := range g.succ[from] {
		if s == to {
			return
		}
	}
	g.succ[from] = append(g.succ[from], to)
}

// HasNode reports whether n was added as a node.
func (g *Graph[N]) HasNode(n N) bool {
	_, ok := g.index[n]
	return ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph[N]) Nodes() []N {
	out := make([]N, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Successors returns the direct successors of n in insertion order.
func (g *Graph[N]) Successors(n N) []N {
	out := make([]N, len(g.succ[n]))
	copy(out, g.succ[n])
	return out
}

// FindAllCycles reports cycles in g using a depth-first search started from
// every node not yet visited, in insertion order.
//
// It reports ONE CYCLE PER BACK EDGE, not every elementary cycle: when the
// search follows an edge to a node on the current recursion stack, the stack
// slice from that node to the top, closed by the node again, is recorded and
// the search does not descend into that successor. Every node taking part in
// some cycle appears in at least one reported cycle, and the run is O(V+E)
// even on dense graphs where enumerating elementary cycles would explode.
//
// A self-loop is reported as [A, A]. An acyclic graph yields an empty slice.
func FindAllCycles[N comparable](g *Graph[N]) [][]N {
	cycles := [][]N{}
	visited := make(map[N]bool, len(g.nodes))
	onStack := make(map[N]int, len(g.nodes))
	var stack []N

	var visit func(n N)
	visit = func(n N) {
		visited[n] = true
		onStack[n] = len(stack)
		stack = append(stack, n)

		for _, s := range g.succ[n] {
			if pos, open := onStack[s]; open {
				cycle := make([]N, 0, len(stack)-pos+1)
				cycle = append(cycle, stack[pos:]...)
				cycle = append(cycle, s)
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[s] {
				visit(s)
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n)
	}

	for _, n := range g.nodes {
		if !visited[n] {
			visit(n)
		}
	}
	return cycles
}

// CycleWarning describes one cycle among link declarations.
type CycleWarning struct {
	Path    []string `json:"path"`    // Operations: ["POST /a", "GET /b", "POST /a"]
	Links   []string `json:"links"`   // Names of links forming the cycle edges
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeLinkCycles builds the producer -> consumer graph of links over
// operation identities and reports every cycle found.
//
// Unlike graph.Build this never fails; it is used by tooling that wants to
// list problems rather than reject the contract.
func AnalyzeLinkCycles(links []ir.Link) []CycleWarning {
	g := NewGraph[ir.OperationReference]()
	edgeLinks := make(map[[2]ir.OperationReference][]string)
	for _, l := range links {
		from, to := l.ByOperation.Identity(), l.ForOperation.Identity()
		g.AddNode(from)
		g.AddNode(to)
		g.AddEdge(from, to)
		key := [2]ir.OperationReference{from, to}
		edgeLinks[key] = append(edgeLinks[key], l.Name)
	}

	warnings := []CycleWarning{}
	for _, cycle := range FindAllCycles(g) {
		w := CycleWarning{}
		for i, n := range cycle {
			w.Path = append(w.Path, n.String())
			if i > 0 {
				w.Links = append(w.Links, edgeLinks[[2]ir.OperationReference{cycle[i-1], n}]...)
			}
		}
		if len(cycle) == 2 {
			w.Message = fmt.Sprintf("Self-referencing link detected: %s → %s", w.Path[0], w.Path[1])
		} else {
			w.Message = fmt.Sprintf("Link cycle detected: %s", strings.Join(w.Path, " → "))
		}
		warnings = append(warnings, w)
	}
	return warnings
}
