package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/linkage/internal/compiler"
	"github.com/roach88/linkage/internal/ir"
)

// CycleError reports a cyclic link set. Cycles holds every cycle found,
// one per back edge, each closed by repeating its first operation.
type CycleError struct {
	Cycles [][]ir.OperationReference
	Links  []string
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		names := make([]string, len(c))
		for i, ref := range c {
			names[i] = ref.String()
		}
		parts = append(parts, strings.Join(names, " → "))
	}
	return fmt.Sprintf("link graph has %d cycle(s): %s (links: %s)",
		len(e.Cycles), strings.Join(parts, "; "), strings.Join(e.Links, ", "))
}

// Graph is an acyclic producer -> consumer graph over operation identities.
type Graph struct {
	g     *compiler.Graph[ir.OperationReference]
	preds map[ir.OperationReference][]ir.OperationReference
	links []ir.Link
}

// Build constructs the dependency graph of links. Edges run from each link's
// ByOperation to its ForOperation, keyed by operation identity, in link
// order. Any cycle fails construction with *CycleError and no graph.
func Build(links []ir.Link) (*Graph, error) {
	g := compiler.NewGraph[ir.OperationReference]()
	preds := make(map[ir.OperationReference][]ir.OperationReference)
	edgeLinks := make(map[[2]ir.OperationReference][]string)

	for _, l := range links {
		from, to := l.ByOperation.Identity(), l.ForOperation.Identity()
		g.AddNode(from)
		g.AddNode(to)
		key := [2]ir.OperationReference{from, to}
		if _, seen := edgeLinks[key]; !seen {
			preds[to] = append(preds[to], from)
		}
		g.AddEdge(from, to)
		edgeLinks[key] = append(edgeLinks[key], l.Name)
	}

	if cycles := compiler.FindAllCycles(g); len(cycles) > 0 {
		err := &CycleError{Cycles: cycles}
		seen := make(map[string]bool)
		for _, c := range cycles {
			for i := 1; i < len(c); i++ {
				for _, name := range edgeLinks[[2]ir.OperationReference{c[i-1], c[i]}] {
					if !seen[name] {
						seen[name] = true
						err.Links = append(err.Links, name)
					}
				}
			}
		}
		return nil, err
	}

	out := make([]ir.Link, len(links))
	copy(out, links)
	return &Graph{g: g, preds: preds, links: out}, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBuild(links []ir.Link) *Graph {
	g, err := Build(links)
	if err != nil {
		panic(err)
	}
	return g
}

// Links returns the links the graph was built from, in declaration order.
func (g *Graph) Links() []ir.Link {
	out := make([]ir.Link, len(g.links))
	copy(out, g.links)
	return out
}

// Operations returns every operation identity in the graph in insertion order.
func (g *Graph) Operations() []ir.OperationReference {
	return g.g.Nodes()
}

// Dependencies returns the operations that must run before ref.
func (g *Graph) Dependencies(ref ir.OperationReference) []ir.OperationReference {
	deps := g.preds[ref.Identity()]
	out := make([]ir.OperationReference, len(deps))
	copy(out, deps)
	return out
}

// Dependents returns the operations that consume ref's output.
func (g *Graph) Dependents(ref ir.OperationReference) []ir.OperationReference {
	return g.g.Successors(ref.Identity())
}

// IncomingLinks returns the links whose consumer is ref, in declaration order.
func (g *Graph) IncomingLinks(ref ir.OperationReference) []ir.Link {
	id := ref.Identity()
	var out []ir.Link
	for _, l := range g.links {
		if l.ForOperation.Identity() == id {
			out = append(out, l)
		}
	}
	return out
}

// SortScenarios returns scenarios ordered so that, for every link, all
// scenarios of its producer precede all scenarios of its consumer, including
// through chains of operations that have no scenarios of their own.
//
// Scenarios of one operation identity are emitted together in input order.
// Among operations ready at the same time, input order of their first
// scenario decides; operations known only to the graph follow in link order.
// Scenarios for operations absent from the graph are kept. Nothing is dropped.
func (g *Graph) SortScenarios(scenarios []ir.Scenario) ([]ir.Scenario, error) {
	rank := make(map[ir.OperationReference]int)
	groups := make(map[ir.OperationReference][]ir.Scenario)
	var nodes []ir.OperationReference

	for _, s := range scenarios {
		id := s.Operation.Identity()
		if _, ok := rank[id]; !ok {
			rank[id] = len(nodes)
			nodes = append(nodes, id)
		}
		groups[id] = append(groups[id], s)
	}
	for _, id := range g.g.Nodes() {
		if _, ok := rank[id]; !ok {
			rank[id] = len(nodes)
			nodes = append(nodes, id)
		}
	}

	inDegree := make(map[ir.OperationReference]int, len(nodes))
	for _, id := range nodes {
		for _, s := range g.g.Successors(id) {
			inDegree[s]++
		}
	}

	var ready []ir.OperationReference
	for _, id := range nodes {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	ordered := make([]ir.Scenario, 0, len(scenarios))
	visited := 0
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return rank[ready[i]] < rank[ready[j]] })
		cur := ready[0]
		ready = ready[1:]
		visited++
		ordered = append(ordered, groups[cur]...)

		for _, s := range g.g.Successors(cur) {
			inDegree[s]--
			if inDegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}

	if visited != len(nodes) || len(ordered) != len(scenarios) {
		return nil, fmt.Errorf("dependency sort emitted %d of %d operations (%d of %d scenarios)",
			visited, len(nodes), len(ordered), len(scenarios))
	}
	return ordered, nil
}
