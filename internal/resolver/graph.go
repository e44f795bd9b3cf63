// Package resolver builds the module dependency graph and derives start and
// stop order from it (§4.5).
package resolver

import (
	"fmt"
	"sort"

	"github.com/iruldev/modhost/internal/registry"
)

// CyclicDependenciesError reports every cycle detected while building or
// validating a graph.
type CyclicDependenciesError struct {
	Cycles [][]uint64
}

func (e *CyclicDependenciesError) Error() string {
	return fmt.Sprintf("resolver: %d cyclic dependency chain(s) detected", len(e.Cycles))
}

// DependencyGraph is a directed graph of module ids where an edge
// depender→dependency means depender declared a non-optional dependency
// that dependency satisfies.
type DependencyGraph struct {
	nodes map[uint64]struct{}
	edges map[uint64][]uint64 // depender -> dependencies
}

func newGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[uint64]struct{}),
		edges: make(map[uint64][]uint64),
	}
}

// NewEmptyGraph returns an empty graph, used as an Engine's initial state
// before any module has been installed.
func NewEmptyGraph() *DependencyGraph {
	return newGraph()
}

func (g *DependencyGraph) addNode(id uint64) {
	g.nodes[id] = struct{}{}
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = nil
	}
}

func (g *DependencyGraph) addEdge(depender, dependency uint64) {
	g.addNode(depender)
	g.addNode(dependency)
	g.edges[depender] = append(g.edges[depender], dependency)
}

// clone returns a deep copy, used by Validate to probe a candidate without
// mutating the live graph.
func (g *DependencyGraph) clone() *DependencyGraph {
	out := newGraph()
	for id := range g.nodes {
		out.addNode(id)
	}
	for from, tos := range g.edges {
		out.edges[from] = append([]uint64(nil), tos...)
	}
	return out
}

// BuildGraph implements §4.5's build_graph: iterate the registry, and for
// each module's non-optional dependencies, add an edge when find_compatible
// resolves it. An unsatisfied non-optional dependency is simply omitted —
// the module remains INSTALLED, a concern of the lifecycle engine, not the
// graph. The resulting graph must be acyclic.
func BuildGraph(reg *registry.Registry) (*DependencyGraph, error) {
	g := newGraph()

	for _, m := range reg.GetAll() {
		g.addNode(m.ID())
		for _, dep := range m.Manifest().NonOptionalDependencies() {
			target, err := reg.FindCompatible(dep.Name, dep.Range)
			if err != nil {
				continue
			}
			g.addEdge(m.ID(), target.ID())
		}
	}

	if cycles := g.DetectCycles(); len(cycles) > 0 {
		return nil, &CyclicDependenciesError{Cycles: cycles}
	}
	return g, nil
}

// Validate implements §4.5's validate(candidate): clone the graph, add the
// candidate module with its proposed edges, and check acyclicity. Used to
// gate install before the candidate is actually registered.
func (g *DependencyGraph) Validate(candidate uint64, dependencies []uint64) error {
	probe := g.clone()
	probe.addNode(candidate)
	for _, dep := range dependencies {
		probe.addEdge(candidate, dep)
	}
	if cycles := probe.DetectCycles(); len(cycles) > 0 {
		return &CyclicDependenciesError{Cycles: cycles}
	}
	return nil
}

// DetectCycles runs iterative DFS with an explicit recursion stack; every
// back-edge encountered reports the cycle as an ordered list of module ids.
func (g *DependencyGraph) DetectCycles() [][]uint64 {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully explored
	)

	color := make(map[uint64]int, len(g.nodes))
	var cycles [][]uint64

	ids := g.sortedNodeIDs()

	type frame struct {
		node    uint64
		edgeIdx int
	}

	for _, start := range ids {
		if color[start] != white {
			continue
		}

		stack := []frame{{node: start, edgeIdx: 0}}
		path := []uint64{start}
		color[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.edges[top.node]

			if top.edgeIdx >= len(children) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}

			child := children[top.edgeIdx]
			top.edgeIdx++

			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{node: child, edgeIdx: 0})
				path = append(path, child)
			case gray:
				cycles = append(cycles, extractCycle(path, child))
			case black:
				// already fully explored via another path, not a cycle
			}
		}
	}

	return cycles
}

func extractCycle(path []uint64, backTo uint64) []uint64 {
	for i, id := range path {
		if id == backTo {
			cycle := append([]uint64(nil), path[i:]...)
			return append(cycle, backTo)
		}
	}
	return append([]uint64(nil), backTo)
}

func (g *DependencyGraph) sortedNodeIDs() []uint64 {
	ids := make([]uint64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetStartOrder implements Kahn's algorithm with a deterministic
// ascending-id tie-break on the ready queue, per §4.5.
func (g *DependencyGraph) GetStartOrder() []uint64 {
	inDegree := make(map[uint64]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	// An edge depender->dependency means dependency must start before
	// depender, so the Kahn in-degree we walk down is depender's count of
	// unresolved dependencies.
	for depender, deps := range g.edges {
		inDegree[depender] = len(deps)
	}

	// reverse adjacency: dependency -> dependers, so finishing a
	// dependency can decrement its dependers' in-degree.
	dependers := make(map[uint64][]uint64, len(g.nodes))
	for depender, deps := range g.edges {
		for _, dep := range deps {
			dependers[dep] = append(dependers[dep], depender)
		}
	}

	ready := make([]uint64, 0, len(g.nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]uint64, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, depender := range dependers[next] {
			inDegree[depender]--
			if inDegree[depender] == 0 {
				ready = append(ready, depender)
			}
		}
	}

	return order
}

// GetStopOrder returns the reverse of GetStartOrder.
func (g *DependencyGraph) GetStopOrder() []uint64 {
	start := g.GetStartOrder()
	out := make([]uint64, len(start))
	for i, id := range start {
		out[len(start)-1-i] = id
	}
	return out
}

// Dependencies returns the dependency ids a module declares an edge to, in
// insertion order.
func (g *DependencyGraph) Dependencies(id uint64) []uint64 {
	return append([]uint64(nil), g.edges[id]...)
}
