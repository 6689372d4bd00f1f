package sequence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/heimdalr/dag"
)

// ErrCycle is returned when the dependency graph is not acyclic.
var ErrCycle = errors.New("dependency cycle")

// Graph is a directed dependency graph. An edge A -> B means A depends on B,
// so B must be processed first. Node names are case-insensitive.
type Graph struct {
	nodes []string
	index map[string]int
	edges map[string][]string
	seen  map[string]map[string]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		edges: make(map[string][]string),
		seen:  make(map[string]map[string]struct{}),
	}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddNode registers a node. Declaration order drives traversal order.
func (g *Graph) AddNode(name string) {
	k := key(name)
	if _, ok := g.index[k]; ok {
		return
	}
	g.index[k] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from depends on to. Self-references and duplicates are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)

	f, t := key(from), key(to)
	if f == t {
		return
	}
	if g.seen[f] == nil {
		g.seen[f] = make(map[string]struct{})
	}
	if _, dup := g.seen[f][t]; dup {
		return
	}
	g.seen[f][t] = struct{}{}
	g.edges[f] = append(g.edges[f], t)
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Dependencies returns the direct dependencies of name in insertion order.
func (g *Graph) Dependencies(name string) []string {
	deps := g.edges[key(name)]
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, g.nodes[g.index[d]])
	}
	return out
}

// Order returns every node such that dependencies precede their dependents.
// It runs a depth-first traversal from each unvisited node in declaration order and
// emits nodes post-order. The visited set guarantees termination even on cyclic graphs,
// where the result is only a best effort; call Validate to reject cycles.
func (g *Graph) Order() []string {
	visited := make(map[string]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	var visit func(k string)
	visit = func(k string) {
		if visited[k] {
			return
		}
		visited[k] = true
		for _, dep := range g.edges[k] {
			visit(dep)
		}
		order = append(order, g.nodes[g.index[k]])
	}

	for _, n := range g.nodes {
		visit(key(n))
	}
	return order
}

// Validate returns an error wrapping ErrCycle if any dependency cycle exists.
func (g *Graph) Validate() error {
	d := dag.NewDAG()
	for _, n := range g.nodes {
		if err := d.AddVertexByID(key(n), n); err != nil {
			return fmt.Errorf("failed to add node %s: %w", n, err)
		}
	}
	for _, n := range g.nodes {
		from := key(n)
		for _, to := range g.edges[from] {
			// AddEdge refuses edges that would close a cycle
			if err := d.AddEdge(to, from); err != nil {
				return fmt.Errorf("%w: %s -> %s: %v", ErrCycle, n, g.nodes[g.index[to]], err)
			}
		}
	}
	return nil
}

// Sequence validates the graph and returns its processing order.
func (g *Graph) Sequence() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g.Order(), nil
}
