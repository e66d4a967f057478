// Package dag provides the directed acyclic graph the canvas keeps alongside
// its node set: upstream/downstream lookups, cycle guarding for new
// connections, and a topological order for display. Execution order across
// the real data remains the backend's responsibility; this graph only guards
// and explains the client's view.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph keyed by canvas node id. Edges point from an
// upstream table to the node that consumes it.
type Graph struct {
	nodes   map[string]struct{}
	edges   map[string][]string // upstream -> consumers
	parents map[string][]string // consumer -> upstream inputs
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]struct{}),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node id. Adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// RemoveNode removes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	delete(g.nodes, id)
	delete(g.edges, id)
	delete(g.parents, id)
	for from, tos := range g.edges {
		g.edges[from] = remove(tos, id)
	}
	for to, froms := range g.parents {
		g.parents[to] = remove(froms, id)
	}
}

// AddEdge connects upstream to consumer. It rejects self-loops, edges whose
// endpoints are missing, and edges that would create a cycle.
func (g *Graph) AddEdge(upstream, consumer string) error {
	if _, ok := g.nodes[upstream]; !ok {
		return fmt.Errorf("upstream node %q does not exist", upstream)
	}
	if _, ok := g.nodes[consumer]; !ok {
		return fmt.Errorf("consumer node %q does not exist", consumer)
	}
	if upstream == consumer {
		return fmt.Errorf("self-loop rejected: %s", upstream)
	}
	if g.WouldCycle(upstream, consumer) {
		return fmt.Errorf("connection %s -> %s would create a cycle", upstream, consumer)
	}

	if !contains(g.edges[upstream], consumer) {
		g.edges[upstream] = append(g.edges[upstream], consumer)
	}
	if !contains(g.parents[consumer], upstream) {
		g.parents[consumer] = append(g.parents[consumer], upstream)
	}
	return nil
}

// RemoveEdge removes a single edge. Missing edges are ignored.
func (g *Graph) RemoveEdge(upstream, consumer string) {
	g.edges[upstream] = remove(g.edges[upstream], consumer)
	g.parents[consumer] = remove(g.parents[consumer], upstream)
}

// WouldCycle reports whether adding upstream -> consumer creates a cycle,
// i.e. whether upstream is reachable from consumer.
func (g *Graph) WouldCycle(upstream, consumer string) bool {
	if upstream == consumer {
		return true
	}
	seen := make(map[string]bool)
	var walk func(id string) bool
	walk = func(id string) bool {
		if id == upstream {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		for _, next := range g.edges[id] {
			if walk(next) {
				return true
			}
		}
		return false
	}
	return walk(consumer)
}

// Parents returns the upstream inputs of a node.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the consumers of a node.
func (g *Graph) Children(id string) []string {
	return g.edges[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, tos := range g.edges {
		count += len(tos)
	}
	return count
}

// Upstream returns every transitive input of a node, sorted.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)
	var walk func(nodeID string)
	walk = func(nodeID string) {
		for _, p := range g.parents[nodeID] {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(id)

	result := make([]string, 0, len(seen))
	for nodeID := range seen {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

// TopologicalOrder returns node ids with inputs before consumers. The graph
// is cycle-free by construction (AddEdge rejects cycles), so this cannot
// fail; ties break alphabetically for deterministic output.
func (g *Graph) TopologicalOrder() []string {
	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		parents := append([]string(nil), g.parents[id]...)
		sort.Strings(parents)
		for _, p := range parents {
			visit(p)
		}
		result = append(result, id)
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		visit(id)
	}
	return result
}

// Roots returns nodes with no inputs, sorted.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

func remove(slice []string, s string) []string {
	out := slice[:0]
	for _, v := range slice {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
