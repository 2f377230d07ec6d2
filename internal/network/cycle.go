package network

import (
	"slices"
	"strings"

	"github.com/roach88/varelim/internal/factor"
)

// parentGraph maps parent → children, in declaration order.
type parentGraph map[factor.Variable][]factor.Variable

// findCycles returns one path per directed cycle in the parent graph, e.g.
// [A, B, A]. Self-parents are reported by Validate separately and skipped
// here. An acyclic network returns nil.
//
// The algorithm:
//  1. Build the parent → child graph from every CPT's given list
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with more than one member as a cycle
func findCycles(n *Network) [][]factor.Variable {
	graph := make(parentGraph)
	var nodes []factor.Variable
	addNode := func(v factor.Variable) {
		if !slices.Contains(nodes, v) {
			nodes = append(nodes, v)
		}
	}

	for _, decl := range n.Variables {
		addNode(decl.Name)
	}
	for _, cpt := range n.CPTs {
		addNode(cpt.Variable)
		for _, parent := range cpt.Given {
			if parent == cpt.Variable {
				continue
			}
			addNode(parent)
			if !slices.Contains(graph[parent], cpt.Variable) {
				graph[parent] = append(graph[parent], cpt.Variable)
			}
		}
	}

	var cycles [][]factor.Variable
	for _, scc := range tarjanSCC(nodes, graph) {
		if len(scc) > 1 {
			cycles = append(cycles, cyclePath(scc, nodes, graph))
		}
	}
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so results are deterministic.
func tarjanSCC(nodes []factor.Variable, graph parentGraph) [][]factor.Variable {
	var (
		index   int
		stack   []factor.Variable
		indices = make(map[factor.Variable]int)
		lowlink = make(map[factor.Variable]int)
		onStack = make(map[factor.Variable]bool)
		sccs    [][]factor.Variable
	)

	var strongConnect func(factor.Variable)
	strongConnect = func(v factor.Variable) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into one SCC
		if lowlink[v] == indices[v] {
			var scc []factor.Variable
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cyclePath walks edges inside one SCC from its earliest declared member
// until it returns to the start.
func cyclePath(scc, nodes []factor.Variable, graph parentGraph) []factor.Variable {
	start := scc[0]
	for _, v := range scc {
		if slices.Index(nodes, v) < slices.Index(nodes, start) {
			start = v
		}
	}

	path := []factor.Variable{start}
	visited := map[factor.Variable]bool{start: true}
	current := start
	for {
		var next factor.Variable
		for _, w := range graph[current] {
			if slices.Contains(scc, w) && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}

func formatPath(path []factor.Variable) string {
	parts := make([]string, len(path))
	for i, v := range path {
		parts[i] = string(v)
	}
	return strings.Join(parts, " → ")
}
