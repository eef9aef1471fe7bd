package executor

import (
	"fmt"
	"sort"
)

// topoOrder computes a single flattened dispatch order via Kahn's
// algorithm: in-degree-zero nodes seed the frontier, are emitted, and
// their successors' in-degrees are decremented; a newly zero successor
// joins the next frontier. Ties within a frontier are broken by the
// node's position in the graph's original node list, so the order is
// deterministic across runs of the same graph.
//
// Nodes dispatch strictly one at a time, so there is no separate notion
// of a parallel "level" here, only a single flattened order.
//
// An emitted count short of the node count means a cycle remains; the
// returned error names the still-undispatchable nodes.
func topoOrder(adj *adjacency) ([]string, error) {
	position := make(map[string]int, len(adj.nodeOrder))
	for i, id := range adj.nodeOrder {
		position[id] = i
	}

	inDegree := make(map[string]int, len(adj.inDegree))
	for id, d := range adj.inDegree {
		inDegree[id] = d
	}

	var frontier []string
	for id, d := range inDegree {
		if d == 0 {
			frontier = append(frontier, id)
		}
	}
	sortByPosition(frontier, position)

	order := make([]string, 0, len(adj.nodes))
	for len(frontier) > 0 {
		order = append(order, frontier...)

		var next []string
		for _, id := range frontier {
			for _, e := range adj.outEdges[id] {
				inDegree[e.Target]--
				if inDegree[e.Target] == 0 {
					next = append(next, e.Target)
				}
			}
		}
		sortByPosition(next, position)
		frontier = next
	}

	if len(order) != len(adj.nodes) {
		var stuck []string
		for id, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("cycle detected in graph involving nodes: %v", stuck)
	}

	return order, nil
}

func sortByPosition(ids []string, position map[string]int) {
	sort.Slice(ids, func(i, j int) bool { return position[ids[i]] < position[ids[j]] })
}
