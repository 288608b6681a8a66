package planning

import (
	"sort"

	"ditapack/pkg/models"
)

// traversalOrder computes the deterministic artifact ordering used by the
// copy rules: depth-first from the main map following contract
// relationships, children visited in lexicographic order, then every
// unreached artifact appended in path order.
//
// The walk tolerates cycles (visited set) and makes no acyclicity
// assumption. It is pure contract computation; no filesystem, no discovery
// coupling.
func traversalOrder(input *models.PlanningInput) []string {
	outgoing := make(map[string][]string)
	for _, rel := range input.Relationships {
		outgoing[rel.Source] = append(outgoing[rel.Source], rel.Target)
	}
	for _, targets := range outgoing {
		sort.Strings(targets)
	}

	visited := make(map[string]struct{}, len(input.Artifacts))
	var ordered []string

	var walk func(node string)
	walk = func(node string) {
		if _, seen := visited[node]; seen {
			return
		}
		visited[node] = struct{}{}
		ordered = append(ordered, node)
		for _, child := range outgoing[node] {
			walk(child)
		}
	}
	walk(input.MainMap)

	var unreached []string
	for _, a := range input.Artifacts {
		if _, seen := visited[a.Path]; !seen {
			unreached = append(unreached, a.Path)
		}
	}
	sort.Strings(unreached)

	return append(ordered, unreached...)
}
