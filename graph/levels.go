package graph

import (
	"fmt"
	"sort"
)

// Levels computes topological execution levels over nodes (normally
// the output of Closure) via Kahn's algorithm: level 0 holds every
// node with no dependency inside the set; level k+1 holds nodes whose
// dependencies are all assigned to levels <= k. Order within a level
// is unspecified by spec, but is sorted by FQN here for deterministic
// output (--tree, --show-plan, test assertions).
func Levels(nodes []*Node) ([][]*Node, error) {
	inSet := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		inSet[n.FQN] = n
	}

	assigned := map[string]bool{}
	remaining := make(map[string]*Node, len(nodes))
	for fqn, n := range inSet {
		remaining[fqn] = n
	}

	var levels [][]*Node
	for len(remaining) > 0 {
		var level []*Node
		for _, n := range remaining {
			ready := true
			for _, dep := range n.Dependencies {
				if _, inside := inSet[dep]; !inside {
					continue
				}
				if !assigned[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, n)
			}
		}

		if len(level) == 0 {
			return nil, fmt.Errorf("graph: levels: no progress on %d remaining nodes (should be unreachable; Build already rejects cycles)", len(remaining))
		}

		sort.Slice(level, func(i, j int) bool { return level[i].FQN < level[j].FQN })
		for _, n := range level {
			assigned[n.FQN] = true
			delete(remaining, n.FQN)
		}
		levels = append(levels, level)
	}

	return levels, nil
}
