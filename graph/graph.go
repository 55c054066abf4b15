// Package graph builds the recipe dependency graph, validates it is
// acyclic, and answers the planner's selection and leveling queries.
//
// Nodes are recipe FQNs ("cookbook:recipe"); an edge points from a
// dependency to the recipe that depends on it, so a recipe's parents
// (heimdalr/dag's term) are exactly the recipes it depends on.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heimdalr/dag"
	"github.com/trinio-labs/bake/config"
)

// Node is one recipe's position in the graph: its identity plus its
// already-resolved (cookbook-qualified) dependency FQNs. Built from
// discovery headers, so it exists whether or not the owning cookbook
// has gone through full loading.
type Node struct {
	FQN          string
	Cookbook     string
	Name         string
	Dependencies []string
	Tags         []string
}

// Graph wraps a heimdalr/dag.DAG of recipe FQNs plus a lookup table of
// Node metadata, grounded on the way heph's internal/hdag package
// layers a typed view over the same library.
type Graph struct {
	d     *dag.DAG
	nodes map[string]*Node
}

// CycleError fires when a recipe's dependency list closes a loop. FQNs
// enumerates every recipe on the cycle, starting and ending at the
// same FQN, in dependency order.
type CycleError struct {
	FQNs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph: dependency cycle: %s", strings.Join(e.FQNs, " -> "))
}

// Build constructs the dependency graph from every cookbook's
// discovery-level recipe headers (spec's loader step 8) — it never
// triggers full loading. project.Cookbooks may be a mix of discovered
// and fully-loaded cookbooks; fully-loaded ones contribute their
// resolved config.Recipe.Dependencies/Tags instead of the discovery
// maps, since those have already absorbed any recipe-template
// dependencies merged in during full loading.
func Build(project *config.Project) (*Graph, error) {
	g := &Graph{
		d:     dag.NewDAG(),
		nodes: map[string]*Node{},
	}

	known := map[string]bool{}
	for _, cb := range project.Cookbooks {
		for _, name := range cb.RecipeNames {
			known[cb.Name+":"+name] = true
		}
	}

	for _, cb := range project.Cookbooks {
		for _, name := range cb.RecipeNames {
			fqn := cb.Name + ":" + name
			deps, tags := recipeHeader(cb, name)

			resolved := make([]string, 0, len(deps))
			for _, dep := range deps {
				depFQN := qualify(dep, cb.Name)
				if depFQN == fqn {
					return nil, &config.SelfDependencyError{Recipe: fqn}
				}
				if !known[depFQN] {
					return nil, &config.UnknownDependencyError{Recipe: fqn, Dependency: dep}
				}
				resolved = append(resolved, depFQN)
			}

			node := &Node{FQN: fqn, Cookbook: cb.Name, Name: name, Dependencies: resolved, Tags: tags}
			g.nodes[fqn] = node
		}
	}

	if cycle := detectCycle(g.nodes); cycle != nil {
		return nil, &CycleError{FQNs: cycle}
	}

	for fqn := range g.nodes {
		if err := g.d.AddVertexByID(fqn, g.nodes[fqn]); err != nil {
			return nil, fmt.Errorf("graph: add vertex %s: %w", fqn, err)
		}
	}
	for fqn, node := range g.nodes {
		for _, dep := range node.Dependencies {
			if err := g.d.AddEdge(dep, fqn); err != nil {
				return nil, fmt.Errorf("graph: add edge %s -> %s: %w", dep, fqn, err)
			}
		}
	}

	return g, nil
}

// recipeHeader returns a recipe's declared dependencies and tags,
// preferring the fully-resolved config.Recipe when the cookbook has
// gone through full loading and falling back to the discovery-level
// maps otherwise.
func recipeHeader(cb *config.Cookbook, name string) (deps, tags []string) {
	if cb.Loaded {
		if r, ok := cb.Recipes[name]; ok {
			return r.Dependencies, r.Tags
		}
	}
	return cb.RecipeDependencies[name], cb.RecipeTags[name]
}

// qualify resolves an unqualified dependency name against the owning
// cookbook; a name already containing ":" is taken as a literal FQN.
func qualify(dep, owningCookbook string) string {
	if strings.Contains(dep, ":") {
		return dep
	}
	return owningCookbook + ":" + dep
}

// detectCycle runs a three-color DFS over the declared-dependency
// adjacency and returns the FQNs on the first cycle found, or nil if
// the graph is acyclic. Run once over the complete adjacency rather
// than incrementally per edge insertion — unlike heph's
// incrementally-discovered target graph, bake's dependency graph is
// fully known from discovery headers before any edge is added.
func detectCycle(nodes map[string]*Node) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	var visit func(fqn string) bool
	visit = func(fqn string) bool {
		color[fqn] = gray
		stack = append(stack, fqn)

		node := nodes[fqn]
		for _, dep := range node.Dependencies {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				start := 0
				for i, id := range stack {
					if id == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, stack[start:]...), dep)
				return true
			}
		}

		stack = stack[:len(stack)-1]
		color[fqn] = black
		return false
	}

	ids := make([]string, 0, len(nodes))
	for fqn := range nodes {
		ids = append(ids, fqn)
	}
	sort.Strings(ids)

	for _, fqn := range ids {
		if color[fqn] == white {
			if visit(fqn) {
				return cycle
			}
		}
	}
	return nil
}

// Node looks up a recipe by FQN.
func (g *Graph) Node(fqn string) (*Node, bool) {
	n, ok := g.nodes[fqn]
	return n, ok
}

// Nodes returns every node, sorted by FQN.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN < out[j].FQN })
	return out
}

// Dependents returns the FQNs of recipes directly depending on fqn.
func (g *Graph) Dependents(fqn string) ([]string, error) {
	children, err := g.d.GetChildren(fqn)
	if err != nil {
		return nil, fmt.Errorf("graph: dependents of %s: %w", fqn, err)
	}
	out := make([]string, 0, len(children))
	for id := range children {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
