package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/trinio-labs/bake/graph"
)

// printPlan renders the execution plan -e/--show-plan and -t/--tree
// ask for: levels mode lists each scheduling level in order, tree mode
// renders the dependency structure rooted at the recipes nothing else
// in the selection depends on.
func printPlan(w io.Writer, levels [][]*graph.Node, tree bool) {
	if tree {
		printTree(w, levels)
		return
	}

	for i, level := range levels {
		fmt.Fprintf(w, "level %d:\n", i)
		for _, n := range level {
			fmt.Fprintf(w, "  %s\n", n.FQN)
		}
	}
}

func printTree(w io.Writer, levels [][]*graph.Node) {
	nodes := map[string]*graph.Node{}
	for _, level := range levels {
		for _, n := range level {
			nodes[n.FQN] = n
		}
	}

	hasDependent := map[string]bool{}
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			hasDependent[dep] = true
		}
	}

	var roots []*graph.Node
	for _, n := range nodes {
		if !hasDependent[n.FQN] {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].FQN < roots[j].FQN })

	for _, r := range roots {
		printTreeNode(w, nodes, r, "")
	}
}

func printTreeNode(w io.Writer, nodes map[string]*graph.Node, n *graph.Node, indent string) {
	fmt.Fprintf(w, "%s%s\n", indent, n.FQN)

	deps := append([]string(nil), n.Dependencies...)
	sort.Strings(deps)
	for _, dep := range deps {
		if child, ok := nodes[dep]; ok {
			printTreeNode(w, nodes, child, indent+"  ")
		}
	}
}
