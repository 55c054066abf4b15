package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Pattern matches recipe FQNs of the form cookbook:recipe, where
// either half may be empty (matches anything) or, when useRegex is
// set, a regular expression. Grounded on the pkg/name regex-pair shape
// heph's specs.addrRegexNode uses for its own two-part address
// matcher, simplified here since bake's selection has no boolean
// matcher algebra to combine.
type Pattern struct {
	cookbookLiteral string
	cookbookRegex   *regexp.Regexp
	recipeLiteral   string
	recipeRegex     *regexp.Regexp
	useRegex        bool
}

// ParsePattern compiles one positional selector pattern. A pattern with no
// ":" is treated as cookbook:* (matches every recipe in that
// cookbook) to keep `bake api` doing what users expect.
func ParsePattern(s string, useRegex bool) (*Pattern, error) {
	cookbookPart, recipePart, hasColon := strings.Cut(s, ":")
	if !hasColon {
		recipePart = ""
	}

	p := &Pattern{useRegex: useRegex}
	if useRegex {
		if cookbookPart != "" {
			r, err := regexp.Compile(cookbookPart)
			if err != nil {
				return nil, fmt.Errorf("graph: invalid cookbook pattern %q: %w", cookbookPart, err)
			}
			p.cookbookRegex = r
		}
		if recipePart != "" {
			r, err := regexp.Compile(recipePart)
			if err != nil {
				return nil, fmt.Errorf("graph: invalid recipe pattern %q: %w", recipePart, err)
			}
			p.recipeRegex = r
		}
		return p, nil
	}

	p.cookbookLiteral = cookbookPart
	p.recipeLiteral = recipePart
	return p, nil
}

// Match reports whether node satisfies the pattern.
func (p *Pattern) Match(node *Node) bool {
	return p.matchHalf(p.cookbookLiteral, p.cookbookRegex, node.Cookbook) &&
		p.matchHalf(p.recipeLiteral, p.recipeRegex, node.Name)
}

func (p *Pattern) matchHalf(literal string, re *regexp.Regexp, value string) bool {
	if p.useRegex {
		if re == nil {
			return true
		}
		return re.MatchString(value)
	}
	if literal == "" {
		return true
	}
	return literal == value
}

// Select returns every node matching at least one pattern, optionally
// narrowed to recipes bearing at least one of tags (spec's tag
// filter). An empty patterns list selects every node.
func Select(g *Graph, patterns []string, useRegex bool, tags []string) ([]*Node, error) {
	var compiled []*Pattern
	for _, raw := range patterns {
		p, err := ParsePattern(raw, useRegex)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, p)
	}

	var selected []*Node
	for _, node := range g.Nodes() {
		if len(compiled) > 0 && !matchesAny(compiled, node) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(node, tags) {
			continue
		}
		selected = append(selected, node)
	}
	return selected, nil
}

func matchesAny(patterns []*Pattern, node *Node) bool {
	for _, p := range patterns {
		if p.Match(node) {
			return true
		}
	}
	return false
}

func hasAnyTag(node *Node, tags []string) bool {
	for _, want := range tags {
		for _, have := range node.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Closure transitively closes selected over its dependencies: every
// recipe any selected recipe (directly or transitively) depends on is
// included in the result, in addition to the selected recipes
// themselves. Result is sorted by FQN.
func Closure(g *Graph, selected []*Node) ([]*Node, error) {
	seen := map[string]bool{}
	var walk func(fqn string) error
	walk = func(fqn string) error {
		if seen[fqn] {
			return nil
		}
		node, ok := g.Node(fqn)
		if !ok {
			return fmt.Errorf("graph: closure: unknown recipe %q", fqn)
		}
		seen[fqn] = true
		for _, dep := range node.Dependencies {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, node := range selected {
		if err := walk(node.FQN); err != nil {
			return nil, err
		}
	}

	out := make([]*Node, 0, len(seen))
	for fqn := range seen {
		n, _ := g.Node(fqn)
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN < out[j].FQN })
	return out, nil
}
