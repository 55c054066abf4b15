package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/config"
)

func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("api", map[string][]string{
				"build": nil,
				"test":  {"build"},
			}, map[string][]string{
				"build": {"ci"},
				"test":  {"ci", "slow"},
			}),
			discoveredCookbook("worker", map[string][]string{
				"build": {"api:build"},
			}, map[string][]string{
				"build": {"ci"},
			}),
		},
	}
	g, err := Build(project)
	require.NoError(t, err)
	return g
}

func fqns(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.FQN
	}
	return out
}

func TestSelectLiteralExactMatch(t *testing.T) {
	g := buildTestGraph(t)
	selected, err := Select(g, []string{"api:build"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"api:build"}, fqns(selected))
}

func TestSelectEmptyCookbookHalfMatchesEveryCookbook(t *testing.T) {
	g := buildTestGraph(t)
	selected, err := Select(g, []string{":build"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"api:build", "worker:build"}, fqns(selected))
}

func TestSelectCookbookOnlyPatternMatchesEveryRecipeInIt(t *testing.T) {
	g := buildTestGraph(t)
	selected, err := Select(g, []string{"api"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"api:build", "api:test"}, fqns(selected))
}

func TestSelectRegexMatchesAcrossCookbooks(t *testing.T) {
	g := buildTestGraph(t)
	selected, err := Select(g, []string{".*:build"}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"api:build", "worker:build"}, fqns(selected))
}

func TestSelectTagFilterIntersectsSelection(t *testing.T) {
	g := buildTestGraph(t)
	selected, err := Select(g, nil, false, []string{"slow"})
	require.NoError(t, err)
	assert.Equal(t, []string{"api:test"}, fqns(selected))
}

func TestClosureIncludesTransitiveDependencies(t *testing.T) {
	g := buildTestGraph(t)
	selected, err := Select(g, []string{"worker:build"}, false, nil)
	require.NoError(t, err)

	closed, err := Closure(g, selected)
	require.NoError(t, err)
	assert.Equal(t, []string{"api:build", "worker:build"}, fqns(closed))
}
