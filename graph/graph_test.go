package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/config"
)

func discoveredCookbook(name string, recipes map[string][]string, tags map[string][]string) *config.Cookbook {
	names := make([]string, 0, len(recipes))
	for n := range recipes {
		names = append(names, n)
	}
	if tags == nil {
		tags = map[string][]string{}
	}
	return &config.Cookbook{
		Name:               name,
		RecipeNames:        names,
		RecipeDependencies: recipes,
		RecipeTags:         tags,
	}
}

func TestBuildResolvesUnqualifiedDependencyWithinOwningCookbook(t *testing.T) {
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("api", map[string][]string{
				"build": nil,
				"test":  {"build"},
			}, nil),
		},
	}

	g, err := Build(project)
	require.NoError(t, err)

	node, ok := g.Node("api:test")
	require.True(t, ok)
	assert.Equal(t, []string{"api:build"}, node.Dependencies)
}

func TestBuildResolvesCrossCookbookDependency(t *testing.T) {
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("lib", map[string][]string{"build": nil}, nil),
			discoveredCookbook("api", map[string][]string{"build": {"lib:build"}}, nil),
		},
	}

	g, err := Build(project)
	require.NoError(t, err)

	node, ok := g.Node("api:build")
	require.True(t, ok)
	assert.Equal(t, []string{"lib:build"}, node.Dependencies)
}

func TestBuildRejectsSelfDependency(t *testing.T) {
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("api", map[string][]string{"build": {"build"}}, nil),
		},
	}

	_, err := Build(project)
	require.Error(t, err)
	var selfErr *config.SelfDependencyError
	require.ErrorAs(t, err, &selfErr)
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("api", map[string][]string{"build": {"missing"}}, nil),
		},
	}

	_, err := Build(project)
	require.Error(t, err)
	var unknownErr *config.UnknownDependencyError
	require.ErrorAs(t, err, &unknownErr)
}

func TestBuildDetectsCycleAndEnumeratesFQNs(t *testing.T) {
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("api", map[string][]string{
				"a": {"b"},
				"b": {"c"},
				"c": {"a"},
			}, nil),
		},
	}

	_, err := Build(project)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Len(t, cycleErr.FQNs, 4)
	assert.Equal(t, cycleErr.FQNs[0], cycleErr.FQNs[len(cycleErr.FQNs)-1])
}

func TestBuildPrefersLoadedRecipeDependenciesOverDiscoveryMap(t *testing.T) {
	cb := discoveredCookbook("api", map[string][]string{"build": {"stale"}}, nil)
	cb.Loaded = true
	cb.Recipes = map[string]*config.Recipe{
		"build": {Name: "build", Cookbook: "api", Dependencies: nil},
	}

	project := &config.Project{Cookbooks: []*config.Cookbook{cb}}

	g, err := Build(project)
	require.NoError(t, err)
	node, ok := g.Node("api:build")
	require.True(t, ok)
	assert.Empty(t, node.Dependencies)
}

func TestDependentsReturnsDirectDependents(t *testing.T) {
	project := &config.Project{
		Cookbooks: []*config.Cookbook{
			discoveredCookbook("api", map[string][]string{
				"build": nil,
				"test":  {"build"},
				"lint":  {"build"},
			}, nil),
		},
	}

	g, err := Build(project)
	require.NoError(t, err)

	deps, err := g.Dependents("api:build")
	require.NoError(t, err)
	assert.Equal(t, []string{"api:lint", "api:test"}, deps)
}
