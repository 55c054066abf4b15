package baker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinio-labs/bake/baker"
	"github.com/trinio-labs/bake/cachestrategy"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/graph"
	"github.com/trinio-labs/bake/hash"
)

func newTestStrategy(t *testing.T) *cachestrategy.Strategy {
	t.Helper()
	local := cas.NewLocalBlobStore(t.TempDir())
	return cachestrategy.New(cachestrategy.LocalOnly, cas.Tier{Name: "local", Store: local}, nil, hash.Blake3, "secret")
}

// project builds a two-cookbook project with one recipe each, "lib:build"
// feeding "api:build", both fully loaded, rooted under distinct temp
// directories so each recipe's log file and cache workdir are isolated.
func project(t *testing.T, libRun, apiRun string) (*config.Project, *graph.Graph) {
	t.Helper()
	root := t.TempDir()
	libDir := filepath.Join(root, "lib")
	apiDir := filepath.Join(root, "api")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.MkdirAll(apiDir, 0o755))

	lib := &config.Cookbook{
		Path: libDir, Name: "lib", Loaded: true,
		RecipeNames: []string{"build"},
		Recipes: map[string]*config.Recipe{
			"build": {Name: "build", Cookbook: "lib", Run: libRun},
		},
	}
	api := &config.Cookbook{
		Path: apiDir, Name: "api", Loaded: true,
		RecipeNames: []string{"build"},
		Recipes: map[string]*config.Recipe{
			"build": {Name: "build", Cookbook: "api", Run: apiRun, Dependencies: []string{"lib:build"}},
		},
	}

	proj := &config.Project{Root: root, Name: "testproj", Cookbooks: []*config.Cookbook{lib, api}}

	g, err := graph.Build(proj)
	require.NoError(t, err)
	return proj, g
}

func levelsFor(t *testing.T, g *graph.Graph) [][]*graph.Node {
	t.Helper()
	nodes, err := graph.Closure(g, g.Nodes())
	require.NoError(t, err)
	levels, err := graph.Levels(nodes)
	require.NoError(t, err)
	return levels
}

func TestRunSucceedsAndWritesLogFiles(t *testing.T) {
	proj, g := project(t, "echo building lib", "echo building api")
	levels := levelsFor(t, g)

	exec := baker.New(proj, newTestStrategy(t), baker.Options{MaxParallel: 2})
	results, err := exec.Run(context.Background(), levels)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, baker.Success, results["lib:build"].Status)
	assert.Equal(t, baker.Success, results["api:build"].Status)

	libLog := filepath.Join(proj.Cookbooks[0].Path, ".bake", "logs", "build.log")
	b, err := os.ReadFile(libLog)
	require.NoError(t, err)
	assert.Contains(t, string(b), "building lib")
}

func TestRunMarksDownstreamSkippedFailedWithoutFastFail(t *testing.T) {
	proj, g := project(t, "exit 1", "echo building api")
	levels := levelsFor(t, g)

	exec := baker.New(proj, newTestStrategy(t), baker.Options{MaxParallel: 2, FastFail: false})
	results, err := exec.Run(context.Background(), levels)
	require.NoError(t, err)

	assert.Equal(t, baker.Failed, results["lib:build"].Status)
	assert.Equal(t, baker.SkippedFailed, results["api:build"].Status)
}

func TestRunCancelsDownstreamWithFastFail(t *testing.T) {
	proj, g := project(t, "exit 1", "echo building api")
	levels := levelsFor(t, g)

	exec := baker.New(proj, newTestStrategy(t), baker.Options{MaxParallel: 2, FastFail: true})
	results, err := exec.Run(context.Background(), levels)
	require.NoError(t, err)

	assert.Equal(t, baker.Failed, results["lib:build"].Status)
	assert.Equal(t, baker.Cancelled, results["api:build"].Status)
}

func TestRunSecondPassHitsCache(t *testing.T) {
	proj, g := project(t, "echo lib > out.txt", "echo api > out.txt")
	for _, cb := range proj.Cookbooks {
		cb.Recipes[cb.RecipeNames[0]].Cache = &config.CacheSpec{Outputs: []string{"out.txt"}}
	}
	levels := levelsFor(t, g)

	strategy := newTestStrategy(t)
	exec := baker.New(proj, strategy, baker.Options{MaxParallel: 2})

	first, err := exec.Run(context.Background(), levels)
	require.NoError(t, err)
	assert.Equal(t, baker.Success, first["lib:build"].Status)

	second, err := exec.Run(context.Background(), levels)
	require.NoError(t, err)
	assert.Equal(t, baker.SkippedHit, second["lib:build"].Status)
	assert.Equal(t, baker.SkippedHit, second["api:build"].Status)
}

func TestEffectiveMaxParallelClampsToBudget(t *testing.T) {
	assert.Equal(t, 1, baker.EffectiveMaxParallel(100, 1<<30))
	assert.GreaterOrEqual(t, baker.EffectiveMaxParallel(0, 0), 1)
}
