package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/internal/hfs"
	"github.com/trinio-labs/bake/varctx"
)

func TestDiscoverCookbookDirsFindsNestedCookbooks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "services", "api", "cookbook.yml"), "name: api\nrecipes:\n  build:\n    run: echo hi\n")
	writeFile(t, filepath.Join(root, "services", "worker", "cookbook.yaml"), "name: worker\nrecipes:\n  build:\n    run: echo hi\n")
	writeFile(t, filepath.Join(root, "node_modules", "x", "cookbook.yml"), "name: ignored\nrecipes: {}\n")

	ig := hfs.NewIgnorer([]string{"node_modules/"})

	dirs, err := discoverCookbookDirs(root, ig)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("services", "api"), filepath.Join("services", "worker")}, dirs)
}

func TestLoadCookbookDiscoveryListsRecipeNamesSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cookbook.yml"), ""+
		"name: api\n"+
		"recipes:\n"+
		"  test:\n"+
		"    run: echo test\n"+
		"    dependencies: [build]\n"+
		"    tags: [ci]\n"+
		"  build:\n"+
		"    run: echo build\n")

	cb, err := loadCookbookDiscovery(dir)
	require.NoError(t, err)
	assert.Equal(t, "api", cb.Name)
	assert.Equal(t, []string{"build", "test"}, cb.RecipeNames)
	assert.False(t, cb.Loaded)
	assert.Nil(t, cb.Recipes)
	assert.Equal(t, []string{"build"}, cb.RecipeDependencies["test"])
	assert.Equal(t, []string{"ci"}, cb.RecipeTags["test"])
}

func TestLoadCookbookFullRendersVariablesAndRecipeRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cookbook.yml"), ""+
		"name: api\n"+
		"variables:\n"+
		"  image: myapp\n"+
		"recipes:\n"+
		"  build:\n"+
		"    run: docker build -t {{var.image}}:{{var.tag}} .\n"+
		"    variables:\n"+
		"      tag: latest\n")

	cb, err := loadCookbookDiscovery(dir)
	require.NoError(t, err)

	projectCtx := varctx.NewRoot(nil)
	err = loadCookbookFull(context.Background(), cb, projectCtx, "", nil, nil)
	require.NoError(t, err)

	assert.True(t, cb.Loaded)
	require.Contains(t, cb.Recipes, "build")
	assert.Equal(t, "docker build -t myapp:latest .", cb.Recipes["build"].Run)
}

func TestLoadCookbookFullRejectsRunAndTemplateTogether(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cookbook.yml"), ""+
		"name: api\n"+
		"recipes:\n"+
		"  build:\n"+
		"    run: echo hi\n"+
		"    template:\n"+
		"      name: go_build\n")

	cb, err := loadCookbookDiscovery(dir)
	require.NoError(t, err)

	err = loadCookbookFull(context.Background(), cb, varctx.NewRoot(nil), "", nil, nil)
	require.Error(t, err)
}

func TestLoadCookbookFullRejectsNeitherRunNorTemplate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cookbook.yml"), ""+
		"name: api\n"+
		"recipes:\n"+
		"  build:\n"+
		"    tags: [ci]\n")

	cb, err := loadCookbookDiscovery(dir)
	require.NoError(t, err)

	err = loadCookbookFull(context.Background(), cb, varctx.NewRoot(nil), "", nil, nil)
	require.Error(t, err)
}

func TestLoadCookbookFullInstantiatesRecipeTemplate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cookbook.yml"), ""+
		"name: api\n"+
		"recipes:\n"+
		"  build:\n"+
		"    template:\n"+
		"      name: go_build\n"+
		"      params:\n"+
		"        package: ./cmd/api\n")

	cb, err := loadCookbookDiscovery(dir)
	require.NoError(t, err)

	templatesDir := filepath.Join(dir, "..", "templates")
	writeFile(t, filepath.Join(templatesDir, "go_build.yml"), ""+
		"name: go_build\n"+
		"parameters:\n"+
		"  package:\n"+
		"    type: string\n"+
		"    required: true\n"+
		"template:\n"+
		"  run: go build {{params.package}}\n")
	templates, err := loadTemplates(templatesDir)
	require.NoError(t, err)

	err = loadCookbookFull(context.Background(), cb, varctx.NewRoot(nil), "", nil, templates)
	require.NoError(t, err)
	assert.Equal(t, "go build ./cmd/api", cb.Recipes["build"].Run)
}
