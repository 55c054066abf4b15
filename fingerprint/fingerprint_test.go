package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestActionKeyIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")

	recipe := &config.Recipe{
		Name: "build", Cookbook: "api", Run: "go build .",
		Cache: &config.CacheSpec{Inputs: []string{"*.go"}},
	}

	a, err := ActionKey(recipe, root, nil, nil)
	require.NoError(t, err)
	b, err := ActionKey(recipe, root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestActionKeyChangesWhenInputContentChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	recipe := &config.Recipe{
		Name: "build", Cookbook: "api", Run: "go build .",
		Cache: &config.CacheSpec{Inputs: []string{"*.go"}},
	}

	before, err := ActionKey(recipe, root, nil, nil)
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "main.go"), "package main // changed")
	after, err := ActionKey(recipe, root, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestActionKeyChangesWhenCommandChanges(t *testing.T) {
	root := t.TempDir()
	r1 := &config.Recipe{Name: "build", Cookbook: "api", Run: "echo a"}
	r2 := &config.Recipe{Name: "build", Cookbook: "api", Run: "echo b"}

	a, err := ActionKey(r1, root, nil, nil)
	require.NoError(t, err)
	b, err := ActionKey(r2, root, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestActionKeyChangesWhenDeclaredEnvValueChanges(t *testing.T) {
	root := t.TempDir()
	recipe := &config.Recipe{Name: "build", Cookbook: "api", Run: "echo hi", Environment: []string{"TOKEN"}}

	a, err := ActionKey(recipe, root, map[string]string{"TOKEN": "one"}, nil)
	require.NoError(t, err)
	b, err := ActionKey(recipe, root, map[string]string{"TOKEN": "two"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestActionKeyTreatsUnsetDeclaredEnvAsEmptyValue(t *testing.T) {
	root := t.TempDir()
	recipe := &config.Recipe{Name: "build", Cookbook: "api", Run: "echo hi", Environment: []string{"TOKEN"}}

	a, err := ActionKey(recipe, root, map[string]string{"TOKEN": ""}, nil)
	require.NoError(t, err)
	b, err := ActionKey(recipe, root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestActionKeyIsOrderIndependentOverDependencyFQNs(t *testing.T) {
	root := t.TempDir()
	recipe := &config.Recipe{
		Name: "build", Cookbook: "api", Run: "echo hi",
		Dependencies: []string{"lib:fetch", "lib:generate"},
	}

	deps := map[string]string{"lib:fetch": "keyA", "lib:generate": "keyB"}
	a, err := ActionKey(recipe, root, nil, deps)
	require.NoError(t, err)

	recipe.Dependencies = []string{"lib:generate", "lib:fetch"}
	b, err := ActionKey(recipe, root, nil, deps)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestActionKeyChangesWhenDependencyActionKeyChanges(t *testing.T) {
	root := t.TempDir()
	recipe := &config.Recipe{Name: "build", Cookbook: "api", Run: "echo hi", Dependencies: []string{"lib:fetch"}}

	a, err := ActionKey(recipe, root, nil, map[string]string{"lib:fetch": "keyA"})
	require.NoError(t, err)
	b, err := ActionKey(recipe, root, nil, map[string]string{"lib:fetch": "keyB"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestActionKeyErrorsOnMissingDependencyActionKey(t *testing.T) {
	root := t.TempDir()
	recipe := &config.Recipe{Name: "build", Cookbook: "api", Run: "echo hi", Dependencies: []string{"lib:fetch"}}

	_, err := ActionKey(recipe, root, nil, nil)
	require.Error(t, err)
}

func TestActionKeyRenamingInputFilesWithSameContentChangesKey(t *testing.T) {
	rootA := t.TempDir()
	writeFile(t, filepath.Join(rootA, "a.go"), "same")
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootB, "b.go"), "same")

	recipe := &config.Recipe{Name: "build", Cookbook: "api", Run: "go build .", Cache: &config.CacheSpec{Inputs: []string{"*.go"}}}

	a, err := ActionKey(recipe, rootA, nil, nil)
	require.NoError(t, err)
	b, err := ActionKey(recipe, rootB, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
