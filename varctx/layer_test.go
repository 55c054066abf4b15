package varctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLayerRendersVariablesAgainstParent(t *testing.T) {
	root := NewRoot(nil)
	parent := root.extend(map[string]any{"prefix": "acme"}, nil, "", nil)

	raw := "name: demo\n" +
		"variables:\n" +
		"  full_name: \"{{var.prefix}}-widget\"\n"

	layer, err := BuildLayer(context.Background(), parent, LayerInput{RawConfig: raw})
	require.NoError(t, err)

	v, ok := layer.Resolve("var.full_name")
	require.True(t, ok)
	assert.Equal(t, "acme-widget", v)
}

func TestBuildLayerAppliesSelectedOverride(t *testing.T) {
	root := NewRoot(nil)

	raw := "variables:\n" +
		"  region: us-east\n" +
		"overrides:\n" +
		"  staging:\n" +
		"    region: us-west\n"

	layer, err := BuildLayer(context.Background(), root, LayerInput{
		RawConfig:        raw,
		SelectedOverride: "staging",
	})
	require.NoError(t, err)

	v, _ := layer.Resolve("var.region")
	assert.Equal(t, "us-west", v)
}

func TestBuildLayerUnknownOverrideNameLeavesVariablesUnpatched(t *testing.T) {
	root := NewRoot(nil)

	raw := "variables:\n" +
		"  region: us-east\n" +
		"overrides:\n" +
		"  staging:\n" +
		"    region: us-west\n"

	layer, err := BuildLayer(context.Background(), root, LayerInput{
		RawConfig:        raw,
		SelectedOverride: "production",
	})
	require.NoError(t, err)

	v, _ := layer.Resolve("var.region")
	assert.Equal(t, "us-east", v)
}

func TestBuildLayerAddsBuiltinScope(t *testing.T) {
	root := NewRoot(nil)

	layer, err := BuildLayer(context.Background(), root, LayerInput{
		RawConfig:    "name: demo\n",
		BuiltinScope: "project",
		Builtins:     map[string]any{"root": "/repo"},
	})
	require.NoError(t, err)

	v, ok := layer.Resolve("project.root")
	require.True(t, ok)
	assert.Equal(t, "/repo", v)
}

func TestBuildLayerRestrictsDeclaredEnvironment(t *testing.T) {
	root := NewRoot(map[string]string{"PATH": "/usr/bin", "SECRET": "shh"})

	layer, err := BuildLayer(context.Background(), root, LayerInput{
		RawConfig:   "variables:\n  p: \"{{env.PATH}}\"\n",
		DeclaredEnv: []string{"PATH"},
	})
	require.NoError(t, err)

	v, _ := layer.Resolve("var.p")
	assert.Equal(t, "/usr/bin", v)

	_, ok := layer.Resolve("env.SECRET")
	assert.False(t, ok, "undeclared environment names must not leak into the layer")
}

func TestWithCLIOverridesWinsOverEverything(t *testing.T) {
	root := NewRoot(nil)
	parent := root.extend(map[string]any{"env": "dev"}, nil, "", nil)

	final := WithCLIOverrides(parent, map[string]string{"env": "cli"})
	v, _ := final.Resolve("var.env")
	assert.Equal(t, "cli", v)
}

func TestWithCLIOverridesNoOpWhenEmpty(t *testing.T) {
	root := NewRoot(nil)
	assert.Same(t, root, WithCLIOverrides(root, nil))
}
