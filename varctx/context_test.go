package varctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVarEnvAndBuiltinNamespaces(t *testing.T) {
	root := NewRoot(map[string]string{"PATH": "/usr/bin"})
	c := root.extend(
		map[string]any{"name": "widget"},
		map[string]string{"PATH": "/usr/bin"},
		"project",
		map[string]any{"root": "/repo", "name": "widget-project"},
	)

	v, ok := c.Resolve("var.name")
	assert.True(t, ok)
	assert.Equal(t, "widget", v)

	v, ok = c.Resolve("env.PATH")
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin", v)

	v, ok = c.Resolve("project.root")
	assert.True(t, ok)
	assert.Equal(t, "/repo", v)

	_, ok = c.Resolve("var.missing")
	assert.False(t, ok)

	_, ok = c.Resolve("cookbook.name")
	assert.False(t, ok)
}

func TestExtendMergesVarsChildWins(t *testing.T) {
	root := NewRoot(nil)
	parent := root.extend(map[string]any{"mode": "dev", "region": "us"}, nil, "", nil)
	child := parent.extend(map[string]any{"mode": "release"}, nil, "", nil)

	v, _ := child.Resolve("var.mode")
	assert.Equal(t, "release", v)
	v, _ = child.Resolve("var.region")
	assert.Equal(t, "us", v, "parent-only keys survive into the child")

	// Parent is untouched by the child's override.
	v, _ = parent.Resolve("var.mode")
	assert.Equal(t, "dev", v)
}

func TestExtendPreservesOuterBuiltinScopes(t *testing.T) {
	root := NewRoot(nil)
	project := root.extend(nil, nil, "project", map[string]any{"root": "/repo"})
	cookbook := project.extend(nil, nil, "cookbook", map[string]any{"name": "build"})

	v, ok := cookbook.Resolve("project.root")
	assert.True(t, ok)
	assert.Equal(t, "/repo", v)

	v, ok = cookbook.Resolve("cookbook.name")
	assert.True(t, ok)
	assert.Equal(t, "build", v)
}

func TestVarsAndEnvReturnIndependentCopies(t *testing.T) {
	root := NewRoot(map[string]string{"X": "1"})
	c := root.extend(map[string]any{"a": 1}, map[string]string{"X": "1"}, "", nil)

	vars := c.Vars()
	vars["a"] = 999
	v, _ := c.Resolve("var.a")
	assert.Equal(t, 1, v, "mutating the returned map must not affect the context")

	env := c.Env()
	env["X"] = "mutated"
	ev, _ := c.Resolve("env.X")
	assert.Equal(t, "1", ev)
}
