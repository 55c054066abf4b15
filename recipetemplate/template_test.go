package recipetemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSingleTemplateNoInheritance(t *testing.T) {
	templates := map[string]*Template{
		"base": {
			Name:   "base",
			Params: map[string]*ParamSchema{"image": {Type: ParamString}},
			Body:   Body{Run: "docker run {{params.image}}"},
		},
	}

	params, body, err := Merge(templates, "base")
	require.NoError(t, err)
	assert.Contains(t, params, "image")
	assert.Equal(t, "docker run {{params.image}}", body.Run)
}

func TestMergeChildOverridesParentTopLevelFields(t *testing.T) {
	templates := map[string]*Template{
		"base": {Name: "base", Body: Body{Run: "echo base", Tags: []string{"x"}}},
		"child": {
			Name:    "child",
			Extends: "base",
			Body:    Body{Run: "echo child"},
		},
	}

	_, body, err := Merge(templates, "child")
	require.NoError(t, err)
	assert.Equal(t, "echo child", body.Run)
	assert.Equal(t, []string{"x"}, body.Tags, "child left tags unset, so parent's survive")
}

func TestMergeCacheVariablesEnvironmentAreAdditive(t *testing.T) {
	templates := map[string]*Template{
		"base": {
			Name: "base",
			Body: Body{
				Cache:       &CachePatch{Inputs: []string{"src/**"}},
				Variables:   map[string]any{"a": "1"},
				Environment: []string{"PATH"},
			},
		},
		"child": {
			Name:    "child",
			Extends: "base",
			Body: Body{
				Cache:       &CachePatch{Inputs: []string{"gen/**"}, Outputs: []string{"out/**"}},
				Variables:   map[string]any{"b": "2"},
				Environment: []string{"HOME"},
			},
		},
	}

	_, body, err := Merge(templates, "child")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/**", "gen/**"}, body.Cache.Inputs)
	assert.ElementsMatch(t, []string{"out/**"}, body.Cache.Outputs)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, body.Variables)
	assert.Equal(t, []string{"PATH", "HOME"}, body.Environment)
}

func TestMergeParamsChildOverridesByName(t *testing.T) {
	templates := map[string]*Template{
		"base": {Name: "base", Params: map[string]*ParamSchema{"mode": {Type: ParamString, Default: "debug"}}},
		"child": {
			Name:    "child",
			Extends: "base",
			Params:  map[string]*ParamSchema{"mode": {Type: ParamString, Default: "release"}},
		},
	}

	params, _, err := Merge(templates, "child")
	require.NoError(t, err)
	assert.Equal(t, "release", params["mode"].Default)
}

func TestMergeDetectsCycle(t *testing.T) {
	templates := map[string]*Template{
		"a": {Name: "a", Extends: "b"},
		"b": {Name: "b", Extends: "a"},
	}

	_, _, err := Merge(templates, "a")
	require.Error(t, err)
	var cerr *CycleError
	require.ErrorAs(t, err, &cerr)
}

func TestMergeUnknownExtendsNameErrors(t *testing.T) {
	templates := map[string]*Template{
		"child": {Name: "child", Extends: "missing"},
	}
	_, _, err := Merge(templates, "child")
	require.Error(t, err)
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestMergeThreeLevelChainAppliesRootFirst(t *testing.T) {
	templates := map[string]*Template{
		"grandparent": {Name: "grandparent", Body: Body{Run: "echo gp"}},
		"parent":      {Name: "parent", Extends: "grandparent"},
		"child":       {Name: "child", Extends: "parent"},
	}

	_, body, err := Merge(templates, "child")
	require.NoError(t, err)
	assert.Equal(t, "echo gp", body.Run)
}
