package varctx

import (
	"context"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/trinio-labs/bake/template"
)

// LayerInput is everything one scope level (project, cookbook, or
// recipe) contributes to a new Context, before rendering.
type LayerInput struct {
	// RawConfig is the full YAML source of the scope's own config
	// section (bake.yml, cookbook.yml, or a recipe's inline block).
	// variables: and overrides: are extracted out of it textually.
	RawConfig string

	// SelectedOverride is the build-environment name passed on the
	// CLI (--env), if any. When it names a key present in the
	// overrides: block, that group's patches win over variables:.
	SelectedOverride string

	// DeclaredEnv lists the environment variable names this scope
	// inherits from its parent's ambient environment.
	DeclaredEnv []string

	// BuiltinScope and Builtins name the new built-in namespace this
	// layer introduces (e.g. "cookbook", {"root": ..., "name": ...}).
	// Leave BuiltinScope empty to add no new built-in namespace.
	BuiltinScope string
	Builtins     map[string]any

	// Helpers are the custom helpers visible while rendering this
	// layer's own variable blocks (and everything inside this scope).
	Helpers map[string]template.Helper
}

// BuildLayer implements the evaluation spec's layered-variable
// algorithm: extract variables:/overrides: as raw text, render that
// text against the parent context, parse the rendered YAML, merge the
// selected override group onto variables (override wins), and produce
// a new Context extending parent.
func BuildLayer(ctx context.Context, parent *Context, in LayerInput) (*Context, error) {
	declaredEnv := selectDeclaredEnv(parent.env, in.DeclaredEnv)

	renderStage := parent
	if declaredEnv != nil {
		renderStage = parent.extend(nil, declaredEnv, "", nil)
	}

	vars, err := renderAndParseBlock(ctx, renderStage, in.RawConfig, "variables", in.Helpers)
	if err != nil {
		return nil, fmt.Errorf("varctx: render variables: %w", err)
	}

	if in.SelectedOverride != "" {
		overrides, err := renderAndParseOverrides(ctx, renderStage, in.RawConfig, in.Helpers)
		if err != nil {
			return nil, fmt.Errorf("varctx: render overrides: %w", err)
		}
		if patch, ok := overrides[in.SelectedOverride]; ok {
			for k, v := range patch {
				vars[k] = v
			}
		}
	}

	return parent.extend(vars, declaredEnv, in.BuiltinScope, in.Builtins), nil
}

func renderAndParseBlock(ctx context.Context, resolver template.Resolver, rawConfig, key string, helpers map[string]template.Helper) (map[string]any, error) {
	raw, ok := extractYAMLBlock(rawConfig, key)
	if !ok {
		return map[string]any{}, nil
	}

	tmpl, err := template.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s block: %w", key, err)
	}

	rendered, err := tmpl.Render(ctx, resolver, helpers)
	if err != nil {
		return nil, fmt.Errorf("render %s block: %w", key, err)
	}

	var out map[string]any
	if err := yaml.UnmarshalWithOptions([]byte(rendered), &out, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse rendered %s block: %w", key, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func renderAndParseOverrides(ctx context.Context, resolver template.Resolver, rawConfig string, helpers map[string]template.Helper) (map[string]map[string]any, error) {
	raw, ok := extractYAMLBlock(rawConfig, "overrides")
	if !ok {
		return map[string]map[string]any{}, nil
	}

	tmpl, err := template.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse overrides block: %w", err)
	}

	rendered, err := tmpl.Render(ctx, resolver, helpers)
	if err != nil {
		return nil, fmt.Errorf("render overrides block: %w", err)
	}

	var out map[string]map[string]any
	if err := yaml.UnmarshalWithOptions([]byte(rendered), &out, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse rendered overrides block: %w", err)
	}
	if out == nil {
		out = map[string]map[string]any{}
	}
	return out, nil
}

// selectDeclaredEnv narrows ambient down to the names a scope declared,
// returning nil (meaning "inherit everything unchanged") when names is
// empty, which is how the root and most recipe scopes behave.
func selectDeclaredEnv(ambient map[string]string, names []string) map[string]string {
	if len(names) == 0 {
		return nil
	}

	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := ambient[name]; ok {
			out[name] = v
		}
	}
	return out
}

// WithCLIOverrides applies -D/--define k=v flags, which merge last and
// win over every prior scope. Unlike scope-level variables, CLI values
// are literal strings — there is nothing to render.
func WithCLIOverrides(parent *Context, overrides map[string]string) *Context {
	if len(overrides) == 0 {
		return parent
	}
	vars := make(map[string]any, len(overrides))
	for k, v := range overrides {
		vars[k] = v
	}
	return parent.extend(vars, nil, "", nil)
}
