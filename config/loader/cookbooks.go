package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/internal/hfs"
	"github.com/trinio-labs/bake/recipetemplate"
	"github.com/trinio-labs/bake/template"
	"github.com/trinio-labs/bake/varctx"
)

var cookbookFileNames = []string{"cookbook.yml", "cookbook.yaml"}

// discoverCookbookDirs walks the project tree, skipping anything ig
// excludes, and returns the directories (relative to root, sorted)
// that contain a cookbook.yml/cookbook.yaml.
func discoverCookbookDirs(root string, ig *hfs.Ignorer) ([]string, error) {
	var dirs []string

	err := hfs.WalkFiles(root, ig, func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		base := filepath.Base(rel)
		for _, name := range cookbookFileNames {
			if base == name {
				dirs = append(dirs, filepath.Dir(rel))
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(dirs)
	return dirs, nil
}

// cookbookFilePath returns the cookbook file inside dir, preferring
// cookbook.yml the same way DiscoverRoot prefers bake.yml.
func cookbookFilePath(dir string) (string, error) {
	for _, name := range cookbookFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("loader: no cookbook file in %s", dir)
}

// loadCookbookDiscovery reads a cookbook file structurally — enough to
// know its recipes' names, dependencies, tags, and whether each sets
// run or template — without rendering any variables or instantiating
// any recipe-template. This is the Discovered half of the two-phase
// loading the dependency graph builds from.
func loadCookbookDiscovery(dir string) (*config.Cookbook, error) {
	path, err := cookbookFilePath(dir)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw rawCookbookFile
	if err := yaml.UnmarshalWithOptions(b, &raw, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}

	cb := &config.Cookbook{
		Path:               dir,
		Name:               derefStr(raw.Name),
		Description:        derefStr(raw.Description),
		Environment:        raw.Environment,
		RecipeNames:        make([]string, 0, len(raw.Recipes)),
		RecipeDependencies: make(map[string][]string, len(raw.Recipes)),
		RecipeTags:         make(map[string][]string, len(raw.Recipes)),
	}
	cb.SetRawYAML(string(b))

	for name, rr := range raw.Recipes {
		cb.RecipeNames = append(cb.RecipeNames, name)
		cb.RecipeDependencies[name] = rr.Dependencies
		cb.RecipeTags[name] = rr.Tags
	}
	sort.Strings(cb.RecipeNames)

	return cb, nil
}

// loadCookbookFull upgrades a discovery-mode cookbook to Loaded: true,
// building the cookbook's own variable-context layer, then each
// recipe's, rendering every templated field and instantiating any
// recipe-template reference.
func loadCookbookFull(
	ctx context.Context,
	cb *config.Cookbook,
	projectCtx *varctx.Context,
	selectedOverride string,
	helpers map[string]config.Helper,
	templates map[string]*recipetemplate.Template,
) error {
	var raw rawCookbookFile
	if err := yaml.UnmarshalWithOptions([]byte(cb.RawYAML()), &raw, yaml.Strict()); err != nil {
		return fmt.Errorf("loader: parse %s: %w", cb.Path, err)
	}

	cbHelpers := bindHelpers(helpers, projectCtx.Env(), projectCtx.Vars())

	cbCtx, err := varctx.BuildLayer(ctx, projectCtx, varctx.LayerInput{
		RawConfig:        cb.RawYAML(),
		SelectedOverride: selectedOverride,
		DeclaredEnv:      raw.Environment,
		BuiltinScope:     "cookbook",
		Builtins:         map[string]any{"name": cb.Name, "root": cb.Path},
		Helpers:          cbHelpers,
	})
	if err != nil {
		return fmt.Errorf("loader: build cookbook context for %s: %w", cb.Path, err)
	}

	cb.Variables = cbCtx.Vars()
	cb.Overrides = map[string]map[string]any{}
	cb.Recipes = make(map[string]*config.Recipe, len(raw.Recipes))

	for name, rr := range raw.Recipes {
		recipe := rr.resolve(name, cb.Name)

		if recipe.Run != "" && recipe.Template != nil {
			return &config.RunAndTemplateError{Recipe: recipe.FQN()}
		}
		if recipe.Run == "" && recipe.Template == nil {
			return &config.NeitherRunNorTemplateError{Recipe: recipe.FQN()}
		}

		recipeRaw, _ := varctx.ExtractNestedBlock(cb.RawYAML(), "recipes", name)
		recipeHelpers := bindHelpers(helpers, cbCtx.Env(), cbCtx.Vars())

		declaredEnv := rr.Environment
		var instantiated *recipetemplate.Body
		if recipe.Template != nil {
			merged, err := mergeAndInstantiateTemplate(ctx, recipe, templates)
			if err != nil {
				return fmt.Errorf("loader: instantiate template for %s: %w", recipe.FQN(), err)
			}
			instantiated = merged
			declaredEnv = dedupEnvNames(declaredEnv, merged.Environment)
		}

		recipeCtx, err := varctx.BuildLayer(ctx, cbCtx, varctx.LayerInput{
			RawConfig:        recipeRaw,
			SelectedOverride: selectedOverride,
			DeclaredEnv:      declaredEnv,
			BuiltinScope:     "recipe",
			Builtins:         map[string]any{"name": name, "cookbook": cb.Name},
			Helpers:          recipeHelpers,
		})
		if err != nil {
			return fmt.Errorf("loader: build recipe context for %s: %w", recipe.FQN(), err)
		}

		if instantiated != nil {
			if err := applyInstantiatedTemplate(ctx, recipe, instantiated, recipeCtx, recipeHelpers); err != nil {
				return fmt.Errorf("loader: render template output for %s: %w", recipe.FQN(), err)
			}
		} else {
			if err := renderRecipeFields(ctx, recipe, recipeCtx, recipeHelpers); err != nil {
				return fmt.Errorf("loader: render recipe %s: %w", recipe.FQN(), err)
			}
		}

		recipe.Variables = recipeCtx.Vars()
		cb.Recipes[name] = recipe
	}

	cb.Loaded = true
	return nil
}

// mergeAndInstantiateTemplate resolves the referenced template's
// inheritance chain and instantiates it against the recipe's bound
// params. The result's string fields may still hold var.*/env.*
// references (recipetemplate defers those deliberately) — a later
// outer pass through the recipe's own context resolves them.
func mergeAndInstantiateTemplate(ctx context.Context, recipe *config.Recipe, templates map[string]*recipetemplate.Template) (*recipetemplate.Body, error) {
	schema, body, err := recipetemplate.Merge(templates, recipe.Template.Name)
	if err != nil {
		return nil, err
	}

	instantiated, err := recipetemplate.Instantiate(ctx, schema, body, recipe.Template.Params)
	if err != nil {
		return nil, err
	}
	return &instantiated, nil
}

func dedupEnvNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, name := range append(append([]string{}, a...), b...) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// applyInstantiatedTemplate renders a template-instantiated body's
// string fields against the recipe's own context — the outer render
// pass that resolves whatever var.*/env.* references the restricted
// template-rendering pass deferred — and assigns the result onto recipe.
func applyInstantiatedTemplate(ctx context.Context, recipe *config.Recipe, instantiated *recipetemplate.Body, recipeCtx *varctx.Context, helpers map[string]template.Helper) error {
	var err error
	recipe.Run, err = renderTemplateString(ctx, instantiated.Run, recipeCtx, helpers)
	if err != nil {
		return fmt.Errorf("render run: %w", err)
	}
	recipe.Dependencies = append(recipe.Dependencies, instantiated.Dependencies...)
	recipe.Tags = append(recipe.Tags, instantiated.Tags...)
	recipe.Environment = dedupEnvNames(recipe.Environment, instantiated.Environment)

	if instantiated.Cache != nil {
		recipe.Cache = &config.CacheSpec{}
		for _, pat := range instantiated.Cache.Inputs {
			rendered, err := renderTemplateString(ctx, pat, recipeCtx, helpers)
			if err != nil {
				return fmt.Errorf("render cache input: %w", err)
			}
			recipe.Cache.Inputs = append(recipe.Cache.Inputs, rendered)
		}
		for _, pat := range instantiated.Cache.Outputs {
			rendered, err := renderTemplateString(ctx, pat, recipeCtx, helpers)
			if err != nil {
				return fmt.Errorf("render cache output: %w", err)
			}
			recipe.Cache.Outputs = append(recipe.Cache.Outputs, rendered)
		}
	}

	return nil
}

func renderRecipeFields(ctx context.Context, recipe *config.Recipe, recipeCtx *varctx.Context, helpers map[string]template.Helper) error {
	rendered, err := renderTemplateString(ctx, recipe.Run, recipeCtx, helpers)
	if err != nil {
		return fmt.Errorf("render run: %w", err)
	}
	recipe.Run = rendered

	if recipe.Cache != nil {
		for i, pat := range recipe.Cache.Inputs {
			recipe.Cache.Inputs[i], err = renderTemplateString(ctx, pat, recipeCtx, helpers)
			if err != nil {
				return fmt.Errorf("render cache input: %w", err)
			}
		}
		for i, pat := range recipe.Cache.Outputs {
			recipe.Cache.Outputs[i], err = renderTemplateString(ctx, pat, recipeCtx, helpers)
			if err != nil {
				return fmt.Errorf("render cache output: %w", err)
			}
		}
	}

	return nil
}

func renderTemplateString(ctx context.Context, src string, resolver template.Resolver, helpers map[string]template.Helper) (string, error) {
	if src == "" {
		return "", nil
	}
	tmpl, err := template.Parse(src)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, resolver, helpers)
}

// bindHelpers closes every declared custom helper over the calling
// scope's environment and variable snapshot, producing the helpers
// map BuildLayer/Render pass alongside the built-in set.
func bindHelpers(helpers map[string]config.Helper, env map[string]string, vars map[string]any) map[string]template.Helper {
	out := make(map[string]template.Helper, len(helpers))
	for name, h := range helpers {
		out[name] = h.Bind(env, vars)
	}
	return out
}
