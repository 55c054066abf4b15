package recipetemplate

import (
	"context"
	"fmt"
	"strings"

	"github.com/trinio-labs/bake/template"
)

// paramsResolver exposes only params.* during recipe-template
// rendering — spec requires templates to be context-free with respect
// to var.*/env.*, so this Resolver simply doesn't know those
// namespaces. It is intentionally narrower than varctx.Context.
type paramsResolver struct {
	params map[string]any
}

func (r paramsResolver) Resolve(path string) (any, bool) {
	ns, rest, ok := strings.Cut(path, ".")
	if !ok || ns != "params" {
		return nil, false
	}
	v, ok := r.params[rest]
	return v, ok
}

// forbiddenHelper overrides the shell/shell_lines builtins for the
// duration of template-body rendering: spec explicitly excludes shell
// execution from this pass ("no shell helper"), so a recipe-template
// author who tries to shell out gets a load-time error naming the
// problem rather than a silently empty or cached value.
func forbiddenHelper(name string) template.Helper {
	return func(_ context.Context, _ []any, _ map[string]any) (any, error) {
		return nil, fmt.Errorf("recipetemplate: %q is not available while rendering a recipe-template body", name)
	}
}

// deferredHelpers disables shell/shell_lines for the restricted pass.
var deferredHelpers = map[string]template.Helper{
	"shell":       forbiddenHelper("shell"),
	"shell_lines": forbiddenHelper("shell_lines"),
}

// protectDeferredRefs escapes {{var. / {{env. tags so the restricted
// render pass treats them as opaque literal text instead of resolving
// (and failing on) them — spec's step 6 says the produced recipe "may
// still refer to var.*/env.* in its resolved text" for the engine's
// later outer render pass to pick up. This only protects bare
// top-level references (`{{var.x}}`, `{{env.X}}`); a var./env. path
// nested inside another helper's arguments (`{{eq var.x 1}}`) is not
// deferred and fails validation instead, since spec's own wording
// ("may still refer to var.*/env.* in its resolved text") only
// anticipates direct interpolation, not deferred helper arguments.
func protectDeferredRefs(src string) string {
	for _, prefix := range []string{"{{var.", "{{env."} {
		src = strings.ReplaceAll(src, prefix, deferMarker+strings.TrimPrefix(prefix, "{{"))
	}
	return src
}

func restoreDeferredRefs(src string) string {
	return strings.ReplaceAll(src, deferMarker, "{{")
}

const deferMarker = "\x00BAKE_DEFER\x00"

// Instantiate validates bound against the merged schema, applies
// defaults, and renders every templated string field in body against a
// restricted params-only context, producing a concrete Body ready to
// be treated like a directly-written recipe (spec's step 6).
func Instantiate(ctx context.Context, schema map[string]*ParamSchema, body Body, bound map[string]any) (Body, error) {
	resolved, err := Validate(schema, bound)
	if err != nil {
		return Body{}, err
	}

	r := paramsResolver{params: resolved}

	renderField := func(src string) (string, error) {
		if src == "" {
			return "", nil
		}
		tmpl, err := template.Parse(protectDeferredRefs(src))
		if err != nil {
			return "", err
		}
		out, err := tmpl.Render(ctx, r, deferredHelpers)
		if err != nil {
			return "", err
		}
		return restoreDeferredRefs(out), nil
	}

	out := body
	out.Run, err = renderField(body.Run)
	if err != nil {
		return Body{}, fmt.Errorf("recipetemplate: render run: %w", err)
	}

	if body.Cache != nil {
		cache := &CachePatch{}
		for _, pat := range body.Cache.Inputs {
			rendered, err := renderField(pat)
			if err != nil {
				return Body{}, fmt.Errorf("recipetemplate: render cache input %q: %w", pat, err)
			}
			cache.Inputs = append(cache.Inputs, rendered)
		}
		for _, pat := range body.Cache.Outputs {
			rendered, err := renderField(pat)
			if err != nil {
				return Body{}, fmt.Errorf("recipetemplate: render cache output %q: %w", pat, err)
			}
			cache.Outputs = append(cache.Outputs, rendered)
		}
		out.Cache = cache
	}

	if body.Variables != nil {
		vars := make(map[string]any, len(body.Variables))
		for k, v := range body.Variables {
			s, ok := v.(string)
			if !ok {
				vars[k] = v
				continue
			}
			rendered, err := renderField(s)
			if err != nil {
				return Body{}, fmt.Errorf("recipetemplate: render variable %q: %w", k, err)
			}
			vars[k] = rendered
		}
		out.Variables = vars
	}

	return out, nil
}
