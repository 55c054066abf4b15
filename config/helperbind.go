package config

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/trinio-labs/bake/recipetemplate"
	"github.com/trinio-labs/bake/template"
)

// helperResolver is the restricted namespace a custom helper's own
// body renders against: its bound params, the calling scope's var.*
// snapshot (helper-scope variables override same-named caller
// variables for this render only), and an environment view cut down
// to the names the helper declared.
type helperResolver struct {
	params map[string]any
	vars   map[string]any
	env    map[string]string
}

func (r *helperResolver) Resolve(path string) (any, bool) {
	ns, rest, ok := strings.Cut(path, ".")
	if !ok {
		return nil, false
	}
	switch ns {
	case "params":
		v, ok := r.params[rest]
		return v, ok
	case "var":
		v, ok := r.vars[rest]
		return v, ok
	case "env":
		v, ok := r.env[rest]
		return v, ok
	}
	return nil, false
}

// Bind produces the template.Helper that {{h.Name ...}} invokes,
// closing over the calling scope's environment and variable snapshot
// so the helper body renders with "the current variable context" spec
// promises without the template engine needing to know about varctx.
func (h Helper) Bind(callerEnv map[string]string, callerVars map[string]any) template.Helper {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		bound, err := h.bindParams(args, kwargs)
		if err != nil {
			return nil, fmt.Errorf("helper %q: %w", h.Name, err)
		}

		resolved, err := recipetemplate.Validate(h.Params, bound)
		if err != nil {
			return nil, fmt.Errorf("helper %q: %w", h.Name, err)
		}

		env := make(map[string]string, len(h.Environment))
		for _, name := range h.Environment {
			if v, ok := callerEnv[name]; ok {
				env[name] = v
			}
		}

		vars := make(map[string]any, len(callerVars))
		for k, v := range callerVars {
			vars[k] = v
		}

		r := &helperResolver{params: resolved, vars: vars, env: env}

		for k, v := range h.Variables {
			s, ok := v.(string)
			if !ok {
				vars[k] = v
				continue
			}
			rendered, err := renderAgainst(ctx, s, r)
			if err != nil {
				return nil, fmt.Errorf("helper %q: render variable %q: %w", h.Name, k, err)
			}
			vars[k] = rendered
		}

		script, err := renderAgainst(ctx, h.Run, r)
		if err != nil {
			return nil, fmt.Errorf("helper %q: render run: %w", h.Name, err)
		}

		out, err := runShellScript(ctx, script)
		if err != nil {
			return nil, fmt.Errorf("helper %q: %w", h.Name, err)
		}

		if h.Returns == "array" {
			return splitNonEmptyLines(out), nil
		}
		return strings.TrimRight(out, "\n"), nil
	}
}

// bindParams maps positional call args onto ParamOrder in declaration
// order, then layers named args on top (a named arg always wins over
// whatever a positional slot would have bound).
func (h Helper) bindParams(args []any, kwargs map[string]any) (map[string]any, error) {
	if len(args) > len(h.ParamOrder) {
		return nil, fmt.Errorf("too many positional arguments: want at most %d, got %d", len(h.ParamOrder), len(args))
	}

	bound := make(map[string]any, len(args)+len(kwargs))
	for i, v := range args {
		bound[h.ParamOrder[i]] = v
	}
	for k, v := range kwargs {
		bound[k] = v
	}
	return bound, nil
}

func renderAgainst(ctx context.Context, src string, r template.Resolver) (string, error) {
	tmpl, err := template.Parse(src)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, r, nil)
}

// runShellScript executes a helper's rendered run: body the same way
// the template engine's own shell helper does (exec.CommandContext,
// captured stderr on failure) — helpers are their own shell
// invocation, distinct from a {{shell}} call inside their body.
func runShellScript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("exit: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func splitNonEmptyLines(s string) []any {
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		return []any{}
	}
	lines := strings.Split(trimmed, "\n")
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}
