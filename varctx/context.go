// Package varctx implements the layered variable-resolution namespace
// that templates render against: the shell environment at the root,
// extended by project, cookbook, recipe, and finally CLI-supplied
// overrides, each layer able to see and override everything beneath it.
package varctx

import (
	"strings"
)

// Context is an immutable snapshot of the variable namespace at one
// point in the project < cookbook < recipe < CLI scope chain. It
// implements template.Resolver directly, so a Context can be passed to
// Template.Render without adapting it.
type Context struct {
	vars     map[string]any
	env      map[string]string
	builtins map[string]map[string]any
}

// NewRoot builds the base context from the shell environment alone: it
// holds no var.* values and no built-in scopes, which later layers add.
// This is the parent of the project-level layer.
func NewRoot(env map[string]string) *Context {
	envCopy := make(map[string]string, len(env))
	for k, v := range env {
		envCopy[k] = v
	}
	return &Context{
		vars:     map[string]any{},
		env:      envCopy,
		builtins: map[string]map[string]any{},
	}
}

// Resolve implements template.Resolver. Paths are dotted: "var.x" reads
// the user-variable namespace, "env.X" the declared environment view,
// and any other leading segment ("project", "cookbook", "recipe",
// "params") is looked up in that scope's built-in constants.
func (c *Context) Resolve(path string) (any, bool) {
	ns, rest, ok := strings.Cut(path, ".")
	if !ok {
		return nil, false
	}

	switch ns {
	case "var":
		v, ok := c.vars[rest]
		return v, ok
	case "env":
		v, ok := c.env[rest]
		return v, ok
	default:
		scope, ok := c.builtins[ns]
		if !ok {
			return nil, false
		}
		v, ok := scope[rest]
		return v, ok
	}
}

// Vars returns the fully merged var.* namespace visible at this layer.
// Callers (such as the fingerprint package, which hashes sorted
// env/var values into the action key) need the flattened view rather
// than path-at-a-time Resolve calls.
func (c *Context) Vars() map[string]any {
	out := make(map[string]any, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// Env returns the declared environment view visible at this layer.
func (c *Context) Env() map[string]string {
	out := make(map[string]string, len(c.env))
	for k, v := range c.env {
		out[k] = v
	}
	return out
}

// extend produces a child context: vars are merged by key (child wins),
// a non-nil env replaces the parent's wholesale (each layer declares its
// own inherited subset per spec's environment-inheritance rules) while a
// nil env inherits the parent's unchanged, and builtins add a
// new named scope (e.g. "cookbook") without touching existing ones.
func (c *Context) extend(vars map[string]any, env map[string]string, builtinScope string, builtins map[string]any) *Context {
	child := &Context{
		vars:     mergeAny(c.vars, vars),
		env:      c.env,
		builtins: make(map[string]map[string]any, len(c.builtins)+1),
	}
	if env != nil {
		child.env = env
	}
	for k, v := range c.builtins {
		child.builtins[k] = v
	}
	if builtinScope != "" {
		child.builtins[builtinScope] = builtins
	}
	return child
}

func mergeAny(parent, child map[string]any) map[string]any {
	out := make(map[string]any, len(parent)+len(child))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

