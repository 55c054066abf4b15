package template

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Resolver looks up a dotted variable path (var.release_mode, env.PATH)
// against whatever layered variable context is rendering the template.
// Rendering is deliberately decoupled from that context's concrete type
// so this package has no import-time dependency on it.
type Resolver interface {
	Resolve(path string) (value any, ok bool)
}

// Helper implements a named call usable from {{name arg1 arg2 key=val}}.
// ctx carries cancellation for helpers that shell out.
type Helper func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// scope is a linked frame of block-local bindings (`this`, `@index`)
// introduced by #each; nested each blocks shadow their parent's.
type scope struct {
	vars   map[string]any
	parent *scope
}

func (s *scope) lookup(name string) (any, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

type renderState struct {
	ctx      context.Context
	resolver Resolver
	helpers  map[string]Helper
	locals   *scope
}

// Render evaluates the template against resolver, using helpers in
// addition to the package's built-in set (caller-supplied helpers of
// the same name take precedence, letting a cookbook override a builtin).
func (t *Template) Render(ctx context.Context, resolver Resolver, helpers map[string]Helper) (string, error) {
	merged := make(map[string]Helper, len(builtinHelpers)+len(helpers))
	for k, v := range builtinHelpers {
		merged[k] = v
	}
	runner := &shellRunner{cache: map[string][]byte{}}
	merged["shell"] = runner.shell
	merged["shell_lines"] = runner.shellLines
	for k, v := range helpers {
		merged[k] = v
	}

	st := &renderState{ctx: ctx, resolver: resolver, helpers: merged}

	var b strings.Builder
	for _, n := range t.nodes {
		out, err := n.render(st)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (n TextNode) render(st *renderState) (string, error) {
	return n.Text, nil
}

func (n ExprNode) render(st *renderState) (string, error) {
	v, err := evaluate(n.Expr, st)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

func (n IfNode) render(st *renderState) (string, error) {
	v, err := evaluate(n.Cond, st)
	if err != nil {
		return "", err
	}
	cond := truthy(v)
	if n.Negate {
		cond = !cond
	}

	body := n.Body
	if !cond {
		body = n.Else
	}
	return renderNodes(body, st)
}

func (n EachNode) render(st *renderState) (string, error) {
	v, err := evaluate(n.Collection, st)
	if err != nil {
		return "", err
	}

	items, err := toSlice(v)
	if err != nil {
		return "", fmt.Errorf("template: each: %w", err)
	}

	var b strings.Builder
	for i, item := range items {
		inner := &renderState{
			ctx:      st.ctx,
			resolver: st.resolver,
			helpers:  st.helpers,
			locals: &scope{
				parent: st.locals,
				vars:   map[string]any{"this": item, "@index": i},
			},
		}
		out, err := renderNodes(n.Body, inner)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func renderNodes(nodes []Node, st *renderState) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		out, err := n.render(st)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func evaluate(e Expr, st *renderState) (any, error) {
	switch e.Kind {
	case exprString:
		return e.Str, nil
	case exprBool:
		return e.Bool, nil
	case exprNumber:
		n, err := parseNumberLiteral(e.Num)
		if err != nil {
			return nil, fmt.Errorf("template: invalid number %q: %w", e.Num, err)
		}
		return n, nil
	case exprPath:
		return resolvePath(e.Path, st)
	case exprCall:
		return evalCall(e, st)
	default:
		return nil, fmt.Errorf("template: unknown expression kind %d", e.Kind)
	}
}

func resolvePath(path string, st *renderState) (any, error) {
	head := path
	rest := ""
	if i := strings.IndexByte(path, '.'); i >= 0 {
		head, rest = path[:i], path[i+1:]
	}

	if v, ok := st.locals.lookup(head); ok {
		if rest == "" {
			return v, nil
		}
		return indexInto(v, rest)
	}

	if st.resolver != nil {
		if v, ok := st.resolver.Resolve(path); ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("template: undefined variable %q", path)
}

func indexInto(v any, dottedPath string) (any, error) {
	cur := v
	for _, part := range strings.Split(dottedPath, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("template: cannot index %q into non-map value", part)
		}
		next, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("template: field %q not found", part)
		}
		cur = next
	}
	return cur, nil
}

func evalCall(e Expr, st *renderState) (any, error) {
	h, ok := st.helpers[e.Function]
	if !ok {
		return nil, fmt.Errorf("template: unknown helper %q", e.Function)
	}

	args := make([]any, 0, len(e.PosArgs))
	for _, a := range e.PosArgs {
		v, err := evaluate(a, st)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	kwargs := make(map[string]any, len(e.NamedArgs))
	for k, a := range e.NamedArgs {
		v, err := evaluate(a, st)
		if err != nil {
			return nil, err
		}
		kwargs[k] = v
	}

	return h(st.ctx, args, kwargs)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func toSlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("value is not a list: %T", v)
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
